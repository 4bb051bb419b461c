// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"time"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
)

// EventKind classifies traffic seen by a Tap.
type EventKind int

const (
	EventBus        EventKind = iota // message broadcast on the bus
	EventLinkIn                      // frame received from the host
	EventLinkOut                     // frame sent to the host
	EventDiagnostic                  // dropped frame or failed command
	EventAddress                     // a module moved to a new node/group
)

func (k EventKind) String() string {
	switch k {
	case EventBus:
		return "BUS"
	case EventLinkIn:
		return "RX"
	case EventLinkOut:
		return "TX"
	case EventDiagnostic:
		return "DIAG"
	case EventAddress:
		return "ADDR"
	}
	return "?"
}

// Event is one observation delivered to a Tap.
type Event struct {
	Time   time.Time
	Kind   EventKind
	Source string
	Type   hapcan.FrameType
	Name   string
	Raw    []byte
	Err    error

	Address hapcan.Address // new address, EventAddress only
}

// Tap receives events. It is called from the poll loop and must not block.
type Tap func(Event)
