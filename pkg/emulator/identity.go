// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"fmt"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
)

// Identity is the factory data of an emulated module. Integer fields are
// wide so values read from configuration can be range checked before they
// are narrowed to their wire size.
type Identity struct {
	Name               string
	NodeID             int
	GroupID            int
	SerialNumber       int64
	HardwareType       int
	HardwareVersion    int
	ApplicationType    int
	ApplicationVersion int
	FirmwareVersion    int
	BootloaderVersion  int
	BootloaderRevision int
	Description        string
	SupplyVoltageBus   int // raw ADC reading
	SupplyVoltageCPU   int // raw ADC reading
}

// DefaultIdentity returns the defaults of a plain module. Node, group,
// serial number and application type have no sensible default.
func DefaultIdentity() Identity {
	return Identity{
		HardwareType:    0x3000,
		HardwareVersion: 0x03,
	}
}

// DefaultGatewayIdentity returns the defaults of the serial interface module.
func DefaultGatewayIdentity() Identity {
	id := DefaultIdentity()
	id.ApplicationType = 101
	id.FirmwareVersion = 1
	id.BootloaderVersion = 3
	id.BootloaderRevision = 4
	return id
}

// IdentityError reports an identity field outside its allowed range.
type IdentityError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("identity: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Validate checks every field against its wire size.
func (id Identity) Validate() error {
	bytes := []struct {
		name  string
		value int
	}{
		{"nodeId", id.NodeID},
		{"groupId", id.GroupID},
		{"hardwareVersion", id.HardwareVersion},
		{"applicationType", id.ApplicationType},
		{"applicationVersion", id.ApplicationVersion},
		{"firmwareVersion", id.FirmwareVersion},
		{"bootloaderVersion", id.BootloaderVersion},
		{"bootloaderRevision", id.BootloaderRevision},
	}
	for _, f := range bytes {
		if f.value < 0 || f.value > 0xFF {
			return &IdentityError{Field: f.name, Value: f.value, Reason: "must be in range 0-255"}
		}
	}

	words := []struct {
		name  string
		value int
	}{
		{"hardwareType", id.HardwareType},
		{"rawSupplyVoltageBus", id.SupplyVoltageBus},
		{"rawSupplyVoltageCpu", id.SupplyVoltageCPU},
	}
	for _, f := range words {
		if f.value < 0 || f.value > 0xFFFF {
			return &IdentityError{Field: f.name, Value: f.value, Reason: "must be in range 0-65535"}
		}
	}

	if id.SerialNumber < 0 || id.SerialNumber > 0xFFFFFFFF {
		return &IdentityError{Field: "serialNumber", Value: id.SerialNumber, Reason: "must be in range 0x0-0xFFFFFFFF"}
	}

	if len(id.Description) > hapcan.DescriptionSize {
		return &IdentityError{Field: "description", Value: id.Description, Reason: "must be 16 characters or less"}
	}
	for i := 0; i < len(id.Description); i++ {
		if id.Description[i] > 0x7F {
			return &IdentityError{Field: "description", Value: id.Description, Reason: "must be ASCII"}
		}
	}
	return nil
}

// Address returns the configured node/group. Validate first.
func (id Identity) Address() hapcan.Address {
	return hapcan.Address{Node: uint8(id.NodeID), Group: uint8(id.GroupID)}
}

// DefaultAddress is the address a module takes on SetDefaultNodeAndGroup:
// the two low bytes of its serial number.
func DefaultAddress(serial uint32) hapcan.Address {
	return hapcan.Address{Node: uint8(serial >> 8), Group: uint8(serial)}
}
