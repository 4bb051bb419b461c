// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hapcan

import (
	"fmt"
	"maps"
	"slices"
)

// Message is a typed view of a frame.
type Message interface {
	Type() FrameType
	Payload() []byte
}

// Entry describes one frame type in a Registry.
type Entry[M Message] struct {
	Name        string
	PayloadSize int
	Decode      func(payload []byte) M
}

// Registry maps frame types to their decoders. Registries are built once
// from a literal catalog and never change afterwards.
type Registry[M Message] struct {
	name    string
	entries map[FrameType]Entry[M]
}

// NewRegistry creates a registry from a fixed catalog.
func NewRegistry[M Message](name string, entries map[FrameType]Entry[M]) *Registry[M] {
	return &Registry[M]{name: name, entries: entries}
}

// Name returns the registry name ("network", "uart").
func (r *Registry[M]) Name() string {
	return r.name
}

// Lookup returns the catalog entry for t.
func (r *Registry[M]) Lookup(t FrameType) (Entry[M], bool) {
	e, ok := r.entries[t]
	return e, ok
}

// TypeName returns the catalog name of t, or UNKNOWN_0xXXXX.
func (r *Registry[M]) TypeName(t FrameType) string {
	if e, ok := r.entries[t]; ok {
		return e.Name
	}
	return fmt.Sprintf("UNKNOWN_0x%04X", uint16(t))
}

// Types returns every registered frame type in ascending order.
func (r *Registry[M]) Types() []FrameType {
	return slices.Sorted(maps.Keys(r.entries))
}

// DecodeFrame turns an already split frame into a message. The checksum
// flag is not inspected.
func (r *Registry[M]) DecodeFrame(f *Frame) (M, error) {
	var zero M
	e, ok := r.entries[f.Type]
	if !ok {
		return zero, &UnknownFrameTypeError{Registry: r.name, Type: f.Type}
	}
	if len(f.Payload) != e.PayloadSize {
		return zero, fmt.Errorf("%w: %s payload is %d bytes, want %d",
			ErrInvalidFrame, e.Name, len(f.Payload), e.PayloadSize)
	}
	return e.Decode(f.Payload), nil
}

// Decode splits raw and decodes it into a message.
func (r *Registry[M]) Decode(raw []byte) (M, error) {
	f, err := DecodeFrame(raw)
	if err != nil {
		var zero M
		return zero, err
	}
	return r.DecodeFrame(f)
}
