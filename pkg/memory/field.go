// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package memory

import (
	"bytes"
	"fmt"
)

// Kind is the encoding of a Field.
type Kind int

const (
	Uint  Kind = iota // big-endian unsigned integer
	ASCII             // NUL-padded text
	Raw               // opaque bytes
)

// Field is a named, typed view of a fixed span of memory.
type Field struct {
	Name    string
	Address uint32
	Size    int
	Kind    Kind
}

// Identity fields of a HAPCAN module
var (
	SerialNumber       = Field{"serialNumber", 0x000024, 4, Uint}
	HardwareType       = Field{"hardwareType", 0x001010, 2, Uint}
	HardwareVersion    = Field{"hardwareVersion", 0x001012, 1, Uint}
	ApplicationType    = Field{"applicationType", 0x001013, 1, Uint}
	ApplicationVersion = Field{"applicationVersion", 0x001014, 1, Uint}
	FirmwareVersion    = Field{"firmwareVersion", 0x001015, 1, Uint}
	BootloaderVersion  = Field{"bootloaderVersion", 0x001016, 1, Uint}
	BootloaderRevision = Field{"bootloaderRevision", 0x001017, 1, Uint}
	NodeID             = Field{"nodeId", 0xF00026, 1, Uint}
	GroupID            = Field{"groupId", 0xF00027, 1, Uint}
	Description        = Field{"description", 0xF00030, 16, ASCII}
)

// Bytes returns the raw content of the field.
func (f Field) Bytes(m Map) ([]byte, error) {
	b, err := m.Read(f.Address, f.Size)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return b, nil
}

// SetBytes stores exactly Size bytes.
func (f Field) SetBytes(m Map, b []byte) error {
	if len(b) != f.Size {
		return fmt.Errorf("write %s: got %d bytes, field is %d", f.Name, len(b), f.Size)
	}
	if err := m.Write(f.Address, b); err != nil {
		return fmt.Errorf("write %s: %w", f.Name, err)
	}
	return nil
}

// Uint decodes the field as a big-endian integer.
func (f Field) Uint(m Map) (uint64, error) {
	b, err := f.Bytes(m)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v, nil
}

// SetUint stores v big-endian. v must fit in Size bytes.
func (f Field) SetUint(m Map, v uint64) error {
	if f.Size < 8 && v>>(8*uint(f.Size)) != 0 {
		return fmt.Errorf("write %s: value %d does not fit in %d bytes", f.Name, v, f.Size)
	}
	b := make([]byte, f.Size)
	for i := f.Size - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return f.SetBytes(m, b)
}

// Text decodes the field as ASCII, stopping at the first NUL.
func (f Field) Text(m Map) (string, error) {
	b, err := f.Bytes(m)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

// SetText stores s NUL-padded to Size. s must be ASCII and no longer than Size.
func (f Field) SetText(m Map, s string) error {
	if len(s) > f.Size {
		return fmt.Errorf("write %s: %q is longer than %d characters", f.Name, s, f.Size)
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return fmt.Errorf("write %s: %q is not ASCII", f.Name, s)
		}
	}
	b := make([]byte, f.Size)
	copy(b, s)
	return f.SetBytes(m, b)
}
