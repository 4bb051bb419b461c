// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package memory models the EEPROM and flash of a HAPCAN module.
//
// A Bank covers the address range [Base, Base+Size) and starts out erased
// (every byte 0xFF). Plain banks behave like EEPROM and accept any write.
// Flash banks can only clear bits and must be erased one page at a time.
package memory

import "fmt"

// Erased is the value of every byte in a freshly erased bank.
const Erased = 0xFF

// Bank is a contiguous block of module memory.
type Bank interface {
	Base() uint32
	Size() uint32
	Contains(addr uint32) bool
	Read(addr uint32, n int) ([]byte, error)
	Write(addr uint32, data []byte) error
	ErasePage(addr uint32) error

	// Image returns a copy of the whole bank and Load replaces it,
	// bypassing write rules. They exist for snapshots.
	Image() []byte
	Load(image []byte) error
}

// Plain is an overwrite-anything bank such as EEPROM.
type Plain struct {
	base uint32
	data []byte
}

// NewPlain creates an erased plain bank.
func NewPlain(base, size uint32) *Plain {
	p := &Plain{base: base, data: make([]byte, size)}
	for i := range p.data {
		p.data[i] = Erased
	}
	return p
}

func (p *Plain) Base() uint32 { return p.base }
func (p *Plain) Size() uint32 { return uint32(len(p.data)) }

func (p *Plain) Contains(addr uint32) bool {
	return addr >= p.base && addr-p.base < uint32(len(p.data))
}

// span returns the offset of [addr, addr+n) inside the bank.
func (p *Plain) span(addr uint32, n int) (int, error) {
	if n < 0 || !p.Contains(addr) || uint64(addr-p.base)+uint64(n) > uint64(len(p.data)) {
		return 0, &OutOfRangeError{Address: addr, Length: n}
	}
	return int(addr - p.base), nil
}

func (p *Plain) Read(addr uint32, n int) ([]byte, error) {
	off, err := p.span(addr, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, p.data[off:])
	return out, nil
}

func (p *Plain) Write(addr uint32, data []byte) error {
	off, err := p.span(addr, len(data))
	if err != nil {
		return err
	}
	copy(p.data[off:], data)
	return nil
}

func (p *Plain) ErasePage(addr uint32) error {
	return ErrEraseUnsupported
}

func (p *Plain) Image() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

func (p *Plain) Load(image []byte) error {
	if len(image) != len(p.data) {
		return fmt.Errorf("memory: image of %d bytes does not fit bank of %d bytes at 0x%06X", len(image), len(p.data), p.base)
	}
	copy(p.data, image)
	return nil
}

// Flash is a bank with flash programming rules.
type Flash struct {
	Plain
	pageSize uint32
}

// NewFlash creates an erased flash bank. size must be a multiple of pageSize.
func NewFlash(base, size, pageSize uint32) *Flash {
	return &Flash{Plain: *NewPlain(base, size), pageSize: pageSize}
}

// PageSize returns the erase granularity in bytes.
func (f *Flash) PageSize() uint32 { return f.pageSize }

// Write programs data at addr. Every byte must only clear bits of the byte
// it replaces; otherwise nothing is written and a ProgramError is returned.
func (f *Flash) Write(addr uint32, data []byte) error {
	off, err := f.span(addr, len(data))
	if err != nil {
		return err
	}
	for i, b := range data {
		old := f.data[off+i]
		if old|b != old {
			return &ProgramError{Address: addr + uint32(i), Old: old, New: b}
		}
	}
	copy(f.data[off:], data)
	return nil
}

// ErasePage resets the page starting at addr to Erased.
func (f *Flash) ErasePage(addr uint32) error {
	if !f.Contains(addr) {
		return &OutOfRangeError{Address: addr, Length: int(f.pageSize)}
	}
	if (addr-f.base)%f.pageSize != 0 {
		return &UnalignedEraseError{Address: addr, PageSize: f.pageSize}
	}
	off := int(addr - f.base)
	for i := off; i < off+int(f.pageSize) && i < len(f.data); i++ {
		f.data[i] = Erased
	}
	return nil
}
