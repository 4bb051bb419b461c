// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package memory

// Standard HAPCAN module layout
const (
	EEPROMBase    = 0xF00000
	EEPROMSize    = 0x400
	FlashBase     = 0x000000
	FlashSize     = 0x10000
	FlashPageSize = 64
)

// Map is the set of banks of one module. Banks must not overlap.
type Map []Bank

// NewModuleMap creates the EEPROM and flash banks of a standard module.
func NewModuleMap() Map {
	return Map{
		NewPlain(EEPROMBase, EEPROMSize),
		NewFlash(FlashBase, FlashSize, FlashPageSize),
	}
}

// Find returns the bank owning addr.
func (m Map) Find(addr uint32) (Bank, error) {
	for _, b := range m {
		if b.Contains(addr) {
			return b, nil
		}
	}
	return nil, &OutOfRangeError{Address: addr, Length: 1}
}

// Read reads n bytes at addr from the owning bank.
func (m Map) Read(addr uint32, n int) ([]byte, error) {
	b, err := m.Find(addr)
	if err != nil {
		return nil, err
	}
	return b.Read(addr, n)
}

// Write writes data at addr into the owning bank, under that bank's rules.
func (m Map) Write(addr uint32, data []byte) error {
	b, err := m.Find(addr)
	if err != nil {
		return err
	}
	return b.Write(addr, data)
}
