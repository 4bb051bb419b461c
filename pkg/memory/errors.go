// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package memory

import (
	"errors"
	"fmt"
)

// ErrEraseUnsupported is returned by banks without page erase.
var ErrEraseUnsupported = errors.New("memory: bank does not support page erase")

// OutOfRangeError reports an access that leaves every bank.
type OutOfRangeError struct {
	Address uint32
	Length  int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("memory: access of %d bytes at 0x%06X is out of range", e.Length, e.Address)
}

// ProgramError reports a flash write that would need to set a cleared bit.
// Flash can only be programmed from 1 to 0; going back requires a page erase.
type ProgramError struct {
	Address uint32
	Old     byte
	New     byte
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("memory: cannot program 0x%02X over 0x%02X at 0x%06X without erase", e.New, e.Old, e.Address)
}

// UnalignedEraseError reports a page erase that does not start on a page boundary.
type UnalignedEraseError struct {
	Address  uint32
	PageSize uint32
}

func (e *UnalignedEraseError) Error() string {
	return fmt.Sprintf("memory: erase at 0x%06X is not aligned to %d-byte page", e.Address, e.PageSize)
}
