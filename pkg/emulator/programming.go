// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
	"github.com/Thermoquad/hapsim/pkg/memory"
)

// execute runs the pending memory command with the bytes of a DATA frame
// and returns the eight bytes stored at the pending address afterwards.
//
// A refused flash program still returns the read-back together with the
// error, so the programmer's verify step sees what the memory holds.
func (d *Device) execute(data [hapcan.DataSize]byte) ([hapcan.DataSize]byte, error) {
	var out [hapcan.DataSize]byte
	addr := d.pendingAddress

	bank, err := d.mem.Find(addr)
	if err != nil {
		return out, err
	}

	var cmdErr error
	switch d.pendingCommand {
	case hapcan.CmdRead:
	case hapcan.CmdWrite:
		cmdErr = bank.Write(addr, data[:])
	case hapcan.CmdErase:
		cmdErr = bank.ErasePage(addr)
	default:
		return out, fmt.Errorf("%w: 0x%02X", ErrUnsupportedCommand, uint8(d.pendingCommand))
	}
	if cmdErr != nil && !respondable(cmdErr) {
		return out, cmdErr
	}

	b, err := bank.Read(addr, hapcan.DataSize)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, cmdErr
}

// respondable reports whether a DATA frame that failed with err still gets
// a response.
func respondable(err error) bool {
	var pe *memory.ProgramError
	return err == nil || errors.As(err, &pe)
}
