// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hapcan

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFrame is returned for byte sequences that are not a frame:
	// too short, wrong start/end byte, or a payload length that does not
	// match the frame type.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrChecksumMismatch reports a structurally valid frame whose checksum
	// byte disagrees with its content. Decoding itself never fails with it.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// UnknownFrameTypeError is returned when a registry has no entry for a frame type.
type UnknownFrameTypeError struct {
	Registry string
	Type     FrameType
}

func (e *UnknownFrameTypeError) Error() string {
	if e.Registry == "" {
		return fmt.Sprintf("unknown frame type 0x%04X", uint16(e.Type))
	}
	return fmt.Sprintf("unknown %s frame type 0x%04X", e.Registry, uint16(e.Type))
}
