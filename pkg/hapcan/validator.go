// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hapcan

import "fmt"

// AnomalyType represents different kinds of frame anomalies
type AnomalyType int

const (
	AnomalyFraming AnomalyType = iota
	AnomalyChecksum
	AnomalyUnknownType
	AnomalyLengthMismatch
	AnomalyInvalidCommand
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyFraming:
		return "framing"
	case AnomalyChecksum:
		return "checksum"
	case AnomalyUnknownType:
		return "unknown type"
	case AnomalyLengthMismatch:
		return "length mismatch"
	case AnomalyInvalidCommand:
		return "invalid command"
	}
	return "unknown"
}

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks raw against the registry r and reports every anomaly
// it finds. An empty result means the frame decodes cleanly.
func ValidateFrame[M Message](r *Registry[M], raw []byte) []ValidationError {
	f, err := DecodeFrame(raw)
	if err != nil {
		return []ValidationError{{
			Type:    AnomalyFraming,
			Message: err.Error(),
			Details: map[string]interface{}{"length": len(raw)},
		}}
	}

	errors := []ValidationError{}

	if !f.ChecksumValid {
		errors = append(errors, ValidationError{
			Type:    AnomalyChecksum,
			Message: fmt.Sprintf("Checksum 0x%02X does not match computed 0x%02X", f.Checksum, Checksum(raw[1:len(raw)-2])),
			Details: map[string]interface{}{"received": f.Checksum, "computed": Checksum(raw[1 : len(raw)-2])},
		})
	}

	e, ok := r.Lookup(f.Type)
	if !ok {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownType,
			Message: fmt.Sprintf("Frame type 0x%04X is not in the %s catalog", uint16(f.Type), r.Name()),
			Details: map[string]interface{}{"type": f.Type},
		})
		return errors
	}

	if len(f.Payload) != e.PayloadSize {
		errors = append(errors, ValidationError{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("%s payload is %d bytes (expected %d)", e.Name, len(f.Payload), e.PayloadSize),
			Details: map[string]interface{}{"length": len(f.Payload), "expected": e.PayloadSize},
		})
		return errors
	}

	// Both catalogs place the command byte three bytes before the end of
	// the payload.
	if (f.Type == TypeAddressFrame || f.Type == TypeAddressFrameResp) && len(f.Payload) >= 3 {
		cmd := MemoryCommand(f.Payload[len(f.Payload)-3])
		if cmd != CmdRead && cmd != CmdWrite && cmd != CmdErase {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidCommand,
				Message: fmt.Sprintf("Memory command 0x%02X is not READ, WRITE or ERASE", uint8(cmd)),
				Details: map[string]interface{}{"command": uint8(cmd)},
			})
		}
	}

	return errors
}
