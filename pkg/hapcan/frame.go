// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hapcan

import "fmt"

// Frame is a decoded wire frame. Payload aliases no caller memory.
type Frame struct {
	Type          FrameType
	Payload       []byte
	Checksum      byte
	ChecksumValid bool
}

// Len returns the encoded size of the frame in bytes.
func (f *Frame) Len() int {
	return MinFrameSize + len(f.Payload)
}

// Bytes re-encodes the frame with a freshly computed checksum.
func (f *Frame) Bytes() []byte {
	return EncodeFrame(f.Type, f.Payload)
}

// ExtractType reads the frame type from bytes 1 and 2 of raw.
// raw must hold at least three bytes.
func ExtractType(raw []byte) FrameType {
	return FrameType(raw[1])<<8 | FrameType(raw[2])
}

// DecodeFrame validates the framing of raw and splits it into its parts.
//
// A checksum mismatch is not an error: it is reported through
// Frame.ChecksumValid so the caller decides what to do with the frame.
func DecodeFrame(raw []byte) (*Frame, error) {
	if len(raw) < MinFrameSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidFrame, len(raw), MinFrameSize)
	}
	if raw[0] != StartByte {
		return nil, fmt.Errorf("%w: start byte 0x%02X", ErrInvalidFrame, raw[0])
	}
	if raw[len(raw)-1] != EndByte {
		return nil, fmt.Errorf("%w: end byte 0x%02X", ErrInvalidFrame, raw[len(raw)-1])
	}

	body := raw[1 : len(raw)-2]
	checksum := raw[len(raw)-2]

	payload := make([]byte, len(body)-2)
	copy(payload, body[2:])

	return &Frame{
		Type:          ExtractType(raw),
		Payload:       payload,
		Checksum:      checksum,
		ChecksumValid: Checksum(body) == checksum,
	}, nil
}

// EncodeFrame builds the wire bytes for a frame of the given type and payload.
func EncodeFrame(t FrameType, payload []byte) []byte {
	out := make([]byte, 0, MinFrameSize+len(payload))
	out = append(out, StartByte, byte(t>>8), byte(t))
	out = append(out, payload...)
	out = append(out, Checksum(out[1:]), EndByte)
	return out
}

// Encode builds the wire bytes for a message.
func Encode(m Message) []byte {
	return EncodeFrame(m.Type(), m.Payload())
}
