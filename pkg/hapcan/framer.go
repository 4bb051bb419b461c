// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hapcan

import (
	"fmt"
	"time"
)

// Framer splits a raw byte stream into frames.
//
// The stream carries no length prefix and the end byte may appear inside a
// payload, so a frame is only considered complete once the link has been
// quiet for the configured interval. A start byte always begins a new
// frame. A start byte inside a payload therefore truncates that frame; the
// HAPCAN programmer does not escape payload bytes, so this cannot be fixed
// at the framing layer.
type Framer struct {
	quiet    time.Duration
	buf      []byte
	lastByte time.Time
}

// NewFramer creates a framer that completes a frame after quiet has
// elapsed since the last received byte.
func NewFramer(quiet time.Duration) *Framer {
	return &Framer{
		quiet: quiet,
		buf:   make([]byte, 0, NetworkFrameSize),
	}
}

// Feed adds one byte received at now.
//
// When b is a start byte the partial buffer is discarded. If that buffer
// already held a complete frame with a valid checksum it is returned
// instead of being dropped, so back-to-back frames are not lost when the
// sender does not pause between them. discarded counts bytes thrown away.
func (f *Framer) Feed(b byte, now time.Time) (frame []byte, discarded int) {
	if b == StartByte && len(f.buf) > 0 {
		if complete(f.buf) {
			frame = f.take()
		} else {
			discarded = len(f.buf)
			f.buf = f.buf[:0]
		}
	}
	f.buf = append(f.buf, b)
	f.lastByte = now
	return frame, discarded
}

// Flush returns the buffered frame once the quiet interval has passed.
// It returns nil while the frame may still be growing. A buffer that does
// not start with the start byte and end with the end byte is returned
// together with ErrInvalidFrame and discarded.
func (f *Framer) Flush(now time.Time) ([]byte, error) {
	if len(f.buf) == 0 || now.Sub(f.lastByte) < f.quiet {
		return nil, nil
	}
	raw := f.take()
	if raw[0] != StartByte || raw[len(raw)-1] != EndByte || len(raw) < MinFrameSize {
		return raw, fmt.Errorf("%w: % X", ErrInvalidFrame, raw)
	}
	return raw, nil
}

// Buffered returns the number of bytes waiting for the quiet interval.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

func (f *Framer) take() []byte {
	out := make([]byte, len(f.buf))
	copy(out, f.buf)
	f.buf = f.buf[:0]
	return out
}

func complete(buf []byte) bool {
	n := len(buf)
	if n < MinFrameSize || buf[0] != StartByte || buf[n-1] != EndByte {
		return false
	}
	return Checksum(buf[1:n-2]) == buf[n-2]
}
