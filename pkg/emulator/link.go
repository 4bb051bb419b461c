// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Link is the byte transport between the gateway and the host tool.
// ReadAvailable must never block.
type Link interface {
	ReadAvailable() []byte
	Write(p []byte) error
}

// StreamLink adapts a blocking byte stream such as a serial port or a
// WebSocket to Link. Run must be started for reads to arrive.
type StreamLink struct {
	rw io.ReadWriteCloser

	mu  sync.Mutex
	buf []byte

	closeOnce sync.Once
}

// NewStreamLink wraps rw.
func NewStreamLink(rw io.ReadWriteCloser) *StreamLink {
	return &StreamLink{rw: rw}
}

// Run reads from the stream into the internal buffer until the stream
// fails or ctx is done. Cancelling ctx closes the stream to unblock the
// pending read.
func (l *StreamLink) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	chunk := make([]byte, 256)
	for {
		n, err := l.rw.Read(chunk)
		if n > 0 {
			l.mu.Lock()
			l.buf = append(l.buf, chunk[:n]...)
			l.mu.Unlock()
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// ReadAvailable returns and clears everything received so far.
func (l *StreamLink) ReadAvailable() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buf) == 0 {
		return nil
	}
	out := l.buf
	l.buf = nil
	return out
}

// Write sends p in one call.
func (l *StreamLink) Write(p []byte) error {
	_, err := l.rw.Write(p)
	return err
}

// Close closes the underlying stream once.
func (l *StreamLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.rw.Close()
	})
	return err
}
