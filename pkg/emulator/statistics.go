// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
	"github.com/Thermoquad/hapsim/pkg/memory"
)

// Statistics tracks emulator traffic and error counts. Counters are
// updated by the poll loop and may be read concurrently by the monitor and
// the metrics endpoint.
type Statistics struct {
	started atomic.Int64 // unix nanoseconds

	// Traffic
	LinkFramesIn  atomic.Uint64
	LinkFramesOut atomic.Uint64
	Broadcasts    atomic.Uint64
	Deliveries    atomic.Uint64
	Responses     atomic.Uint64

	// Errors
	InvalidFrames  atomic.Uint64
	ChecksumErrors atomic.Uint64
	UnknownTypes   atomic.Uint64
	MemoryErrors   atomic.Uint64
	LinkErrors     atomic.Uint64
}

// StatisticsSnapshot is a point-in-time copy of Statistics with rates.
type StatisticsSnapshot struct {
	Elapsed time.Duration

	LinkFramesIn   uint64
	LinkFramesOut  uint64
	Broadcasts     uint64
	Deliveries     uint64
	Responses      uint64
	InvalidFrames  uint64
	ChecksumErrors uint64
	UnknownTypes   uint64
	MemoryErrors   uint64
	LinkErrors     uint64

	// Rates (calculated)
	FrameRate float64 // link frames/sec, both directions
	ErrorRate float64 // errors/sec
}

// Errors returns the total of all error counters.
func (s StatisticsSnapshot) Errors() uint64 {
	return s.InvalidFrames + s.ChecksumErrors + s.UnknownTypes + s.MemoryErrors + s.LinkErrors
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	s := &Statistics{}
	s.started.Store(time.Now().UnixNano())
	return s
}

// StartTime returns when counting started or was last reset.
func (s *Statistics) StartTime() time.Time {
	return time.Unix(0, s.started.Load())
}

// RecordError bumps the counter matching err's class.
func (s *Statistics) RecordError(err error) {
	var unknown *hapcan.UnknownFrameTypeError
	var oor *memory.OutOfRangeError
	var prog *memory.ProgramError
	var unaligned *memory.UnalignedEraseError

	switch {
	case errors.Is(err, hapcan.ErrChecksumMismatch):
		s.ChecksumErrors.Add(1)
	case errors.As(err, &unknown):
		s.UnknownTypes.Add(1)
	case errors.Is(err, hapcan.ErrInvalidFrame):
		s.InvalidFrames.Add(1)
	case errors.As(err, &oor), errors.As(err, &prog), errors.As(err, &unaligned),
		errors.Is(err, memory.ErrEraseUnsupported), errors.Is(err, ErrUnsupportedCommand):
		s.MemoryErrors.Add(1)
	default:
		s.LinkErrors.Add(1)
	}
}

// Snapshot copies the counters and calculates rates.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	snap := StatisticsSnapshot{
		Elapsed:        time.Since(s.StartTime()),
		LinkFramesIn:   s.LinkFramesIn.Load(),
		LinkFramesOut:  s.LinkFramesOut.Load(),
		Broadcasts:     s.Broadcasts.Load(),
		Deliveries:     s.Deliveries.Load(),
		Responses:      s.Responses.Load(),
		InvalidFrames:  s.InvalidFrames.Load(),
		ChecksumErrors: s.ChecksumErrors.Load(),
		UnknownTypes:   s.UnknownTypes.Load(),
		MemoryErrors:   s.MemoryErrors.Load(),
		LinkErrors:     s.LinkErrors.Load(),
	}
	if secs := snap.Elapsed.Seconds(); secs > 0 {
		snap.FrameRate = float64(snap.LinkFramesIn+snap.LinkFramesOut) / secs
		snap.ErrorRate = float64(snap.Errors()) / secs
	}
	return snap
}

// Reset zeroes every counter and restarts the clock. It is safe to call
// while the poll loop runs; a concurrent snapshot may mix old and new
// counters.
func (s *Statistics) Reset() {
	for _, c := range []*atomic.Uint64{
		&s.LinkFramesIn, &s.LinkFramesOut, &s.Broadcasts, &s.Deliveries, &s.Responses,
		&s.InvalidFrames, &s.ChecksumErrors, &s.UnknownTypes, &s.MemoryErrors, &s.LinkErrors,
	} {
		c.Store(0)
	}
	s.started.Store(time.Now().UnixNano())
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", snap.Elapsed.Seconds())
	result += fmt.Sprintf("Link Frames In:  %8d\n", snap.LinkFramesIn)
	result += fmt.Sprintf("Link Frames Out: %8d\n", snap.LinkFramesOut)
	result += fmt.Sprintf("Broadcasts:      %8d (%d deliveries)\n", snap.Broadcasts, snap.Deliveries)
	result += fmt.Sprintf("Responses:       %8d\n", snap.Responses)

	if snap.InvalidFrames > 0 {
		result += fmt.Sprintf("Invalid Frames:  %8d\n", snap.InvalidFrames)
	}
	if snap.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", snap.ChecksumErrors)
	}
	if snap.UnknownTypes > 0 {
		result += fmt.Sprintf("Unknown Types:   %8d\n", snap.UnknownTypes)
	}
	if snap.MemoryErrors > 0 {
		result += fmt.Sprintf("Memory Errors:   %8d\n", snap.MemoryErrors)
	}
	if snap.LinkErrors > 0 {
		result += fmt.Sprintf("Link Errors:     %8d\n", snap.LinkErrors)
	}

	result += fmt.Sprintf("\nFrame Rate:      %.2f frames/sec\n", snap.FrameRate)
	result += fmt.Sprintf("Error Rate:      %.2f errors/sec\n", snap.ErrorRate)

	return result
}
