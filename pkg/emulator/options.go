// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
)

// ApplicationHandler receives targeted messages a module does not handle
// itself. The base module has none.
type ApplicationHandler func(d *Device, m hapcan.NetworkMessage)

// Option configures a Device, Gateway or Bus.
type Option func(*config)

type config struct {
	logger *zap.Logger
	stats  *Statistics
	tap    Tap
	app    ApplicationHandler
	quiet  time.Duration
	now    func() time.Time
}

// Default quiet interval after which buffered link bytes form a frame.
const DefaultQuietInterval = 20 * time.Millisecond

func defaultConfig() *config {
	return &config{
		logger: zap.NewNop(),
		stats:  NewStatistics(),
		quiet:  DefaultQuietInterval,
		now:    time.Now,
	}
}

func newConfig(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStatistics shares a statistics tracker between components.
func WithStatistics(s *Statistics) Option {
	return func(c *config) {
		if s != nil {
			c.stats = s
		}
	}
}

// WithTap installs an event observer.
func WithTap(t Tap) Option {
	return func(c *config) {
		c.tap = t
	}
}

// WithApplicationHandler installs the handler for application messages.
func WithApplicationHandler(h ApplicationHandler) Option {
	return func(c *config) {
		c.app = h
	}
}

// WithQuietInterval sets the gateway frame completion interval.
func WithQuietInterval(d time.Duration) Option {
	return func(c *config) {
		c.quiet = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

func (c *config) emit(e Event) {
	if c.tap == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = c.now()
	}
	c.tap(e)
}
