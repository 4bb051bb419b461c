// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
)

// DefaultPollInterval is the pause between two ticks of Bus.Run.
const DefaultPollInterval = time.Millisecond

// Bus connects nodes. Every broadcast is delivered synchronously to every
// other node in attach order. A node that answers from inside
// HandleNetworkMessage broadcasts again before the outer delivery loop
// continues; the nesting depth is bounded by the number of nodes because
// responses are never answered.
type Bus struct {
	cfg   *config
	log   *zap.Logger
	nodes []Node
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	cfg := newConfig(opts)
	return &Bus{cfg: cfg, log: cfg.logger}
}

type uplink struct {
	bus  *Bus
	node Node
}

func (u uplink) Send(m hapcan.NetworkMessage) {
	u.bus.Broadcast(m, u.node)
}

// Attach adds n to the bus. The bus keeps n for its whole lifetime.
func (b *Bus) Attach(n Node) {
	b.nodes = append(b.nodes, n)
	n.Attach(uplink{bus: b, node: n})
	b.log.Debug("Node attached", zap.String("node", n.Name()), zap.Int("nodes", len(b.nodes)))
}

// Nodes returns the attached nodes in attach order.
func (b *Bus) Nodes() []Node {
	return b.nodes
}

// Broadcast delivers m to every node except from. from may be nil for
// messages injected from outside the network.
func (b *Bus) Broadcast(m hapcan.NetworkMessage, from Node) {
	b.cfg.stats.Broadcasts.Add(1)

	source := "bus"
	if from != nil {
		source = from.Name()
	}
	if b.cfg.tap != nil {
		b.cfg.emit(Event{
			Kind:   EventBus,
			Source: source,
			Type:   m.Type(),
			Name:   hapcan.Network.TypeName(m.Type()),
			Raw:    hapcan.Encode(m),
		})
	}
	if ce := b.log.Check(zap.DebugLevel, "Broadcast"); ce != nil {
		ce.Write(zap.String("from", source), zap.String("type", hapcan.Network.TypeName(m.Type())))
	}

	for _, n := range b.nodes {
		if n == from {
			continue
		}
		b.cfg.stats.Deliveries.Add(1)
		n.HandleNetworkMessage(m)
	}
}

// Tick polls every node once.
func (b *Bus) Tick() {
	for _, n := range b.nodes {
		n.Poll()
	}
}

// Run ticks the bus every interval until ctx is done.
func (b *Bus) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.log.Info("Bus running", zap.Int("nodes", len(b.nodes)), zap.Duration("poll", interval))
	for {
		b.Tick()
		select {
		case <-ctx.Done():
			b.log.Info("Bus stopped")
			return nil
		case <-ticker.C:
		}
	}
}
