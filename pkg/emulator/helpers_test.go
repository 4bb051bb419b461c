package emulator

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
)

// recorder is a bus node that keeps every message it receives.
type recorder struct {
	name  string
	up    Uplink
	got   []hapcan.NetworkMessage
	polls int
}

func (r *recorder) Name() string                                 { return r.name }
func (r *recorder) Attach(up Uplink)                             { r.up = up }
func (r *recorder) HandleNetworkMessage(m hapcan.NetworkMessage) { r.got = append(r.got, m) }
func (r *recorder) Poll()                                        { r.polls++ }

// fakeLink is an in-memory Link.
type fakeLink struct {
	in  []byte
	out [][]byte
	err error
}

func (l *fakeLink) ReadAvailable() []byte {
	b := l.in
	l.in = nil
	return b
}

func (l *fakeLink) Write(p []byte) error {
	if l.err != nil {
		return l.err
	}
	l.out = append(l.out, bytes.Clone(p))
	return nil
}

func (l *fakeLink) take() [][]byte {
	out := l.out
	l.out = nil
	return out
}

// fakeClock drives the gateway framer.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errLinkDown = errors.New("link down")

var hostAddr = hapcan.Address{Node: 0xFE, Group: 0xFD}

func testIdentity(node, group int, serial int64) Identity {
	id := DefaultIdentity()
	id.NodeID = node
	id.GroupID = group
	id.SerialNumber = serial
	id.ApplicationType = 2
	id.Description = "Hapcan Emulator"
	id.SupplyVoltageBus = 0xC4C0
	id.SupplyVoltageCPU = 0x7FF0
	return id
}

func newTestDevice(t *testing.T, id Identity, opts ...Option) *Device {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	d, err := NewDevice(id, opts...)
	require.NoError(t, err)
	return d
}

// newTestNetwork attaches a device and a recorder to a fresh bus. The
// recorder sees everything the device sends.
func newTestNetwork(t *testing.T, id Identity, opts ...Option) (*Bus, *Device, *recorder) {
	t.Helper()
	bus := NewBus(opts...)
	d := newTestDevice(t, id, opts...)
	rec := &recorder{name: "host"}
	bus.Attach(rec)
	bus.Attach(d)
	return bus, d, rec
}

// decodeAll decodes raw frames with the network registry.
func decodeAll(t *testing.T, frames [][]byte) []hapcan.NetworkMessage {
	t.Helper()
	out := make([]hapcan.NetworkMessage, 0, len(frames))
	for _, raw := range frames {
		m, err := hapcan.Network.Decode(raw)
		require.NoError(t, err, "% X", raw)
		out = append(out, m)
	}
	return out
}
