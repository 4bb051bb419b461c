// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
	"github.com/Thermoquad/hapsim/pkg/hapcan/uart"
	"github.com/Thermoquad/hapsim/pkg/memory"
)

// Gateway is the serial interface module. It is a regular module on the
// bus and also bridges the bus to the host over a Link:
//
//   - network-sized frames from the host are handled locally and
//     broadcast on the bus with the gateway as sender;
//   - shorter frames are system requests for the gateway itself and are
//     answered over the link only;
//   - everything seen on the bus is forwarded to the host.
type Gateway struct {
	*Device
	link   Link
	framer *hapcan.Framer
}

// NewGateway creates the serial interface module talking to the host over link.
func NewGateway(id Identity, link Link, opts ...Option) (*Gateway, error) {
	d, err := NewDevice(id, opts...)
	if err != nil {
		return nil, err
	}
	g := &Gateway{
		Device: d,
		link:   link,
		framer: hapcan.NewFramer(d.cfg.quiet),
	}
	// Module responses reach the host as well as the bus.
	d.respond = g.respondNetwork
	return g, nil
}

// Poll drains the link and dispatches every completed frame.
func (g *Gateway) Poll() {
	data := g.link.ReadAvailable()
	now := g.cfg.now()

	for _, b := range data {
		frame, discarded := g.framer.Feed(b, now)
		if discarded > 0 {
			g.diagnostic(fmt.Errorf("%w: %d bytes discarded by start byte", hapcan.ErrInvalidFrame, discarded), nil)
		}
		if frame != nil {
			g.dispatch(frame)
		}
	}

	raw, err := g.framer.Flush(now)
	if err != nil {
		g.diagnostic(err, raw)
		return
	}
	if raw != nil {
		g.dispatch(raw)
	}
}

// HandleNetworkMessage processes bus traffic as a module. Everything the
// interface does not answer itself, including responses from other modules,
// is forwarded to the host.
func (g *Gateway) HandleNetworkMessage(m hapcan.NetworkMessage) {
	if !g.handle(m) {
		g.writeLink(m)
	}
}

func (g *Gateway) dispatch(raw []byte) {
	g.cfg.stats.LinkFramesIn.Add(1)

	f, err := hapcan.DecodeFrame(raw)
	if err != nil {
		g.diagnostic(err, raw)
		return
	}
	if !f.ChecksumValid {
		g.diagnostic(fmt.Errorf("%w: got 0x%02X want 0x%02X", hapcan.ErrChecksumMismatch,
			f.Checksum, hapcan.Checksum(raw[1:len(raw)-2])), raw)
		return
	}

	if len(raw) == hapcan.NetworkFrameSize {
		m, err := hapcan.Network.DecodeFrame(f)
		if err != nil {
			g.diagnostic(err, raw)
			return
		}
		g.event(EventLinkIn, m.Type(), hapcan.Network.TypeName(m.Type()), raw)
		g.broadcast(m)
		g.Device.HandleNetworkMessage(m)
		return
	}

	m, err := uart.System.DecodeFrame(f)
	if err != nil {
		g.diagnostic(err, raw)
		return
	}
	g.event(EventLinkIn, m.Type(), uart.System.TypeName(m.Type()), raw)
	g.handleSystem(m)
}

// handleSystem answers a request addressed to the gateway itself.
func (g *Gateway) handleSystem(m hapcan.Message) {
	switch msg := m.(type) {
	case uart.ExitOneBootloader, uart.RebootReqNode:
		g.clearPending()

	case uart.EnterProgMode:
		g.reply(uart.EnterProgModeResp{
			BootloaderVersion:  uint8(g.field(memory.BootloaderVersion)),
			BootloaderRevision: uint8(g.field(memory.BootloaderRevision)),
		})

	case uart.HwTypeReq:
		info := g.hwTypeInfo(g.Address())
		g.reply(uart.HwTypeResp{Hardware: info.Hardware, HardwareVersion: info.HardwareVersion, Serial: info.Serial})

	case uart.FwTypeReq:
		info := g.fwTypeInfo(g.Address())
		g.reply(uart.FwTypeResp{
			Hardware:           info.Hardware,
			HardwareVersion:    info.HardwareVersion,
			ApplicationType:    info.ApplicationType,
			ApplicationVersion: info.ApplicationVersion,
			FirmwareVersion:    info.FirmwareVersion,
			BootloaderVersion:  info.BootloaderVersion,
			BootloaderRevision: info.BootloaderRevision,
		})

	case uart.SupplyVoltReq:
		g.reply(uart.SupplyVoltResp{Bus: g.supplyBus, CPU: g.supplyCPU})

	case uart.DescReq:
		for _, c := range g.descChunks(g.Address()) {
			g.reply(uart.DescResp{Text: c.Text})
		}

	case uart.AddressFrame:
		g.pendingAddress = msg.Address
		g.pendingCommand = msg.Command
		g.reply(uart.AddressFrameResp(msg))

	case uart.DataFrame:
		addr := g.Address()
		data, err := g.execute(msg.Data)
		if err != nil {
			g.memoryError(err)
			if !respondable(err) {
				return
			}
		}
		g.reply(uart.DataFrameResp{Data: data})
		g.noteAddress(addr)

	default:
		g.log.Debug("Ignoring system frame", zap.String("type", uart.System.TypeName(m.Type())))
	}
}

// respondNetwork sends a module response to both the host and the bus.
func (g *Gateway) respondNetwork(m hapcan.NetworkMessage) {
	g.writeLink(m)
	g.Device.Send(m)
}

// reply sends a system response to the host only.
func (g *Gateway) reply(m hapcan.Message) {
	g.cfg.stats.Responses.Add(1)
	g.writeRaw(hapcan.Encode(m), m.Type(), uart.System.TypeName(m.Type()))
}

func (g *Gateway) writeLink(m hapcan.NetworkMessage) {
	g.writeRaw(hapcan.Encode(m), m.Type(), hapcan.Network.TypeName(m.Type()))
}

func (g *Gateway) writeRaw(raw []byte, t hapcan.FrameType, name string) {
	if err := g.link.Write(raw); err != nil {
		g.cfg.stats.LinkErrors.Add(1)
		g.log.Warn("Link write failed", zap.String("type", name), zap.Error(err))
		return
	}
	g.cfg.stats.LinkFramesOut.Add(1)
	g.event(EventLinkOut, t, name, raw)
}

func (g *Gateway) event(kind EventKind, t hapcan.FrameType, name string, raw []byte) {
	g.cfg.emit(Event{Kind: kind, Source: g.name, Type: t, Name: name, Raw: raw})
}

// diagnostic records a frame dropped on the link side.
func (g *Gateway) diagnostic(err error, raw []byte) {
	g.cfg.stats.RecordError(err)

	var unknown *hapcan.UnknownFrameTypeError
	level := zap.WarnLevel
	if errors.As(err, &unknown) {
		// The programmer probes for frames it does not expect every module to know.
		level = zap.InfoLevel
	}
	if ce := g.log.Check(level, "Dropping link frame"); ce != nil {
		ce.Write(zap.String("raw", fmt.Sprintf("% X", raw)), zap.Error(err))
	}
	g.cfg.emit(Event{Kind: EventDiagnostic, Source: g.name, Raw: raw, Err: err})
}
