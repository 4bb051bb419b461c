// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package emulator simulates a HAPCAN network: modules with EEPROM and
// flash, a bus that fans messages out between them, and a serial gateway
// that bridges the bus to a host programming tool.
//
// Everything runs on one goroutine. Bus.Run polls every node in turn; the
// only concurrent pieces are the link reader and the statistics counters.
package emulator

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
	"github.com/Thermoquad/hapsim/pkg/memory"
)

// ErrUnsupportedCommand is returned when a DATA frame arrives with a
// pending command other than read, write or erase.
var ErrUnsupportedCommand = errors.New("unsupported memory command")

// Uplink sends messages on the bus on behalf of one node.
type Uplink interface {
	Send(m hapcan.NetworkMessage)
}

// Node is anything that can be attached to a Bus.
type Node interface {
	Name() string
	Attach(up Uplink)
	HandleNetworkMessage(m hapcan.NetworkMessage)
	Poll()
}

// Device is an emulated HAPCAN module. Its identity lives in its memory,
// so programming the EEPROM changes its address just like on hardware.
type Device struct {
	cfg  *config
	log  *zap.Logger
	name string
	mem  memory.Map

	supplyBus     uint16
	supplyCPU     uint16
	factorySerial uint32

	pendingAddress uint32
	pendingCommand hapcan.MemoryCommand

	uplink  Uplink
	respond func(hapcan.NetworkMessage)
}

// NewDevice validates id and creates a module with freshly programmed memory.
func NewDevice(id Identity, opts ...Option) (*Device, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	cfg := newConfig(opts)
	name := id.Name
	if name == "" {
		name = fmt.Sprintf("node-%d-%d", id.NodeID, id.GroupID)
	}

	d := &Device{
		cfg:            cfg,
		log:            cfg.logger.With(zap.String("device", name)),
		name:           name,
		mem:            memory.NewModuleMap(),
		supplyBus:      uint16(id.SupplyVoltageBus),
		supplyCPU:      uint16(id.SupplyVoltageCPU),
		factorySerial:  uint32(id.SerialNumber),
		pendingCommand: hapcan.CmdRead,
	}
	d.respond = d.Send

	if err := d.program(id); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) program(id Identity) error {
	fields := []struct {
		f memory.Field
		v uint64
	}{
		{memory.SerialNumber, uint64(id.SerialNumber)},
		{memory.HardwareType, uint64(id.HardwareType)},
		{memory.HardwareVersion, uint64(id.HardwareVersion)},
		{memory.ApplicationType, uint64(id.ApplicationType)},
		{memory.ApplicationVersion, uint64(id.ApplicationVersion)},
		{memory.FirmwareVersion, uint64(id.FirmwareVersion)},
		{memory.BootloaderVersion, uint64(id.BootloaderVersion)},
		{memory.BootloaderRevision, uint64(id.BootloaderRevision)},
		{memory.NodeID, uint64(id.NodeID)},
		{memory.GroupID, uint64(id.GroupID)},
	}
	for _, f := range fields {
		if err := f.f.SetUint(d.mem, f.v); err != nil {
			return err
		}
	}
	return memory.Description.SetText(d.mem, id.Description)
}

// Name returns the display name of the module.
func (d *Device) Name() string { return d.name }

// Memory returns the module banks.
func (d *Device) Memory() memory.Map { return d.mem }

// Attach is called by the bus when the device is added.
func (d *Device) Attach(up Uplink) { d.uplink = up }

// Poll does nothing for plain modules.
func (d *Device) Poll() {}

// Send broadcasts m on the bus as this module.
func (d *Device) Send(m hapcan.NetworkMessage) {
	d.cfg.stats.Responses.Add(1)
	d.broadcast(m)
}

func (d *Device) broadcast(m hapcan.NetworkMessage) {
	if d.uplink == nil {
		d.log.Warn("Device not attached to a bus, dropping message",
			zap.String("type", hapcan.Network.TypeName(m.Type())))
		return
	}
	d.uplink.Send(m)
}

// field reads an identity field. Identity fields always lie inside the
// module map, so the read cannot fail.
func (d *Device) field(f memory.Field) uint64 {
	v, _ := f.Uint(d.mem)
	return v
}

// Address returns the node and group currently stored in EEPROM.
func (d *Device) Address() hapcan.Address {
	return hapcan.Address{Node: uint8(d.field(memory.NodeID)), Group: uint8(d.field(memory.GroupID))}
}

// SetAddress stores a new node and group in EEPROM.
func (d *Device) SetAddress(a hapcan.Address) error {
	if err := memory.NodeID.SetUint(d.mem, uint64(a.Node)); err != nil {
		return err
	}
	return memory.GroupID.SetUint(d.mem, uint64(a.Group))
}

// SerialNumber returns the serial number stored in flash.
func (d *Device) SerialNumber() uint32 {
	return uint32(d.field(memory.SerialNumber))
}

// FactorySerial returns the serial number the module was built with. It
// stays the same when the host erases or reprograms the flash copy.
func (d *Device) FactorySerial() uint32 {
	return d.factorySerial
}

// Description returns the 16 description bytes, NUL padded.
func (d *Device) Description() [hapcan.DescriptionSize]byte {
	var out [hapcan.DescriptionSize]byte
	b, _ := memory.Description.Bytes(d.mem)
	copy(out[:], b)
	return out
}

// Pending returns the address and command set by the last ADDRESS frame.
func (d *Device) Pending() (uint32, hapcan.MemoryCommand) {
	return d.pendingAddress, d.pendingCommand
}

func (d *Device) clearPending() {
	d.pendingAddress = 0
	d.pendingCommand = hapcan.CmdRead
}

func (d *Device) hwTypeInfo(a hapcan.Address) hapcan.HwTypeInfo {
	return hapcan.HwTypeInfo{
		Sender:          a,
		Hardware:        uint16(d.field(memory.HardwareType)),
		HardwareVersion: uint8(d.field(memory.HardwareVersion)),
		Serial:          d.SerialNumber(),
	}
}

func (d *Device) fwTypeInfo(a hapcan.Address) hapcan.FwTypeInfo {
	return hapcan.FwTypeInfo{
		Sender:             a,
		Hardware:           uint16(d.field(memory.HardwareType)),
		HardwareVersion:    uint8(d.field(memory.HardwareVersion)),
		ApplicationType:    uint8(d.field(memory.ApplicationType)),
		ApplicationVersion: uint8(d.field(memory.ApplicationVersion)),
		FirmwareVersion:    uint8(d.field(memory.FirmwareVersion)),
		BootloaderVersion:  uint8(d.field(memory.BootloaderVersion)),
		BootloaderRevision: uint8(d.field(memory.BootloaderRevision)),
	}
}

func (d *Device) supplyVoltInfo(a hapcan.Address) hapcan.SupplyVoltInfo {
	return hapcan.SupplyVoltInfo{Sender: a, Bus: d.supplyBus, CPU: d.supplyCPU}
}

// descChunks splits the description into the two halves sent on the wire.
func (d *Device) descChunks(a hapcan.Address) [2]hapcan.DescChunk {
	desc := d.Description()
	var out [2]hapcan.DescChunk
	for i := range out {
		out[i].Sender = a
		copy(out[i].Text[:], desc[i*8:])
	}
	return out
}

// HandleNetworkMessage processes a message received from the bus.
// Messages not addressed to this module are ignored.
func (d *Device) HandleNetworkMessage(m hapcan.NetworkMessage) {
	d.handle(m)
}

// handle reports whether m was addressed to the module and processed by
// its system layer. Messages passed to the application handler count as
// not handled.
func (d *Device) handle(m hapcan.NetworkMessage) bool {
	// Captured before any command runs: a write to the node/group bytes
	// must not change who the response goes to.
	addr := d.Address()
	if !m.IsFor(addr) {
		return false
	}

	switch msg := m.(type) {
	case hapcan.ExitAllBootloader, hapcan.ExitOneBootloader, hapcan.RebootReqGroup, hapcan.RebootReqNode:
		d.clearPending()

	case hapcan.AddressFrame:
		d.pendingAddress = msg.Address
		d.pendingCommand = msg.Command
		d.respond(hapcan.AddressFrameResp(msg))

	case hapcan.DataFrame:
		data, err := d.execute(msg.Data)
		if err != nil {
			d.memoryError(err)
			if !respondable(err) {
				return true
			}
		}
		d.respond(hapcan.DataFrameResp{Target: addr, Data: data})
		d.noteAddress(addr)

	case hapcan.EnterProgMode:
		d.respond(hapcan.EnterProgModeResp{
			Sender:             addr,
			BootloaderVersion:  uint8(d.field(memory.BootloaderVersion)),
			BootloaderRevision: uint8(d.field(memory.BootloaderRevision)),
		})

	case hapcan.HwTypeReqGroup:
		d.respond(hapcan.HwTypeRespGroup(d.hwTypeInfo(addr)))
	case hapcan.HwTypeReqNode:
		d.respond(hapcan.HwTypeRespNode(d.hwTypeInfo(addr)))

	case hapcan.FwTypeReqGroup:
		d.respond(hapcan.FwTypeRespGroup(d.fwTypeInfo(addr)))
	case hapcan.FwTypeReqNode:
		d.respond(hapcan.FwTypeRespNode(d.fwTypeInfo(addr)))

	case hapcan.SupplyVoltReqGroup:
		d.respond(hapcan.SupplyVoltRespGroup(d.supplyVoltInfo(addr)))
	case hapcan.SupplyVoltReqNode:
		d.respond(hapcan.SupplyVoltRespNode(d.supplyVoltInfo(addr)))

	case hapcan.DescReqGroup:
		for _, c := range d.descChunks(addr) {
			d.respond(hapcan.DescRespGroup(c))
		}
	case hapcan.DescReqNode:
		for _, c := range d.descChunks(addr) {
			d.respond(hapcan.DescRespNode(c))
		}

	case hapcan.SetDefaultNodeAndGroup:
		next := DefaultAddress(d.SerialNumber())
		if err := d.SetAddress(next); err != nil {
			d.memoryError(err)
			return true
		}
		d.log.Info("Address reset to default",
			zap.String("from", hapcan.FormatAddress(addr)),
			zap.String("to", hapcan.FormatAddress(next)))
		d.respond(hapcan.SetDefaultResp{Address: next})
		d.noteAddress(addr)

	default:
		if d.cfg.app != nil {
			d.cfg.app(d, m)
		}
		return false
	}
	return true
}

// noteAddress emits EventAddress when the last command moved the module
// away from prev.
func (d *Device) noteAddress(prev hapcan.Address) {
	if cur := d.Address(); cur != prev {
		d.cfg.emit(Event{Kind: EventAddress, Source: d.name, Address: cur})
	}
}

func (d *Device) memoryError(err error) {
	d.cfg.stats.RecordError(err)
	d.log.Warn("Memory command failed",
		zap.Uint32("address", d.pendingAddress),
		zap.Stringer("command", d.pendingCommand),
		zap.Error(err))
	d.cfg.emit(Event{Kind: EventDiagnostic, Source: d.name, Err: err})
}
