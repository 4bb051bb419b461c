// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hapcan

import (
	"bytes"
	"encoding/binary"
)

// NetworkMessage is a message that travels on the CAN side and can be
// addressed to a subset of modules.
type NetworkMessage interface {
	Message
	IsFor(a Address) bool
}

func fill(n int) []byte {
	return bytes.Repeat([]byte{Filler}, n)
}

// PutAddress24 stores the low 24 bits of addr big-endian into b[0:3].
func PutAddress24(b []byte, addr uint32) {
	b[0] = byte(addr >> 16)
	b[1] = byte(addr >> 8)
	b[2] = byte(addr)
}

// Address24 reads a big-endian 24-bit address from b[0:3].
func Address24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// TrimText strips trailing NUL and filler padding from an ASCII field.
func TrimText(b []byte) string {
	return string(bytes.TrimRight(b, "\x00\xff"))
}

// NodeRequest is the payload shared by node-form system requests:
// sender node/group, two filler bytes, then the target node/group.
type NodeRequest struct {
	Sender Address
	Target Address
}

func (r NodeRequest) encode() []byte {
	p := fill(NetworkPayloadSize)
	p[0], p[1] = r.Sender.Node, r.Sender.Group
	p[4], p[5] = r.Target.Node, r.Target.Group
	return p
}

func decodeNodeRequest(p []byte) NodeRequest {
	return NodeRequest{
		Sender: Address{p[0], p[1]},
		Target: Address{p[4], p[5]},
	}
}

// GroupRequest is the payload shared by group-form system requests. A
// zero Group addresses every module.
type GroupRequest struct {
	Sender Address
	Group  uint8
}

func (r GroupRequest) encode() []byte {
	p := fill(NetworkPayloadSize)
	p[0], p[1] = r.Sender.Node, r.Sender.Group
	p[4], p[5] = 0x00, r.Group
	return p
}

func (r GroupRequest) matches(a Address) bool {
	return r.Group == AllGroups || r.Group == a.Group
}

func decodeGroupRequest(p []byte) GroupRequest {
	return GroupRequest{Sender: Address{p[0], p[1]}, Group: p[5]}
}

// HwTypeInfo is the hardware identification returned by a module.
type HwTypeInfo struct {
	Sender          Address
	Hardware        uint16
	HardwareVersion uint8
	Serial          uint32
}

func (r HwTypeInfo) encode() []byte {
	p := fill(NetworkPayloadSize)
	p[0], p[1] = r.Sender.Node, r.Sender.Group
	binary.BigEndian.PutUint16(p[2:], r.Hardware)
	p[4] = r.HardwareVersion
	binary.BigEndian.PutUint32(p[6:], r.Serial)
	return p
}

func decodeHwTypeInfo(p []byte) HwTypeInfo {
	return HwTypeInfo{
		Sender:          Address{p[0], p[1]},
		Hardware:        binary.BigEndian.Uint16(p[2:]),
		HardwareVersion: p[4],
		Serial:          binary.BigEndian.Uint32(p[6:]),
	}
}

// FwTypeInfo is the firmware identification returned by a module.
type FwTypeInfo struct {
	Sender             Address
	Hardware           uint16
	HardwareVersion    uint8
	ApplicationType    uint8
	ApplicationVersion uint8
	FirmwareVersion    uint8
	BootloaderVersion  uint8
	BootloaderRevision uint8
}

func (r FwTypeInfo) encode() []byte {
	p := make([]byte, NetworkPayloadSize)
	p[0], p[1] = r.Sender.Node, r.Sender.Group
	binary.BigEndian.PutUint16(p[2:], r.Hardware)
	p[4] = r.HardwareVersion
	p[5] = r.ApplicationType
	p[6] = r.ApplicationVersion
	p[7] = r.FirmwareVersion
	p[8] = r.BootloaderVersion
	p[9] = r.BootloaderRevision
	return p
}

func decodeFwTypeInfo(p []byte) FwTypeInfo {
	return FwTypeInfo{
		Sender:             Address{p[0], p[1]},
		Hardware:           binary.BigEndian.Uint16(p[2:]),
		HardwareVersion:    p[4],
		ApplicationType:    p[5],
		ApplicationVersion: p[6],
		FirmwareVersion:    p[7],
		BootloaderVersion:  p[8],
		BootloaderRevision: p[9],
	}
}

// SupplyVoltInfo carries raw ADC readings of the bus and CPU supply.
type SupplyVoltInfo struct {
	Sender Address
	Bus    uint16
	CPU    uint16
}

func (r SupplyVoltInfo) encode() []byte {
	p := fill(NetworkPayloadSize)
	p[0], p[1] = r.Sender.Node, r.Sender.Group
	binary.BigEndian.PutUint16(p[2:], r.Bus)
	binary.BigEndian.PutUint16(p[4:], r.CPU)
	return p
}

func decodeSupplyVoltInfo(p []byte) SupplyVoltInfo {
	return SupplyVoltInfo{
		Sender: Address{p[0], p[1]},
		Bus:    binary.BigEndian.Uint16(p[2:]),
		CPU:    binary.BigEndian.Uint16(p[4:]),
	}
}

// DescChunk is one half of a module description. Descriptions are 16
// characters long and always sent as two chunks.
type DescChunk struct {
	Sender Address
	Text   [8]byte
}

// String returns the chunk text without padding.
func (r DescChunk) String() string {
	return TrimText(r.Text[:])
}

func (r DescChunk) encode() []byte {
	p := make([]byte, NetworkPayloadSize)
	p[0], p[1] = r.Sender.Node, r.Sender.Group
	copy(p[2:], r.Text[:])
	return p
}

func decodeDescChunk(p []byte) DescChunk {
	r := DescChunk{Sender: Address{p[0], p[1]}}
	copy(r.Text[:], p[2:])
	return r
}
