// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package uart holds the system messages exchanged between the HAPCAN
// programmer and the serial interface module itself.
//
// These frames never reach the CAN bus. They carry no node/group fields:
// requests have an empty payload and responses carry eight bytes.
package uart

import (
	"bytes"
	"encoding/binary"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
)

func fill(n int) []byte {
	return bytes.Repeat([]byte{hapcan.Filler}, n)
}

// ============================================================
// Programming
// ============================================================

// ExitOneBootloader returns the interface to normal operation.
type ExitOneBootloader struct{}

func (ExitOneBootloader) Type() hapcan.FrameType { return hapcan.TypeExitOneBootloader }
func (ExitOneBootloader) Payload() []byte        { return fill(hapcan.UARTPayloadSize) }

// AddressFrame selects the interface memory address for the next DataFrame.
type AddressFrame struct {
	Address uint32
	Command hapcan.MemoryCommand
}

func (AddressFrame) Type() hapcan.FrameType { return hapcan.TypeAddressFrame }
func (m AddressFrame) Payload() []byte      { return encodeAddressFrame(m) }

type AddressFrameResp AddressFrame

func (AddressFrameResp) Type() hapcan.FrameType { return hapcan.TypeAddressFrameResp }
func (m AddressFrameResp) Payload() []byte      { return encodeAddressFrame(AddressFrame(m)) }

func encodeAddressFrame(m AddressFrame) []byte {
	p := fill(hapcan.UARTPayloadSize)
	hapcan.PutAddress24(p, m.Address)
	p[5] = byte(m.Command)
	return p
}

func decodeAddressFrame(p []byte) AddressFrame {
	return AddressFrame{Address: hapcan.Address24(p), Command: hapcan.MemoryCommand(p[5])}
}

// DataFrame carries eight bytes for the pending memory command.
type DataFrame struct {
	Data [hapcan.DataSize]byte
}

func (DataFrame) Type() hapcan.FrameType { return hapcan.TypeDataFrame }
func (m DataFrame) Payload() []byte      { return bytes.Clone(m.Data[:]) }

type DataFrameResp DataFrame

func (DataFrameResp) Type() hapcan.FrameType { return hapcan.TypeDataFrameResp }
func (m DataFrameResp) Payload() []byte      { return bytes.Clone(m.Data[:]) }

// ============================================================
// System requests
// ============================================================

type EnterProgMode struct{}

func (EnterProgMode) Type() hapcan.FrameType { return hapcan.TypeEnterProgMode }
func (EnterProgMode) Payload() []byte        { return nil }

type RebootReqNode struct{}

func (RebootReqNode) Type() hapcan.FrameType { return hapcan.TypeRebootReqNode }
func (RebootReqNode) Payload() []byte        { return nil }

type HwTypeReq struct{}

func (HwTypeReq) Type() hapcan.FrameType { return hapcan.TypeHwTypeReqNode }
func (HwTypeReq) Payload() []byte        { return nil }

type FwTypeReq struct{}

func (FwTypeReq) Type() hapcan.FrameType { return hapcan.TypeFwTypeReqNode }
func (FwTypeReq) Payload() []byte        { return nil }

type SupplyVoltReq struct{}

func (SupplyVoltReq) Type() hapcan.FrameType { return hapcan.TypeSupplyVoltReqNode }
func (SupplyVoltReq) Payload() []byte        { return nil }

type DescReq struct{}

func (DescReq) Type() hapcan.FrameType { return hapcan.TypeDescReqNode }
func (DescReq) Payload() []byte        { return nil }

// ============================================================
// System responses
// ============================================================

type EnterProgModeResp struct {
	BootloaderVersion  uint8
	BootloaderRevision uint8
}

func (EnterProgModeResp) Type() hapcan.FrameType { return hapcan.TypeEnterProgModeResp }

func (m EnterProgModeResp) Payload() []byte {
	p := fill(hapcan.UARTPayloadSize)
	p[2], p[3] = m.BootloaderVersion, m.BootloaderRevision
	return p
}

type HwTypeResp struct {
	Hardware        uint16
	HardwareVersion uint8
	Serial          uint32
}

func (HwTypeResp) Type() hapcan.FrameType { return hapcan.TypeHwTypeRespNode }

func (m HwTypeResp) Payload() []byte {
	p := fill(hapcan.UARTPayloadSize)
	binary.BigEndian.PutUint16(p, m.Hardware)
	p[2] = m.HardwareVersion
	binary.BigEndian.PutUint32(p[4:], m.Serial)
	return p
}

type FwTypeResp struct {
	Hardware           uint16
	HardwareVersion    uint8
	ApplicationType    uint8
	ApplicationVersion uint8
	FirmwareVersion    uint8
	BootloaderVersion  uint8
	BootloaderRevision uint8
}

func (FwTypeResp) Type() hapcan.FrameType { return hapcan.TypeFwTypeRespNode }

func (m FwTypeResp) Payload() []byte {
	p := make([]byte, hapcan.UARTPayloadSize)
	binary.BigEndian.PutUint16(p, m.Hardware)
	p[2] = m.HardwareVersion
	p[3] = m.ApplicationType
	p[4] = m.ApplicationVersion
	p[5] = m.FirmwareVersion
	p[6] = m.BootloaderVersion
	p[7] = m.BootloaderRevision
	return p
}

type SupplyVoltResp struct {
	Bus uint16
	CPU uint16
}

func (SupplyVoltResp) Type() hapcan.FrameType { return hapcan.TypeSupplyVoltRespNode }

func (m SupplyVoltResp) Payload() []byte {
	p := fill(hapcan.UARTPayloadSize)
	binary.BigEndian.PutUint16(p, m.Bus)
	binary.BigEndian.PutUint16(p[2:], m.CPU)
	return p
}

// DescResp carries eight characters of the interface description.
type DescResp struct {
	Text [8]byte
}

func (DescResp) Type() hapcan.FrameType { return hapcan.TypeDescRespNode }
func (m DescResp) Payload() []byte      { return bytes.Clone(m.Text[:]) }

func (m DescResp) String() string {
	return hapcan.TrimText(m.Text[:])
}
