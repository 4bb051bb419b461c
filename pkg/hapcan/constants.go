// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hapcan implements the HAPCAN frame format used between CAN-bus
// modules and the serial programming interface.
//
// A frame on the byte stream looks like
//
//	0xAA | type_hi type_lo | payload... | checksum | 0xA5
//
// where the checksum is the 8-bit sum of every byte between the start and
// checksum positions. This package provides the frame codec, the network
// message catalog with its node/group targeting rules, a static registry
// used to decode frames into typed messages, and the quiet-interval framer
// that splits a raw byte stream into frames.
package hapcan

// Protocol framing bytes
const (
	StartByte = 0xAA
	EndByte   = 0xA5
	Filler    = 0xFF
)

// Frame size limits
const (
	MinFrameSize       = 5  // start + type(2) + checksum + end
	NetworkPayloadSize = 10 // every CAN-side frame carries 10 payload bytes
	NetworkFrameSize   = MinFrameSize + NetworkPayloadSize
	UARTPayloadSize    = 8
	UARTFrameSize      = MinFrameSize + UARTPayloadSize
	DataSize           = 8 // bytes moved by one DATA frame
	DescriptionSize    = 16
)

// FrameType is the 16-bit message code carried in bytes 1 and 2 of a frame.
// By convention a response code is its request code plus one.
type FrameType uint16

// Programming messages 0x01xx-0x04xx
const (
	TypeExitAllBootloader FrameType = 0x0100
	TypeExitOneBootloader FrameType = 0x0200
	TypeAddressFrame      FrameType = 0x0300
	TypeAddressFrameResp  FrameType = 0x0301
	TypeDataFrame         FrameType = 0x0400
	TypeDataFrameResp     FrameType = 0x0401
)

// System messages 0x10xx
const (
	TypeEnterProgMode          FrameType = 0x1000
	TypeEnterProgModeResp      FrameType = 0x1001
	TypeRebootReqGroup         FrameType = 0x1010
	TypeRebootReqNode          FrameType = 0x1020
	TypeHwTypeReqGroup         FrameType = 0x1030
	TypeHwTypeRespGroup        FrameType = 0x1031
	TypeHwTypeReqNode          FrameType = 0x1040
	TypeHwTypeRespNode         FrameType = 0x1041
	TypeFwTypeReqGroup         FrameType = 0x1050
	TypeFwTypeRespGroup        FrameType = 0x1051
	TypeFwTypeReqNode          FrameType = 0x1060
	TypeFwTypeRespNode         FrameType = 0x1061
	TypeSetDefaultNodeAndGroup FrameType = 0x1070
	TypeSetDefaultResp         FrameType = 0x1071
	TypeSupplyVoltReqGroup     FrameType = 0x10B0
	TypeSupplyVoltRespGroup    FrameType = 0x10B1
	TypeSupplyVoltReqNode      FrameType = 0x10C0
	TypeSupplyVoltRespNode     FrameType = 0x10C1
	TypeDescReqGroup           FrameType = 0x10D0
	TypeDescRespGroup          FrameType = 0x10D1
	TypeDescReqNode            FrameType = 0x10E0
	TypeDescRespNode           FrameType = 0x10E1
)

// MemoryCommand selects what the next DATA frame does at the pending address.
type MemoryCommand uint8

const (
	CmdRead  MemoryCommand = 0x01
	CmdWrite MemoryCommand = 0x02
	CmdErase MemoryCommand = 0x03
)

func (c MemoryCommand) String() string {
	switch c {
	case CmdRead:
		return "READ"
	case CmdWrite:
		return "WRITE"
	case CmdErase:
		return "ERASE"
	}
	return "UNKNOWN"
}

// Address identifies a module on the bus. Group 0 is the wildcard used by
// group-form requests.
type Address struct {
	Node  uint8
	Group uint8
}

// AllGroups is the group value that addresses every group.
const AllGroups = 0x00
