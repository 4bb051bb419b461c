// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hapcan

// ============================================================
// Programming messages
// ============================================================

// ExitAllBootloader tells every module to leave programming mode.
type ExitAllBootloader struct{}

func (ExitAllBootloader) Type() FrameType      { return TypeExitAllBootloader }
func (ExitAllBootloader) Payload() []byte      { return fill(NetworkPayloadSize) }
func (ExitAllBootloader) IsFor(_ Address) bool { return true }

// ExitOneBootloader tells one module to leave programming mode.
type ExitOneBootloader struct {
	Target Address
}

func (ExitOneBootloader) Type() FrameType { return TypeExitOneBootloader }

func (m ExitOneBootloader) Payload() []byte {
	p := fill(NetworkPayloadSize)
	p[0], p[1] = m.Target.Node, m.Target.Group
	return p
}

func (m ExitOneBootloader) IsFor(a Address) bool { return m.Target == a }

// AddressFrame selects the memory address and command applied by the next
// DataFrame sent to the same module.
type AddressFrame struct {
	Target  Address
	Address uint32 // 24 bits
	Command MemoryCommand
}

func (AddressFrame) Type() FrameType { return TypeAddressFrame }

func (m AddressFrame) Payload() []byte { return encodeAddressFrame(m) }

func (m AddressFrame) IsFor(a Address) bool { return m.Target == a }

// AddressFrameResp is the echo of an accepted AddressFrame.
type AddressFrameResp AddressFrame

func (AddressFrameResp) Type() FrameType        { return TypeAddressFrameResp }
func (m AddressFrameResp) Payload() []byte      { return encodeAddressFrame(AddressFrame(m)) }
func (m AddressFrameResp) IsFor(a Address) bool { return m.Target == a }

func encodeAddressFrame(m AddressFrame) []byte {
	p := fill(NetworkPayloadSize)
	p[0], p[1] = m.Target.Node, m.Target.Group
	PutAddress24(p[2:], m.Address)
	p[7] = byte(m.Command)
	return p
}

func decodeAddressFrame(p []byte) AddressFrame {
	return AddressFrame{
		Target:  Address{p[0], p[1]},
		Address: Address24(p[2:]),
		Command: MemoryCommand(p[7]),
	}
}

// DataFrame carries eight bytes for the pending memory command.
type DataFrame struct {
	Target Address
	Data   [DataSize]byte
}

func (DataFrame) Type() FrameType        { return TypeDataFrame }
func (m DataFrame) Payload() []byte      { return encodeDataFrame(m) }
func (m DataFrame) IsFor(a Address) bool { return m.Target == a }

// DataFrameResp returns the eight bytes stored at the pending address after
// the command ran.
type DataFrameResp DataFrame

func (DataFrameResp) Type() FrameType        { return TypeDataFrameResp }
func (m DataFrameResp) Payload() []byte      { return encodeDataFrame(DataFrame(m)) }
func (m DataFrameResp) IsFor(a Address) bool { return m.Target == a }

func encodeDataFrame(m DataFrame) []byte {
	p := make([]byte, NetworkPayloadSize)
	p[0], p[1] = m.Target.Node, m.Target.Group
	copy(p[2:], m.Data[:])
	return p
}

func decodeDataFrame(p []byte) DataFrame {
	m := DataFrame{Target: Address{p[0], p[1]}}
	copy(m.Data[:], p[2:])
	return m
}

// ============================================================
// System requests
// ============================================================

// EnterProgMode asks a module to enter its bootloader.
type EnterProgMode NodeRequest

func (EnterProgMode) Type() FrameType        { return TypeEnterProgMode }
func (m EnterProgMode) Payload() []byte      { return NodeRequest(m).encode() }
func (m EnterProgMode) IsFor(a Address) bool { return m.Target == a }

// RebootReqGroup reboots every module of a group.
type RebootReqGroup GroupRequest

func (RebootReqGroup) Type() FrameType        { return TypeRebootReqGroup }
func (m RebootReqGroup) Payload() []byte      { return GroupRequest(m).encode() }
func (m RebootReqGroup) IsFor(a Address) bool { return GroupRequest(m).matches(a) }

// RebootReqNode reboots one module.
type RebootReqNode NodeRequest

func (RebootReqNode) Type() FrameType        { return TypeRebootReqNode }
func (m RebootReqNode) Payload() []byte      { return NodeRequest(m).encode() }
func (m RebootReqNode) IsFor(a Address) bool { return m.Target == a }

// HwTypeReqGroup asks every module of a group for its hardware type.
type HwTypeReqGroup GroupRequest

func (HwTypeReqGroup) Type() FrameType        { return TypeHwTypeReqGroup }
func (m HwTypeReqGroup) Payload() []byte      { return GroupRequest(m).encode() }
func (m HwTypeReqGroup) IsFor(a Address) bool { return GroupRequest(m).matches(a) }

// HwTypeReqNode asks one module for its hardware type.
type HwTypeReqNode NodeRequest

func (HwTypeReqNode) Type() FrameType        { return TypeHwTypeReqNode }
func (m HwTypeReqNode) Payload() []byte      { return NodeRequest(m).encode() }
func (m HwTypeReqNode) IsFor(a Address) bool { return m.Target == a }

// FwTypeReqGroup asks every module of a group for its firmware type.
type FwTypeReqGroup GroupRequest

func (FwTypeReqGroup) Type() FrameType        { return TypeFwTypeReqGroup }
func (m FwTypeReqGroup) Payload() []byte      { return GroupRequest(m).encode() }
func (m FwTypeReqGroup) IsFor(a Address) bool { return GroupRequest(m).matches(a) }

// FwTypeReqNode asks one module for its firmware type.
type FwTypeReqNode NodeRequest

func (FwTypeReqNode) Type() FrameType        { return TypeFwTypeReqNode }
func (m FwTypeReqNode) Payload() []byte      { return NodeRequest(m).encode() }
func (m FwTypeReqNode) IsFor(a Address) bool { return m.Target == a }

// SetDefaultNodeAndGroup resets a module address to the one derived from
// its serial number.
type SetDefaultNodeAndGroup NodeRequest

func (SetDefaultNodeAndGroup) Type() FrameType        { return TypeSetDefaultNodeAndGroup }
func (m SetDefaultNodeAndGroup) Payload() []byte      { return NodeRequest(m).encode() }
func (m SetDefaultNodeAndGroup) IsFor(a Address) bool { return m.Target == a }

type SupplyVoltReqGroup GroupRequest

func (SupplyVoltReqGroup) Type() FrameType        { return TypeSupplyVoltReqGroup }
func (m SupplyVoltReqGroup) Payload() []byte      { return GroupRequest(m).encode() }
func (m SupplyVoltReqGroup) IsFor(a Address) bool { return GroupRequest(m).matches(a) }

type SupplyVoltReqNode NodeRequest

func (SupplyVoltReqNode) Type() FrameType        { return TypeSupplyVoltReqNode }
func (m SupplyVoltReqNode) Payload() []byte      { return NodeRequest(m).encode() }
func (m SupplyVoltReqNode) IsFor(a Address) bool { return m.Target == a }

type DescReqGroup GroupRequest

func (DescReqGroup) Type() FrameType        { return TypeDescReqGroup }
func (m DescReqGroup) Payload() []byte      { return GroupRequest(m).encode() }
func (m DescReqGroup) IsFor(a Address) bool { return GroupRequest(m).matches(a) }

type DescReqNode NodeRequest

func (DescReqNode) Type() FrameType        { return TypeDescReqNode }
func (m DescReqNode) Payload() []byte      { return NodeRequest(m).encode() }
func (m DescReqNode) IsFor(a Address) bool { return m.Target == a }

// ============================================================
// System responses
// ============================================================

// Responses are matched against the address of the module that sent them.

// EnterProgModeResp reports the bootloader version of a module that
// entered programming mode.
type EnterProgModeResp struct {
	Sender             Address
	BootloaderVersion  uint8
	BootloaderRevision uint8
}

func (EnterProgModeResp) Type() FrameType { return TypeEnterProgModeResp }

func (m EnterProgModeResp) Payload() []byte {
	p := fill(NetworkPayloadSize)
	p[0], p[1] = m.Sender.Node, m.Sender.Group
	p[4], p[5] = m.BootloaderVersion, m.BootloaderRevision
	return p
}

func (m EnterProgModeResp) IsFor(a Address) bool { return m.Sender == a }

type HwTypeRespGroup HwTypeInfo

func (HwTypeRespGroup) Type() FrameType        { return TypeHwTypeRespGroup }
func (m HwTypeRespGroup) Payload() []byte      { return HwTypeInfo(m).encode() }
func (m HwTypeRespGroup) IsFor(a Address) bool { return m.Sender == a }

type HwTypeRespNode HwTypeInfo

func (HwTypeRespNode) Type() FrameType        { return TypeHwTypeRespNode }
func (m HwTypeRespNode) Payload() []byte      { return HwTypeInfo(m).encode() }
func (m HwTypeRespNode) IsFor(a Address) bool { return m.Sender == a }

type FwTypeRespGroup FwTypeInfo

func (FwTypeRespGroup) Type() FrameType        { return TypeFwTypeRespGroup }
func (m FwTypeRespGroup) Payload() []byte      { return FwTypeInfo(m).encode() }
func (m FwTypeRespGroup) IsFor(a Address) bool { return m.Sender == a }

type FwTypeRespNode FwTypeInfo

func (FwTypeRespNode) Type() FrameType        { return TypeFwTypeRespNode }
func (m FwTypeRespNode) Payload() []byte      { return FwTypeInfo(m).encode() }
func (m FwTypeRespNode) IsFor(a Address) bool { return m.Sender == a }

// SetDefaultResp reports the address a module took after
// SetDefaultNodeAndGroup.
type SetDefaultResp struct {
	Address Address
}

func (SetDefaultResp) Type() FrameType { return TypeSetDefaultResp }

func (m SetDefaultResp) Payload() []byte {
	p := fill(NetworkPayloadSize)
	p[0], p[1] = m.Address.Node, m.Address.Group
	return p
}

func (m SetDefaultResp) IsFor(a Address) bool { return m.Address == a }

type SupplyVoltRespGroup SupplyVoltInfo

func (SupplyVoltRespGroup) Type() FrameType        { return TypeSupplyVoltRespGroup }
func (m SupplyVoltRespGroup) Payload() []byte      { return SupplyVoltInfo(m).encode() }
func (m SupplyVoltRespGroup) IsFor(a Address) bool { return m.Sender == a }

type SupplyVoltRespNode SupplyVoltInfo

func (SupplyVoltRespNode) Type() FrameType        { return TypeSupplyVoltRespNode }
func (m SupplyVoltRespNode) Payload() []byte      { return SupplyVoltInfo(m).encode() }
func (m SupplyVoltRespNode) IsFor(a Address) bool { return m.Sender == a }

type DescRespGroup DescChunk

func (DescRespGroup) Type() FrameType        { return TypeDescRespGroup }
func (m DescRespGroup) Payload() []byte      { return DescChunk(m).encode() }
func (m DescRespGroup) IsFor(a Address) bool { return m.Sender == a }

type DescRespNode DescChunk

func (DescRespNode) Type() FrameType        { return TypeDescRespNode }
func (m DescRespNode) Payload() []byte      { return DescChunk(m).encode() }
func (m DescRespNode) IsFor(a Address) bool { return m.Sender == a }
