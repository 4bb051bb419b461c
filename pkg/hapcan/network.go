// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hapcan

type networkEntry = Entry[NetworkMessage]

func nodeReq[M NetworkMessage](name string, wrap func(NodeRequest) M) networkEntry {
	return networkEntry{Name: name, PayloadSize: NetworkPayloadSize, Decode: func(p []byte) NetworkMessage {
		return wrap(decodeNodeRequest(p))
	}}
}

func groupReq[M NetworkMessage](name string, wrap func(GroupRequest) M) networkEntry {
	return networkEntry{Name: name, PayloadSize: NetworkPayloadSize, Decode: func(p []byte) NetworkMessage {
		return wrap(decodeGroupRequest(p))
	}}
}

func entry(name string, decode func([]byte) NetworkMessage) networkEntry {
	return networkEntry{Name: name, PayloadSize: NetworkPayloadSize, Decode: decode}
}

// Network is the catalog of CAN-side frames understood by the emulator.
var Network = NewRegistry("network", map[FrameType]networkEntry{
	TypeExitAllBootloader: entry("EXIT_ALL_FROM_BOOTLOADER", func([]byte) NetworkMessage {
		return ExitAllBootloader{}
	}),
	TypeExitOneBootloader: entry("EXIT_ONE_NODE_FROM_BOOTLOADER", func(p []byte) NetworkMessage {
		return ExitOneBootloader{Target: Address{p[0], p[1]}}
	}),
	TypeAddressFrame: entry("ADDRESS_FRAME", func(p []byte) NetworkMessage {
		return decodeAddressFrame(p)
	}),
	TypeAddressFrameResp: entry("ADDRESS_FRAME_RESP", func(p []byte) NetworkMessage {
		return AddressFrameResp(decodeAddressFrame(p))
	}),
	TypeDataFrame: entry("DATA_FRAME", func(p []byte) NetworkMessage {
		return decodeDataFrame(p)
	}),
	TypeDataFrameResp: entry("DATA_FRAME_RESP", func(p []byte) NetworkMessage {
		return DataFrameResp(decodeDataFrame(p))
	}),

	TypeEnterProgMode: nodeReq("ENTER_PROGRAMMING_MODE", func(r NodeRequest) EnterProgMode {
		return EnterProgMode(r)
	}),
	TypeEnterProgModeResp: entry("ENTER_PROGRAMMING_MODE_RESP", func(p []byte) NetworkMessage {
		return EnterProgModeResp{Sender: Address{p[0], p[1]}, BootloaderVersion: p[4], BootloaderRevision: p[5]}
	}),
	TypeRebootReqGroup: groupReq("REBOOT_REQ_GROUP", func(r GroupRequest) RebootReqGroup {
		return RebootReqGroup(r)
	}),
	TypeRebootReqNode: nodeReq("REBOOT_REQ_NODE", func(r NodeRequest) RebootReqNode {
		return RebootReqNode(r)
	}),
	TypeHwTypeReqGroup: groupReq("HW_TYPE_REQ_GROUP", func(r GroupRequest) HwTypeReqGroup {
		return HwTypeReqGroup(r)
	}),
	TypeHwTypeRespGroup: entry("HW_TYPE_RESP_GROUP", func(p []byte) NetworkMessage {
		return HwTypeRespGroup(decodeHwTypeInfo(p))
	}),
	TypeHwTypeReqNode: nodeReq("HW_TYPE_REQ_NODE", func(r NodeRequest) HwTypeReqNode {
		return HwTypeReqNode(r)
	}),
	TypeHwTypeRespNode: entry("HW_TYPE_RESP_NODE", func(p []byte) NetworkMessage {
		return HwTypeRespNode(decodeHwTypeInfo(p))
	}),
	TypeFwTypeReqGroup: groupReq("FW_TYPE_REQ_GROUP", func(r GroupRequest) FwTypeReqGroup {
		return FwTypeReqGroup(r)
	}),
	TypeFwTypeRespGroup: entry("FW_TYPE_RESP_GROUP", func(p []byte) NetworkMessage {
		return FwTypeRespGroup(decodeFwTypeInfo(p))
	}),
	TypeFwTypeReqNode: nodeReq("FW_TYPE_REQ_NODE", func(r NodeRequest) FwTypeReqNode {
		return FwTypeReqNode(r)
	}),
	TypeFwTypeRespNode: entry("FW_TYPE_RESP_NODE", func(p []byte) NetworkMessage {
		return FwTypeRespNode(decodeFwTypeInfo(p))
	}),
	TypeSetDefaultNodeAndGroup: nodeReq("SET_DEFAULT_NODE_AND_GROUP", func(r NodeRequest) SetDefaultNodeAndGroup {
		return SetDefaultNodeAndGroup(r)
	}),
	TypeSetDefaultResp: entry("SET_DEFAULT_NODE_AND_GROUP_RESP", func(p []byte) NetworkMessage {
		return SetDefaultResp{Address: Address{p[0], p[1]}}
	}),
	TypeSupplyVoltReqGroup: groupReq("SUPPLY_VOLT_REQ_GROUP", func(r GroupRequest) SupplyVoltReqGroup {
		return SupplyVoltReqGroup(r)
	}),
	TypeSupplyVoltRespGroup: entry("SUPPLY_VOLT_RESP_GROUP", func(p []byte) NetworkMessage {
		return SupplyVoltRespGroup(decodeSupplyVoltInfo(p))
	}),
	TypeSupplyVoltReqNode: nodeReq("SUPPLY_VOLT_REQ_NODE", func(r NodeRequest) SupplyVoltReqNode {
		return SupplyVoltReqNode(r)
	}),
	TypeSupplyVoltRespNode: entry("SUPPLY_VOLT_RESP_NODE", func(p []byte) NetworkMessage {
		return SupplyVoltRespNode(decodeSupplyVoltInfo(p))
	}),
	TypeDescReqGroup: groupReq("DESCRIPTION_REQ_GROUP", func(r GroupRequest) DescReqGroup {
		return DescReqGroup(r)
	}),
	TypeDescRespGroup: entry("DESCRIPTION_RESP_GROUP", func(p []byte) NetworkMessage {
		return DescRespGroup(decodeDescChunk(p))
	}),
	TypeDescReqNode: nodeReq("DESCRIPTION_REQ_NODE", func(r NodeRequest) DescReqNode {
		return DescReqNode(r)
	}),
	TypeDescRespNode: entry("DESCRIPTION_RESP_NODE", func(p []byte) NetworkMessage {
		return DescRespNode(decodeDescChunk(p))
	}),
})
