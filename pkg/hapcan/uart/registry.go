// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package uart

import (
	"encoding/binary"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
)

type entry = hapcan.Entry[hapcan.Message]

func request(name string, m hapcan.Message) entry {
	return entry{Name: name, Decode: func([]byte) hapcan.Message { return m }}
}

func response(name string, decode func(p []byte) hapcan.Message) entry {
	return entry{Name: name, PayloadSize: hapcan.UARTPayloadSize, Decode: decode}
}

// System is the catalog of frames exchanged with the serial interface module.
var System = hapcan.NewRegistry("uart", map[hapcan.FrameType]entry{
	hapcan.TypeExitOneBootloader: response("EXIT_ONE_NODE_FROM_BOOTLOADER", func([]byte) hapcan.Message {
		return ExitOneBootloader{}
	}),
	hapcan.TypeAddressFrame: response("ADDRESS_FRAME", func(p []byte) hapcan.Message {
		return decodeAddressFrame(p)
	}),
	hapcan.TypeAddressFrameResp: response("ADDRESS_FRAME_RESP", func(p []byte) hapcan.Message {
		return AddressFrameResp(decodeAddressFrame(p))
	}),
	hapcan.TypeDataFrame: response("DATA_FRAME", func(p []byte) hapcan.Message {
		var m DataFrame
		copy(m.Data[:], p)
		return m
	}),
	hapcan.TypeDataFrameResp: response("DATA_FRAME_RESP", func(p []byte) hapcan.Message {
		var m DataFrameResp
		copy(m.Data[:], p)
		return m
	}),

	hapcan.TypeEnterProgMode: request("ENTER_PROGRAMMING_MODE", EnterProgMode{}),
	hapcan.TypeEnterProgModeResp: response("ENTER_PROGRAMMING_MODE_RESP", func(p []byte) hapcan.Message {
		return EnterProgModeResp{BootloaderVersion: p[2], BootloaderRevision: p[3]}
	}),
	hapcan.TypeRebootReqNode: request("REBOOT_REQ_NODE", RebootReqNode{}),
	hapcan.TypeHwTypeReqNode: request("HW_TYPE_REQ_NODE", HwTypeReq{}),
	hapcan.TypeHwTypeRespNode: response("HW_TYPE_REQ_NODE_RESP", func(p []byte) hapcan.Message {
		return HwTypeResp{
			Hardware:        binary.BigEndian.Uint16(p),
			HardwareVersion: p[2],
			Serial:          binary.BigEndian.Uint32(p[4:]),
		}
	}),
	hapcan.TypeFwTypeReqNode: request("FW_TYPE_REQ_NODE", FwTypeReq{}),
	hapcan.TypeFwTypeRespNode: response("FW_TYPE_REQ_NODE_RESP", func(p []byte) hapcan.Message {
		return FwTypeResp{
			Hardware:           binary.BigEndian.Uint16(p),
			HardwareVersion:    p[2],
			ApplicationType:    p[3],
			ApplicationVersion: p[4],
			FirmwareVersion:    p[5],
			BootloaderVersion:  p[6],
			BootloaderRevision: p[7],
		}
	}),
	hapcan.TypeSupplyVoltReqNode: request("SUPPLY_VOLT_REQ_NODE", SupplyVoltReq{}),
	hapcan.TypeSupplyVoltRespNode: response("SUPPLY_VOLT_REQ_NODE_RESP", func(p []byte) hapcan.Message {
		return SupplyVoltResp{Bus: binary.BigEndian.Uint16(p), CPU: binary.BigEndian.Uint16(p[2:])}
	}),
	hapcan.TypeDescReqNode: request("DESCRIPTION_REQ_NODE", DescReq{}),
	hapcan.TypeDescRespNode: response("DESCRIPTION_REQ_NODE_RESP", func(p []byte) hapcan.Message {
		var m DescResp
		copy(m.Text[:], p)
		return m
	}),
})
