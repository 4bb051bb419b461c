package hapcan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFor(t *testing.T) {
	dev := Address{Node: 5, Group: 2}
	other := Address{Node: 5, Group: 3}
	from := Address{Node: 0xFE, Group: 0xFD}

	tests := []struct {
		name  string
		msg   NetworkMessage
		dev   bool
		other bool
	}{
		{"exit all bootloader targets everyone", ExitAllBootloader{}, true, true},
		{"exit one bootloader exact match", ExitOneBootloader{Target: dev}, true, false},
		{"node request exact match", HwTypeReqNode{Sender: from, Target: dev}, true, false},
		{"node request wrong node", HwTypeReqNode{Sender: from, Target: Address{6, 2}}, false, false},
		{"node request wrong group", FwTypeReqNode{Sender: from, Target: Address{5, 9}}, false, false},
		{"group request own group", HwTypeReqGroup{Sender: from, Group: 2}, true, false},
		{"group request wildcard", DescReqGroup{Sender: from, Group: 0}, true, true},
		{"group request other group", SupplyVoltReqGroup{Sender: from, Group: 3}, false, true},
		{"reboot group wildcard", RebootReqGroup{Sender: from, Group: 0}, true, true},
		{"address frame exact", AddressFrame{Target: dev, Address: 0, Command: CmdRead}, true, false},
		{"data frame other", DataFrame{Target: other}, false, true},
		{"response matches its sender", HwTypeRespNode{Sender: dev}, true, false},
		{"set default response matches new address", SetDefaultResp{Address: other}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.dev, tt.msg.IsFor(dev))
			assert.Equal(t, tt.other, tt.msg.IsFor(other))
		})
	}
}
