package hapcan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anomalies(errs []ValidationError) []AnomalyType {
	out := make([]AnomalyType, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Type)
	}
	return out
}

func TestValidateFrame(t *testing.T) {
	badChecksum := Encode(HwTypeReqNode{Sender: sender, Target: target})
	badChecksum[len(badChecksum)-2] ^= 0x01

	badCommand := Encode(AddressFrame{Target: target, Address: 0x1000, Command: 0x07})

	tests := []struct {
		name string
		raw  []byte
		want []AnomalyType
	}{
		{"valid", Encode(FwTypeReqNode{Sender: sender, Target: target}), []AnomalyType{}},
		{"framing", []byte{0xAA, 0x10}, []AnomalyType{AnomalyFraming}},
		{"checksum", badChecksum, []AnomalyType{AnomalyChecksum}},
		{"unknown type", EncodeFrame(0x3010, fill(NetworkPayloadSize)), []AnomalyType{AnomalyUnknownType}},
		{"length", EncodeFrame(TypeDataFrame, fill(4)), []AnomalyType{AnomalyLengthMismatch}},
		{"command", badCommand, []AnomalyType{AnomalyInvalidCommand}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, anomalies(ValidateFrame(Network, tt.raw)))
		})
	}
}

func TestFormatFrame(t *testing.T) {
	raw := Encode(HwTypeRespNode{Sender: target, Hardware: 0x3000, HardwareVersion: 3, Serial: 0x01234567})

	s := FormatFrame(Network, raw)
	assert.True(t, strings.HasPrefix(s, "HW_TYPE_RESP_NODE (0x1041) len=15 checksum=ok"), s)
	assert.Contains(t, s, "Serial:19088743")

	raw[len(raw)-2]++
	assert.Contains(t, FormatFrame(Network, raw), "checksum=BAD")

	assert.True(t, strings.HasPrefix(FormatFrame(Network, []byte{0x01}), "INVALID"))
}

func TestFormatMessage_EmptyStruct(t *testing.T) {
	require.Equal(t, "hapcan.ExitAllBootloader", FormatMessage(ExitAllBootloader{}))
}
