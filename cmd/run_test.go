package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/hapsim/internal/config"
	"github.com/Thermoquad/hapsim/pkg/emulator"
	"github.com/Thermoquad/hapsim/pkg/hapcan"
	"github.com/Thermoquad/hapsim/pkg/hapcan/uart"
)

type nullLink struct{}

func (nullLink) ReadAvailable() []byte { return nil }
func (nullLink) Write([]byte) error    { return nil }

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hapsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
devices:
  - gateway: true
    name: interface
    nodeId: 1
    groupId: 1
    serialNumber: 0x01234567
    description: Hapcan Emulator
  - name: dimmer
    nodeId: 5
    groupId: 2
    serialNumber: 0x0A0B0C0D
    applicationType: 2
`), 0o644))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuildNetwork(t *testing.T) {
	cfg := loadTestConfig(t)

	nw, err := buildNetwork(cfg, nullLink{})
	require.NoError(t, err)

	require.Len(t, nw.devices, 2)
	assert.Same(t, nw.gateway.Device, nw.devices[0])
	assert.Len(t, nw.bus.Nodes(), 2)

	nw.refreshRows()
	require.Len(t, nw.rows, 2)
	assert.Equal(t, moduleRow{name: "interface", address: "(1,1)", serial: 0x01234567, gateway: true}, nw.rows[0])
	assert.Equal(t, moduleRow{name: "dimmer", address: "(5,2)", serial: 0x0A0B0C0D}, nw.rows[1])
}

func TestBuildNetwork_RowsFollowAddressChanges(t *testing.T) {
	nw, err := buildNetwork(loadTestConfig(t), nullLink{})
	require.NoError(t, err)

	require.NoError(t, nw.devices[1].SetAddress(hapcan.Address{Node: 9, Group: 8}))
	nw.refreshRows()
	assert.Equal(t, "(9,8)", nw.rows[1].address)
}

func TestWriteDeviceTable(t *testing.T) {
	gw, modules, err := loadTestConfig(t).Identities()
	require.NoError(t, err)

	var out bytes.Buffer
	writeDeviceTable(&out, gw, modules)

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 5)
	assert.Contains(t, string(lines[0]), "SERIAL")
	assert.Contains(t, string(lines[1]), "interface *")
	assert.Contains(t, string(lines[1]), "0x01234567")
	assert.Contains(t, string(lines[1]), `"Hapcan Emulator"`)
	assert.Contains(t, string(lines[2]), "dimmer")
	assert.Contains(t, string(lines[2]), "0x3000 v3")
	assert.Equal(t, "2 modules, * serial interface", string(lines[4]))
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2025, 1, 2, 13, 4, 5, 6e6, time.Local)

	line := formatEvent(emulator.Event{
		Time:   ts,
		Kind:   emulator.EventLinkIn,
		Source: "interface",
		Name:   "HW_TYPE_REQ_NODE",
		Raw:    []byte{0xAA, 0x10, 0x40, 0x50, 0xA5},
	})
	assert.Equal(t, "13:04:05.006 RX   interface    HW_TYPE_REQ_NODE                 AA 10 40 50 A5", line)

	line = formatEvent(emulator.Event{
		Time:   ts,
		Kind:   emulator.EventDiagnostic,
		Source: "interface",
		Err:    errors.New("bad checksum"),
		Raw:    []byte{0xAA, 0x01},
	})
	assert.Equal(t, "13:04:05.006 DIAG interface    bad checksum [AA 01]", line)
}

func TestDescribeReplies(t *testing.T) {
	tests := []struct {
		name    string
		replies []hapcan.Message
		want    string
	}{
		{
			name: "description",
			replies: []hapcan.Message{
				uart.DescResp{Text: [8]byte{'H', 'a', 'p', 'c', 'a', 'n', ' ', 'E'}},
				uart.DescResp{Text: [8]byte{'m', 'u', 'l', 'a', 't', 'o', 'r', 0}},
			},
			want: `"Hapcan Emulator"`,
		},
		{
			name:    "hardware",
			replies: []hapcan.Message{uart.HwTypeResp{Hardware: 0x3000, HardwareVersion: 3, Serial: 0x01234567}},
			want:    "hard=0x3000 hver=3 serial=0x01234567",
		},
		{
			name:    "supply",
			replies: []hapcan.Message{uart.SupplyVoltResp{Bus: 0xC4C0, CPU: 0x7FC0}},
			want:    "bus=0xC4C0 cpu=0x7FC0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeReplies(tt.replies))
		})
	}
}

func TestIsSystemResponse(t *testing.T) {
	match := isSystemResponse(hapcan.TypeHwTypeReqNode)
	assert.True(t, match(uart.HwTypeResp{}))
	assert.False(t, match(uart.FwTypeResp{}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
	assert.Equal(t, 2, ExitCode(&exitError{code: 2, err: errProbeTimeout}))
	assert.ErrorIs(t, &exitError{code: 1, err: errProbeTimeout}, errProbeTimeout)
}
