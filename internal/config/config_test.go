package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 115200, cfg.Link.Baud)
	assert.Equal(t, time.Millisecond, cfg.Timing.Poll)
	assert.Equal(t, 20*time.Millisecond, cfg.Timing.Quiet)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Console)
	assert.Empty(t, cfg.Metrics.Addr)

	gw, modules, err := cfg.Identities()
	require.NoError(t, err)
	assert.Empty(t, modules)
	assert.Equal(t, "gateway", gw.Name)
	assert.Equal(t, 1, gw.NodeID)
	assert.Equal(t, 1, gw.GroupID)
	assert.Equal(t, int64(0x01234567), gw.SerialNumber)
	assert.Equal(t, 101, gw.ApplicationType)
	assert.Equal(t, "Hapcan Emulator", gw.Description)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, "hapsim.yaml", `
link:
  port: /dev/ttyS10
timing:
  quiet: 30ms
devices:
  - gateway: true
    nodeId: 1
    groupId: 1
    serialNumber: 0x01234567
  - name: dimmer
    nodeId: 5
    groupId: 2
    serialNumber: 0x0A0B0C0D
    applicationType: 2
    firmwareVersion: 7
    description: Living room
    rawSupplyVoltageBus: 0xC4C0
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/dev/ttyS10", cfg.Link.Port)
	assert.Equal(t, 30*time.Millisecond, cfg.Timing.Quiet)

	gw, modules, err := cfg.Identities()
	require.NoError(t, err)
	assert.Equal(t, "node-1-1", gw.Name)
	require.Len(t, modules, 1)

	m := modules[0]
	assert.Equal(t, "dimmer", m.Name)
	assert.Equal(t, int64(0x0A0B0C0D), m.SerialNumber)
	assert.Equal(t, 0x3000, m.HardwareType)
	assert.Equal(t, 3, m.HardwareVersion)
	assert.Equal(t, 2, m.ApplicationType)
	assert.Equal(t, 7, m.FirmwareVersion)
	assert.Equal(t, 0, m.BootloaderVersion)
	assert.Equal(t, "Living room", m.Description)
	assert.Equal(t, 0xC4C0, m.SupplyVoltageBus)
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HAPSIM_LINK_BAUD", "9600")
	t.Setenv("HAPSIM_LOGGING_LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("port", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--port", "/dev/ttyUSB1", "--log-level", "warn"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 9600, cfg.Link.Baud)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Link.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate_Timing(t *testing.T) {
	cfg := &Config{
		Timing:  TimingConfig{Poll: 10 * time.Millisecond, Quiet: 15 * time.Millisecond},
		Devices: []DeviceConfig{{Gateway: true, NodeID: intp(1), GroupID: intp(1), SerialNumber: int64p(1)}},
	}
	assert.ErrorContains(t, cfg.Validate(), "timing.quiet")

	cfg.Timing.Quiet = 20 * time.Millisecond
	assert.NoError(t, cfg.Validate())

	cfg.Timing.Poll = 0
	assert.ErrorContains(t, cfg.Validate(), "timing.poll")
}

func TestIdentities_Errors(t *testing.T) {
	gateway := DeviceConfig{Gateway: true, NodeID: intp(1), GroupID: intp(1), SerialNumber: int64p(1)}

	tests := []struct {
		name    string
		devices []DeviceConfig
		want    string
	}{
		{"no gateway", []DeviceConfig{
			{NodeID: intp(2), GroupID: intp(1), SerialNumber: int64p(2), ApplicationType: intp(1)},
		}, "exactly one device"},
		{"two gateways", []DeviceConfig{
			gateway,
			{Gateway: true, NodeID: intp(2), GroupID: intp(1), SerialNumber: int64p(2)},
		}, "exactly one device"},
		{"missing node", []DeviceConfig{
			gateway,
			{GroupID: intp(1), SerialNumber: int64p(2), ApplicationType: intp(1)},
		}, "nodeId is required"},
		{"missing application type", []DeviceConfig{
			gateway,
			{NodeID: intp(2), GroupID: intp(1), SerialNumber: int64p(2)},
		}, "applicationType is required"},
		{"missing serial", []DeviceConfig{
			{Gateway: true, NodeID: intp(1), GroupID: intp(1)},
		}, "serialNumber is required"},
		{"duplicate serial", []DeviceConfig{
			gateway,
			{NodeID: intp(2), GroupID: intp(1), SerialNumber: int64p(1), ApplicationType: intp(1)},
		}, "serial number"},
		{"duplicate address", []DeviceConfig{
			gateway,
			{NodeID: intp(1), GroupID: intp(1), SerialNumber: int64p(2), ApplicationType: intp(1)},
		}, "address (1,1)"},
		{"duplicate name", []DeviceConfig{
			gateway,
			{Name: "node-1-1", NodeID: intp(2), GroupID: intp(1), SerialNumber: int64p(2), ApplicationType: intp(1)},
		}, `name "node-1-1"`},
		{"node out of range", []DeviceConfig{
			gateway,
			{NodeID: intp(300), GroupID: intp(1), SerialNumber: int64p(2), ApplicationType: intp(1)},
		}, "nodeId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Devices: tt.devices}
			_, _, err := cfg.Identities()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
