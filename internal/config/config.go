// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the emulator configuration from a YAML/TOML/JSON
// file, HAPSIM_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Thermoquad/hapsim/pkg/emulator"
)

// LinkConfig selects the byte transport to the host programmer.
type LinkConfig struct {
	Port        string `mapstructure:"port"`
	Baud        int    `mapstructure:"baud"`
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	NoSSLVerify bool   `mapstructure:"noSslVerify"`
	OpenRetries uint   `mapstructure:"openRetries"`
}

// TimingConfig controls the poll loop and serial framing.
type TimingConfig struct {
	Poll  time.Duration `mapstructure:"poll"`
	Quiet time.Duration `mapstructure:"quiet"`
}

// LumberjackConfig configures log file rotation. An empty Filename
// disables the file output.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig selects the log level, encoder and outputs.
type LoggingConfig struct {
	Level   string           `mapstructure:"level"`
	Format  string           `mapstructure:"format"`
	Console bool             `mapstructure:"console"`
	File    LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig exposes Prometheus metrics over HTTP. An empty Addr
// disables the endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// SnapshotConfig persists module memory between runs. An empty Path
// disables snapshots.
type SnapshotConfig struct {
	Path string `mapstructure:"path"`
}

// DeviceConfig describes one emulated module. Pointer fields are optional
// and fall back to the module or gateway defaults.
type DeviceConfig struct {
	Name               string `mapstructure:"name"`
	Gateway            bool   `mapstructure:"gateway"`
	NodeID             *int   `mapstructure:"nodeId"`
	GroupID            *int   `mapstructure:"groupId"`
	SerialNumber       *int64 `mapstructure:"serialNumber"`
	HardwareType       *int   `mapstructure:"hardwareType"`
	HardwareVersion    *int   `mapstructure:"hardwareVersion"`
	ApplicationType    *int   `mapstructure:"applicationType"`
	ApplicationVersion *int   `mapstructure:"applicationVersion"`
	FirmwareVersion    *int   `mapstructure:"firmwareVersion"`
	BootloaderVersion  *int   `mapstructure:"bootloaderVersion"`
	BootloaderRevision *int   `mapstructure:"bootloaderRevision"`
	Description        string `mapstructure:"description"`
	SupplyVoltageBus   int    `mapstructure:"rawSupplyVoltageBus"`
	SupplyVoltageCPU   int    `mapstructure:"rawSupplyVoltageCpu"`
}

// Config is the top level configuration.
type Config struct {
	Link     LinkConfig     `mapstructure:"link"`
	Timing   TimingConfig   `mapstructure:"timing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Devices  []DeviceConfig `mapstructure:"devices"`
}

// flagKeys maps persistent command line flags onto configuration keys.
var flagKeys = map[string]string{
	"port":          "link.port",
	"baud":          "link.baud",
	"url":           "link.url",
	"username":      "link.username",
	"no-ssl-verify": "link.noSslVerify",
	"log-level":     "logging.level",
	"metrics-addr":  "metrics.addr",
	"snapshot":      "snapshot.path",
}

// Load reads the configuration. path may be empty, in which case
// hapsim.yaml is looked up in the working directory and ./configs; a
// missing file is not an error. Flags present in flags and changed on the
// command line override the file and the environment.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("hapsim")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("HAPSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("link.baud", 115200)
	v.SetDefault("link.openRetries", 5)

	v.SetDefault("timing.poll", emulator.DefaultPollInterval)
	v.SetDefault("timing.quiet", emulator.DefaultQuietInterval)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file.maxSize", 20)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 14)

	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("devices", []map[string]any{{
		"name":         "gateway",
		"gateway":      true,
		"nodeId":       1,
		"groupId":      1,
		"serialNumber": 0x01234567,
		"description":  "Hapcan Emulator",
	}})
}

// Validate checks the timing and the device list.
func (c *Config) Validate() error {
	if c.Timing.Poll <= 0 {
		return fmt.Errorf("timing.poll must be positive, got %s", c.Timing.Poll)
	}
	// A frame is only complete once the link has been quiet for longer
	// than one poll, otherwise a frame split across two reads is cut.
	if c.Timing.Quiet < 2*c.Timing.Poll {
		return fmt.Errorf("timing.quiet (%s) must be at least twice timing.poll (%s)", c.Timing.Quiet, c.Timing.Poll)
	}
	_, _, err := c.Identities()
	return err
}

// Identities converts the device list. It returns the gateway and the
// other modules in configuration order.
func (c *Config) Identities() (gateway emulator.Identity, modules []emulator.Identity, err error) {
	gateways := 0
	serials := make(map[int64]string, len(c.Devices))
	addrs := make(map[[2]int]string, len(c.Devices))
	names := make(map[string]int, len(c.Devices))

	for i, d := range c.Devices {
		id, err := d.Identity()
		if err != nil {
			return gateway, nil, fmt.Errorf("devices[%d]: %w", i, err)
		}
		if id.Name == "" {
			id.Name = fmt.Sprintf("node-%d-%d", id.NodeID, id.GroupID)
		}

		if other, ok := names[id.Name]; ok {
			return gateway, nil, fmt.Errorf("devices[%d]: name %q already used by devices[%d]", i, id.Name, other)
		}
		names[id.Name] = i

		if other, ok := serials[id.SerialNumber]; ok {
			return gateway, nil, fmt.Errorf("devices[%d]: serial number 0x%08X already used by %s", i, id.SerialNumber, other)
		}
		serials[id.SerialNumber] = id.Name

		addr := [2]int{id.NodeID, id.GroupID}
		if other, ok := addrs[addr]; ok {
			return gateway, nil, fmt.Errorf("devices[%d]: address (%d,%d) already used by %s", i, id.NodeID, id.GroupID, other)
		}
		addrs[addr] = id.Name

		if d.Gateway {
			gateways++
			gateway = id
			continue
		}
		modules = append(modules, id)
	}

	if gateways != 1 {
		return gateway, nil, fmt.Errorf("exactly one device must have gateway: true, found %d", gateways)
	}
	return gateway, modules, nil
}

// Identity applies the defaults and validates the result.
func (d DeviceConfig) Identity() (emulator.Identity, error) {
	id := emulator.DefaultIdentity()
	if d.Gateway {
		id = emulator.DefaultGatewayIdentity()
	}
	id.Name = d.Name
	id.Description = d.Description
	id.SupplyVoltageBus = d.SupplyVoltageBus
	id.SupplyVoltageCPU = d.SupplyVoltageCPU

	type intField struct {
		name  string
		value *int
		dst   *int
	}
	required := []intField{
		{"nodeId", d.NodeID, &id.NodeID},
		{"groupId", d.GroupID, &id.GroupID},
	}
	if !d.Gateway {
		required = append(required, intField{"applicationType", d.ApplicationType, &id.ApplicationType})
	}
	for _, r := range required {
		if r.value == nil {
			return id, fmt.Errorf("%s is required", r.name)
		}
		*r.dst = *r.value
	}
	if d.SerialNumber == nil {
		return id, errors.New("serialNumber is required")
	}
	id.SerialNumber = *d.SerialNumber

	optional := []intField{
		{"hardwareType", d.HardwareType, &id.HardwareType},
		{"hardwareVersion", d.HardwareVersion, &id.HardwareVersion},
		{"applicationType", d.ApplicationType, &id.ApplicationType},
		{"applicationVersion", d.ApplicationVersion, &id.ApplicationVersion},
		{"firmwareVersion", d.FirmwareVersion, &id.FirmwareVersion},
		{"bootloaderVersion", d.BootloaderVersion, &id.BootloaderVersion},
		{"bootloaderRevision", d.BootloaderRevision, &id.BootloaderRevision},
	}
	for _, o := range optional {
		if o.value != nil {
			*o.dst = *o.value
		}
	}

	return id, id.Validate()
}
