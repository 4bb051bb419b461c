// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hapsim/pkg/emulator"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the configured modules",
	Long: `Load and validate the configuration and print every module that
"hapsim run" would emulate. The serial interface module is listed first.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	gw, modules, err := cfg.Identities()
	if err != nil {
		return err
	}
	writeDeviceTable(os.Stdout, gw, modules)
	return nil
}

func writeDeviceTable(out io.Writer, gw emulator.Identity, modules []emulator.Identity) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tNODE\tGROUP\tSERIAL\tHARD\tAPP\tFIRMWARE\tDESCRIPTION\t")

	row := func(id emulator.Identity, gateway bool) {
		name := id.Name
		if gateway {
			name += " *"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t0x%08X\t0x%04X v%d\t%d.%d\t%d.%d.%d\t%q\t\n",
			name, id.NodeID, id.GroupID, id.SerialNumber,
			id.HardwareType, id.HardwareVersion,
			id.ApplicationType, id.ApplicationVersion,
			id.FirmwareVersion, id.BootloaderVersion, id.BootloaderRevision,
			id.Description)
	}
	row(gw, true)
	for _, id := range modules {
		row(id, false)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d modules, * serial interface\n", len(modules)+1)
}
