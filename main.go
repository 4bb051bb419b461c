// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// hapsim - HAPCAN Network Emulator
//
// Emulates a HAPCAN CAN bus network behind a serial interface module so
// the HAPCAN programmer can be used without hardware.

package main

import (
	"os"

	"github.com/Thermoquad/hapsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
