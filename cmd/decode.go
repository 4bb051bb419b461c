// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/hapsim/pkg/hapcan"
	"github.com/Thermoquad/hapsim/pkg/hapcan/uart"
)

var decodeCmd = &cobra.Command{
	Use:   "decode HEX...",
	Short: "Decode captured HAPCAN frames",
	Long: `Decode one frame per argument and report anomalies.

Bytes may be separated by spaces or colons:
  hapsim decode "AA 10 41 30 00 03 FF 01 23 45 67 53 A5"
  hapsim decode AA:10:40:50:A5

Frames of 15 bytes are decoded as network messages, all other lengths as
serial interface system messages.

Exit codes:
  0  all frames valid
  1  at least one frame has anomalies`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	invalid := 0
	for i, arg := range args {
		if i > 0 {
			fmt.Println()
		}
		raw, err := parseHexFrame(arg)
		if err != nil {
			fmt.Println(red("%q: %v", arg, err))
			invalid++
			continue
		}

		text, issues := describeFrame(raw)
		fmt.Println(bold("%s", text))
		if len(issues) == 0 {
			fmt.Println(green("  valid"))
			continue
		}
		invalid++
		for _, v := range issues {
			fmt.Printf("  %s %s\n", yellow("[%s]", v.Type), red("%s", v.Message))
			if len(v.Details) > 0 {
				fmt.Printf("      %v\n", v.Details)
			}
		}
	}

	if invalid > 0 {
		return &exitError{code: 1, err: fmt.Errorf("%d of %d frames invalid", invalid, len(args))}
	}
	return nil
}

// parseHexFrame accepts hex with optional space, colon or dash separators
// and an optional 0x prefix.
func parseHexFrame(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	return raw, nil
}

// describeFrame formats raw with the registry matching its length.
func describeFrame(raw []byte) (string, []hapcan.ValidationError) {
	if len(raw) == hapcan.NetworkFrameSize {
		return hapcan.FormatFrame(hapcan.Network, raw), hapcan.ValidateFrame(hapcan.Network, raw)
	}
	return hapcan.FormatFrame(uart.System, raw), hapcan.ValidateFrame(uart.System, raw)
}
