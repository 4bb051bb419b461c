// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hapcan

import (
	"fmt"
	"strings"
)

// FormatFrame formats raw wire bytes into a human-readable string using the
// names from r. Frames that fail to decode are shown as a hex dump with the
// reason.
func FormatFrame[M Message](r *Registry[M], raw []byte) string {
	f, err := DecodeFrame(raw)
	if err != nil {
		return fmt.Sprintf("INVALID [% X]: %v", raw, err)
	}

	check := "ok"
	if !f.ChecksumValid {
		check = fmt.Sprintf("BAD (want 0x%02X)", Checksum(raw[1:len(raw)-2]))
	}

	result := fmt.Sprintf("%s (0x%04X) len=%d checksum=%s payload=[% X]",
		r.TypeName(f.Type), uint16(f.Type), len(raw), check, f.Payload)

	if m, err := r.DecodeFrame(f); err == nil {
		result += "\n  " + FormatMessage(m)
	}
	return result
}

// FormatMessage renders the fields of a decoded message.
func FormatMessage(m Message) string {
	s := fmt.Sprintf("%+v", m)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if s == "" {
		return fmt.Sprintf("%T", m)
	}
	return fmt.Sprintf("%T %s", m, s)
}

// FormatAddress formats a node/group pair the way the programmer shows it.
func FormatAddress(a Address) string {
	return fmt.Sprintf("(%d,%d)", a.Node, a.Group)
}
