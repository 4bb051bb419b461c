// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

// Snapshot is a CBOR image of the memory of every module, keyed by the
// factory serial number. It lets programmed firmware and addresses survive
// a restart, including an erase of the flash page holding the serial.
type Snapshot struct {
	Version int                    `cbor:"1,keyasint"`
	Devices map[uint32]DeviceImage `cbor:"2,keyasint"`
}

// DeviceImage holds the banks of one module.
type DeviceImage struct {
	Name  string      `cbor:"1,keyasint,omitempty"`
	Banks []BankImage `cbor:"2,keyasint"`
}

// BankImage is the content of one bank.
type BankImage struct {
	Base uint32 `cbor:"1,keyasint"`
	Data []byte `cbor:"2,keyasint"`
}

// CaptureSnapshot copies the memory of devs.
func CaptureSnapshot(devs []*Device) *Snapshot {
	s := &Snapshot{Version: SnapshotVersion, Devices: make(map[uint32]DeviceImage, len(devs))}
	for _, d := range devs {
		img := DeviceImage{Name: d.Name()}
		for _, b := range d.Memory() {
			img.Banks = append(img.Banks, BankImage{Base: b.Base(), Data: b.Image()})
		}
		s.Devices[d.FactorySerial()] = img
	}
	return s
}

// Restore loads the stored images into the matching devices. Devices
// without an image keep their memory. It returns how many were restored.
func (s *Snapshot) Restore(devs []*Device) (int, error) {
	if s.Version != SnapshotVersion {
		return 0, fmt.Errorf("snapshot: unsupported version %d", s.Version)
	}

	restored := 0
	for _, d := range devs {
		img, ok := s.Devices[d.FactorySerial()]
		if !ok {
			continue
		}
		for _, bi := range img.Banks {
			bank, err := d.Memory().Find(bi.Base)
			if err != nil || bank.Base() != bi.Base {
				return restored, fmt.Errorf("snapshot: %s has no bank at 0x%06X", d.Name(), bi.Base)
			}
			if err := bank.Load(bi.Data); err != nil {
				return restored, fmt.Errorf("snapshot: %s: %w", d.Name(), err)
			}
		}
		restored++
	}
	return restored, nil
}

// Marshal encodes the snapshot as CBOR.
func (s *Snapshot) Marshal() ([]byte, error) {
	return cbor.Marshal(s)
}

// UnmarshalSnapshot decodes a CBOR snapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: failed to decode CBOR: %w", err)
	}
	return &s, nil
}

// SaveSnapshot writes s to path atomically.
func SaveSnapshot(path string, s *Snapshot) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot reads a snapshot from path. A missing file returns
// (nil, nil).
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return UnmarshalSnapshot(data)
}
