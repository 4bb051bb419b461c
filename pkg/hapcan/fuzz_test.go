// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hapcan

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rng.Read(b)
	return b
}

// ============================================================
// Codec Fuzz Tests
// ============================================================

func TestFuzz_EncodeDecodeRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		ft := FrameType(rng.Intn(0x10000))
		payload := randomBytes(rng, rng.Intn(16))

		raw := EncodeFrame(ft, payload)
		f, err := DecodeFrame(raw)
		if err != nil {
			t.Fatalf("round %d: decode of encoded frame failed: %v", i, err)
		}
		if f.Type != ft || !bytes.Equal(f.Payload, payload) || !f.ChecksumValid {
			t.Fatalf("round %d: round trip mismatch: type 0x%04X payload % X", i, uint16(ft), payload)
		}
	}
}

func TestFuzz_DecodeRandomBytes(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		raw := randomBytes(rng, rng.Intn(20))
		if len(raw) > 0 && rng.Intn(2) == 0 {
			raw[0] = StartByte
			raw[len(raw)-1] = EndByte
		}

		// Must never panic
		_, _ = DecodeFrame(raw)
		_, _ = Network.Decode(raw)
		_ = ValidateFrame(Network, raw)
		_ = FormatFrame(Network, raw)
	}
}

func TestFuzz_SingleBitFlipDetected(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	samples := sampleNetworkMessages()

	for i := 0; i < rounds; i++ {
		raw := Encode(samples[rng.Intn(len(samples))])

		// Flip one bit in the type/payload region
		pos := 1 + rng.Intn(len(raw)-3)
		raw[pos] ^= 1 << uint(rng.Intn(8))

		f, err := DecodeFrame(raw)
		if err != nil {
			t.Fatalf("round %d: bit flip broke framing: %v", i, err)
		}
		if f.ChecksumValid {
			t.Fatalf("round %d: single bit flip at %d not detected", i, pos)
		}
	}
}

// ============================================================
// Framer Fuzz Tests
// ============================================================

func TestFuzz_FramerStream(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	samples := sampleNetworkMessages()
	quiet := 20 * time.Millisecond

	f := NewFramer(quiet)
	now := time.Unix(0, 0)

	for i := 0; i < rounds; i++ {
		var data []byte
		if rng.Intn(4) == 0 {
			data = randomBytes(rng, rng.Intn(32))
		} else {
			data = Encode(samples[rng.Intn(len(samples))])
		}

		for _, b := range data {
			if frame, _ := f.Feed(b, now); frame != nil && frame[0] != StartByte {
				t.Fatalf("round %d: framer returned frame without start byte: % X", i, frame)
			}
		}

		now = now.Add(time.Duration(rng.Intn(40)) * time.Millisecond)
		raw, err := f.Flush(now)
		if err == nil && raw != nil {
			if _, derr := DecodeFrame(raw); derr != nil {
				t.Fatalf("round %d: framer accepted undecodable frame % X: %v", i, raw, derr)
			}
		}
	}
}
