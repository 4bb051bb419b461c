package hapcan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{"empty", nil, 0x00},
		{"single byte", []byte{0x42}, 0x42},
		{"wraps modulo 256", []byte{0xFF, 0x02}, 0x01},
		{"hw type response body", []byte{0x10, 0x41, 0x30, 0x00, 0x03, 0xFF, 0x01, 0x23, 0x45, 0x67}, 0x53},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.data))
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	raw := EncodeFrame(0x1000, nil)
	assert.Equal(t, []byte{0xAA, 0x10, 0x00, 0x10, 0xA5}, raw)

	raw = EncodeFrame(TypeHwTypeRespNode, []byte{0x30, 0x00, 0x03, 0xFF, 0x01, 0x23, 0x45, 0x67})
	assert.Equal(t, []byte{0xAA, 0x10, 0x41, 0x30, 0x00, 0x03, 0xFF, 0x01, 0x23, 0x45, 0x67, 0x53, 0xA5}, raw)
}

func TestDecodeFrame(t *testing.T) {
	raw := []byte{0xAA, 0x10, 0x41, 0x30, 0x00, 0x03, 0xFF, 0x01, 0x23, 0x45, 0x67, 0x53, 0xA5}

	f, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeHwTypeRespNode, f.Type)
	assert.Equal(t, raw[3:11], f.Payload)
	assert.Equal(t, byte(0x53), f.Checksum)
	assert.True(t, f.ChecksumValid)
	assert.Equal(t, len(raw), f.Len())
	assert.Equal(t, raw, f.Bytes())

	// Payload must not alias the input buffer
	raw[3] = 0x00
	assert.Equal(t, byte(0x30), f.Payload[0])
}

func TestDecodeFrame_ChecksumMismatch(t *testing.T) {
	raw := []byte{0xAA, 0x10, 0x41, 0x30, 0x00, 0x03, 0xFF, 0x01, 0x23, 0x45, 0x67, 0x54, 0xA5}

	f, err := DecodeFrame(raw)
	require.NoError(t, err, "checksum mismatch must not fail decoding")
	assert.False(t, f.ChecksumValid)
	assert.Equal(t, TypeHwTypeRespNode, f.Type)
}

func TestDecodeFrame_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", []byte{}},
		{"four bytes", []byte{0xAA, 0x10, 0x00, 0xA5}},
		{"bad start byte", []byte{0xAB, 0x10, 0x00, 0x10, 0xA5}},
		{"bad end byte", []byte{0xAA, 0x10, 0x00, 0x10, 0xA6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(tt.raw)
			assert.True(t, errors.Is(err, ErrInvalidFrame), "got %v", err)
		})
	}
}

func TestExtractType(t *testing.T) {
	assert.Equal(t, FrameType(0x10E1), ExtractType([]byte{0xAA, 0x10, 0xE1}))
	assert.Equal(t, TypeExitAllBootloader, ExtractType([]byte{0xAA, 0x01, 0x00, 0x00}))
}

func TestAddress24(t *testing.T) {
	b := make([]byte, 3)
	PutAddress24(b, 0xF00026)
	assert.Equal(t, []byte{0xF0, 0x00, 0x26}, b)
	assert.Equal(t, uint32(0xF00026), Address24(b))

	// Only the low 24 bits are stored
	PutAddress24(b, 0xFF123456)
	assert.Equal(t, uint32(0x123456), Address24(b))
}
