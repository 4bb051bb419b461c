package hapcan

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQuiet = 20 * time.Millisecond

func feedAll(f *Framer, data []byte, now time.Time) (frames [][]byte, discarded int) {
	for _, b := range data {
		frame, d := f.Feed(b, now)
		if frame != nil {
			frames = append(frames, frame)
		}
		discarded += d
	}
	return frames, discarded
}

func TestFramer_CompletesAfterQuietInterval(t *testing.T) {
	f := NewFramer(testQuiet)
	t0 := time.Unix(0, 0)
	raw := Encode(HwTypeReqNode{Sender: Address{1, 1}, Target: Address{2, 2}})

	frames, discarded := feedAll(f, raw, t0)
	assert.Empty(t, frames)
	assert.Zero(t, discarded)
	assert.Equal(t, len(raw), f.Buffered())

	got, err := f.Flush(t0.Add(testQuiet - time.Millisecond))
	require.NoError(t, err)
	assert.Nil(t, got, "frame must not complete before the quiet interval")

	got, err = f.Flush(t0.Add(testQuiet))
	require.NoError(t, err)
	assert.Equal(t, raw, got)
	assert.Zero(t, f.Buffered())

	got, err = f.Flush(t0.Add(time.Second))
	require.NoError(t, err)
	assert.Nil(t, got, "empty buffer never completes")
}

func TestFramer_EndByteInsidePayload(t *testing.T) {
	f := NewFramer(testQuiet)
	t0 := time.Unix(0, 0)

	// 0xA5 inside the payload must not terminate the frame
	raw := Encode(DataFrame{Target: Address{1, 1}, Data: [8]byte{0xA5, 0xA5, 0, 0, 0, 0, 0, 0}})
	feedAll(f, raw[:5], t0)
	feedAll(f, raw[5:], t0.Add(5*time.Millisecond))

	got, err := f.Flush(t0.Add(5*time.Millisecond + testQuiet))
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestFramer_StartByteResetsPartialFrame(t *testing.T) {
	f := NewFramer(testQuiet)
	t0 := time.Unix(0, 0)

	partial := []byte{0xAA, 0x10, 0x40, 0x01}
	raw := EncodeFrame(TypeHwTypeReqNode, nil)

	frames, discarded := feedAll(f, append(partial, raw...), t0)
	assert.Empty(t, frames)
	assert.Equal(t, len(partial), discarded)

	got, err := f.Flush(t0.Add(testQuiet))
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestFramer_BackToBackFrames(t *testing.T) {
	f := NewFramer(testQuiet)
	t0 := time.Unix(0, 0)

	first := EncodeFrame(TypeHwTypeReqNode, nil)
	second := EncodeFrame(TypeFwTypeReqNode, nil)

	frames, discarded := feedAll(f, append(append([]byte{}, first...), second...), t0)
	require.Len(t, frames, 1)
	assert.Equal(t, first, frames[0])
	assert.Zero(t, discarded)

	got, err := f.Flush(t0.Add(testQuiet))
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestFramer_InvalidBuffer(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"no start byte", []byte{0x10, 0x00, 0x10, 0xA5}},
		{"no end byte", []byte{0xAA, 0x10, 0x00, 0x10}},
		{"too short", []byte{0xAA, 0xA5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFramer(testQuiet)
			t0 := time.Unix(0, 0)
			feedAll(f, tt.data, t0)

			got, err := f.Flush(t0.Add(testQuiet))
			assert.True(t, errors.Is(err, ErrInvalidFrame), "got %v", err)
			assert.Equal(t, tt.data, got)
			assert.Zero(t, f.Buffered(), "invalid buffer must be discarded")
		})
	}
}
