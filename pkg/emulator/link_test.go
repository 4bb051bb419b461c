package emulator

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamLink(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	link := NewStreamLink(local)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- link.Run(ctx) }()

	_, err := remote.Write([]byte{0xAA, 0x10, 0x40})
	require.NoError(t, err)

	var got []byte
	require.Eventually(t, func() bool {
		got = append(got, link.ReadAvailable()...)
		return len(got) == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, []byte{0xAA, 0x10, 0x40}, got)
	assert.Nil(t, link.ReadAvailable())

	go func() { _ = link.Write([]byte{0xA5}) }()
	buf := make([]byte, 1)
	_, err = remote.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0xA5), buf[0])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.NoError(t, link.Close())
}

func TestStreamLink_RemoteClose(t *testing.T) {
	local, remote := net.Pipe()
	link := NewStreamLink(local)

	done := make(chan error, 1)
	go func() { done <- link.Run(context.Background()) }()

	require.NoError(t, remote.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after remote close")
	}
}
