package blockdev_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inodefs/simplefs/blockdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeviceReadWriteRoundTrip(t *testing.T) {
	dev := blockdev.NewMemoryDevice(512, 4)
	require.EqualValues(t, 4, dev.Size())
	require.EqualValues(t, 512, dev.BlockSize())

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	require.NoError(t, dev.WriteBlock(2, payload))

	readBack := make([]byte, 512)
	require.NoError(t, dev.ReadBlock(2, readBack))
	assert.Equal(t, payload, readBack)

	// Untouched blocks stay zeroed.
	zero := make([]byte, 512)
	other := make([]byte, 512)
	require.NoError(t, dev.ReadBlock(0, other))
	assert.Equal(t, zero, other)
}

func TestMemoryDeviceOutOfRange(t *testing.T) {
	dev := blockdev.NewMemoryDevice(512, 4)
	buf := make([]byte, 512)
	assert.Error(t, dev.ReadBlock(4, buf))
	assert.Error(t, dev.WriteBlock(100, buf))
}

func TestMemoryDeviceWrongBufferSize(t *testing.T) {
	dev := blockdev.NewMemoryDevice(512, 4)
	assert.Error(t, dev.ReadBlock(0, make([]byte, 10)))
	assert.Error(t, dev.WriteBlock(0, make([]byte, 1024)))
}

func TestFileDeviceCreateOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")

	created, err := blockdev.CreateFileDevice(path, 512, 8)
	require.NoError(t, err)

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, created.WriteBlock(5, payload))
	require.NoError(t, created.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 512*8, info.Size())

	reopened, err := blockdev.OpenFileDevice(path, 512, 8)
	require.NoError(t, err)
	defer reopened.Close()

	readBack := make([]byte, 512)
	require.NoError(t, reopened.ReadBlock(5, readBack))
	assert.Equal(t, payload, readBack)
}

func TestOpenFileDeviceRejectsWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	_, err := blockdev.CreateFileDevice(path, 512, 4)
	require.NoError(t, err)

	_, err = blockdev.OpenFileDevice(path, 512, 999)
	assert.Error(t, err)
}
