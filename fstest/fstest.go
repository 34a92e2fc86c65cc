// Package fstest provides small, dependency-light fixtures for testing
// simplefs: in-memory block devices and deterministic payload generators.
//
// Grounded on the teacher's testing/images.go, which built a test block
// stream by decompressing an embedded fixture image into a
// bytesextra.ReadWriteSeeker. simplefs has no historical disk images to
// load, so fixtures here are generated programmatically instead.
package fstest

import (
	"github.com/inodefs/simplefs/blockdev"
	"github.com/inodefs/simplefs/fs"
)

// NewMemoryImage returns a zeroed in-memory block device of nblocks blocks
// of fs.BlockSize bytes each, ready to be formatted and mounted.
func NewMemoryImage(nblocks uint) *blockdev.MemoryDevice {
	return blockdev.NewMemoryDevice(fs.BlockSize, nblocks)
}

// DeterministicPayload returns an n-byte slice whose contents are a
// reproducible function of seed, so multi-block write/read tests can
// compare round-tripped data without stashing a copy of random bytes.
func DeterministicPayload(n int, seed byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)*31 + seed
	}
	return buf
}

// FormattedAndMounted creates an nblocks-block in-memory image, formats
// it, and mounts it, returning the ready-to-use Filesystem. It panics on
// failure since test setup failures are a fixture bug, not a test case.
func FormattedAndMounted(nblocks uint) *fs.Filesystem {
	device := NewMemoryImage(nblocks)
	fsys := fs.New(device)
	if err := fsys.Format(); err != nil {
		panic(err)
	}
	if err := fsys.Mount(); err != nil {
		panic(err)
	}
	return fsys
}
