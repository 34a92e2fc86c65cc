// Package blockdev provides the fixed-size block device abstraction that
// the rest of simplefs is built on: synchronous, whole-block reads and
// writes addressed by a zero-based block index, with a fixed block count
// fixed at creation time.
//
// This is modeled on the teacher's drivers/common/blockdevice.go, which
// wraps an io.Seeker with bounds-checked, block-addressed Read/Write.
package blockdev

import (
	"fmt"
	"io"
	"os"

	"github.com/xaionaro-go/bytesextra"
)

// Device is the block device contract every simplefs component talks to.
// All I/O is synchronous; out-of-range block indices are a programming
// error in the core (per spec), but both implementations here still guard
// the boundary since they are the first hop the driver shell or tests take
// from arbitrary user input.
type Device interface {
	// Size returns the total number of addressable blocks.
	Size() uint
	// BlockSize returns the size of a single block, in bytes.
	BlockSize() uint
	// ReadBlock fills buf (which must be exactly BlockSize() bytes) with
	// the contents of block i.
	ReadBlock(i uint, buf []byte) error
	// WriteBlock writes buf (which must be exactly BlockSize() bytes) to
	// block i.
	WriteBlock(i uint, buf []byte) error
}

func checkBounds(i uint, total uint, buf []byte, blockSize uint) error {
	if i >= total {
		return fmt.Errorf("block index %d not in range [0, %d)", i, total)
	}
	if uint(len(buf)) != blockSize {
		return fmt.Errorf("buffer must be exactly %d bytes, got %d", blockSize, len(buf))
	}
	return nil
}

// FileDevice is a Device backed by an *os.File, sized to an integer number
// of fixed-size blocks.
type FileDevice struct {
	file        *os.File
	blockSize   uint
	totalBlocks uint
}

// OpenFileDevice opens path for synchronous reads and writes and treats it
// as a block device with blockSize-byte blocks. The file must already be
// exactly totalBlocks*blockSize bytes long; OpenFileDevice does not create
// or resize it.
func OpenFileDevice(path string, blockSize, totalBlocks uint) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	wantSize := int64(blockSize) * int64(totalBlocks)
	if info.Size() != wantSize {
		f.Close()
		return nil, fmt.Errorf(
			"%s is %d bytes, expected %d (%d blocks of %d bytes)",
			path, info.Size(), wantSize, totalBlocks, blockSize)
	}

	return &FileDevice{file: f, blockSize: blockSize, totalBlocks: totalBlocks}, nil
}

// CreateFileDevice creates (or truncates) path to exactly
// blockSize*totalBlocks zeroed bytes and returns a Device over it.
func CreateFileDevice(path string, blockSize, totalBlocks uint) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(blockSize) * int64(totalBlocks)); err != nil {
		f.Close()
		return nil, err
	}
	return &FileDevice{file: f, blockSize: blockSize, totalBlocks: totalBlocks}, nil
}

func (d *FileDevice) Size() uint      { return d.totalBlocks }
func (d *FileDevice) BlockSize() uint { return d.blockSize }

func (d *FileDevice) ReadBlock(i uint, buf []byte) error {
	if err := checkBounds(i, d.totalBlocks, buf, d.blockSize); err != nil {
		return err
	}
	_, err := d.file.ReadAt(buf, int64(i)*int64(d.blockSize))
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (d *FileDevice) WriteBlock(i uint, buf []byte) error {
	if err := checkBounds(i, d.totalBlocks, buf, d.blockSize); err != nil {
		return err
	}
	_, err := d.file.WriteAt(buf, int64(i)*int64(d.blockSize))
	return err
}

// Close releases the underlying file handle.
func (d *FileDevice) Close() error {
	return d.file.Close()
}

// MemoryDevice is a Device backed entirely by memory, via
// github.com/xaionaro-go/bytesextra's in-memory io.ReadWriteSeeker. It is
// used by fstest fixtures and by the core's own tests.
type MemoryDevice struct {
	stream      io.ReadWriteSeeker
	blockSize   uint
	totalBlocks uint
}

// NewMemoryDevice allocates a zeroed in-memory block device of totalBlocks
// blocks of blockSize bytes each.
func NewMemoryDevice(blockSize, totalBlocks uint) *MemoryDevice {
	buf := make([]byte, blockSize*totalBlocks)
	return &MemoryDevice{
		stream:      bytesextra.NewReadWriteSeeker(buf),
		blockSize:   blockSize,
		totalBlocks: totalBlocks,
	}
}

func (d *MemoryDevice) Size() uint      { return d.totalBlocks }
func (d *MemoryDevice) BlockSize() uint { return d.blockSize }

func (d *MemoryDevice) ReadBlock(i uint, buf []byte) error {
	if err := checkBounds(i, d.totalBlocks, buf, d.blockSize); err != nil {
		return err
	}
	if _, err := d.stream.Seek(int64(i)*int64(d.blockSize), io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(d.stream, buf)
	return err
}

func (d *MemoryDevice) WriteBlock(i uint, buf []byte) error {
	if err := checkBounds(i, d.totalBlocks, buf, d.blockSize); err != nil {
		return err
	}
	if _, err := d.stream.Seek(int64(i)*int64(d.blockSize), io.SeekStart); err != nil {
		return err
	}
	_, err := d.stream.Write(buf)
	return err
}
