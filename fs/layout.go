// Package fs implements a flat, Unix-style inode file system over a
// blockdev.Device: a superblock, an inode table of fixed-size packed
// records, five direct block pointers and one single-level indirect
// pointer per inode, and an in-memory free-block bitmap rebuilt at mount
// time.
//
// There are no directories, permissions, timestamps, or journaling; see
// SPEC_FULL.md for the full rationale. Filesystem is not safe for
// concurrent use — exactly one goroutine may call its methods at a time,
// mirroring the single-threaded, non-reentrant execution model it was
// modeled on.
package fs

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"
)

// Magic is the superblock sentinel value identifying a simplefs image.
const Magic uint32 = 0xF0F03410

// BlockSize is the compile-time block size, in bytes, of every block on a
// simplefs device. It is also the device's blockdev.Device.BlockSize().
const BlockSize = 4096

// PointerSize is the on-disk width, in bytes, of a single block index.
const PointerSize = 4

// InodesPerBlock is the number of packed 32-byte inodes that fit in one
// BlockSize-byte block.
const InodesPerBlock = BlockSize / inodeSize

// PointersPerBlock is the number of 32-bit block indices that fit in one
// indirect block.
const PointersPerBlock = BlockSize / PointerSize

// PointersPerInode is the number of direct block pointers stored in each
// inode.
const PointersPerInode = 5

// inodeSize is the packed, on-disk size of a single inode record: isvalid,
// size, 5 direct pointers, 1 indirect pointer, all uint32.
const inodeSize = 4 * (2 + PointersPerInode + 1)

// Inumber identifies an inode. 0 is reserved as the failure/invalid
// sentinel (spec.md §9's resolution of the original source's off-by-one
// inumber confusion): valid inumbers returned by Create are always > 0,
// but the inode-table slot computation itself is 0-based internally.
type Inumber uint32

// Superblock is the on-disk geometry record stored in block 0.
type Superblock struct {
	Magic        uint32
	NBlocks      uint32
	NInodeBlocks uint32
	NInodes      uint32
}

// Inode is the packed, 32-byte on-disk inode record.
type Inode struct {
	IsValid  uint32
	Size     uint32
	Direct   [PointersPerInode]uint32
	Indirect uint32
}

// encodeSuperblock serializes sb into a zero-padded BlockSize-byte block.
func encodeSuperblock(sb Superblock) [BlockSize]byte {
	var block [BlockSize]byte
	w := bytewriter.New(block[:])
	binary.Write(w, binary.LittleEndian, &sb)
	return block
}

// decodeSuperblock parses block 0's contents into a Superblock.
func decodeSuperblock(block []byte) Superblock {
	var sb Superblock
	binary.Read(bytes.NewReader(block), binary.LittleEndian, &sb)
	return sb
}

// encodeInodeTableBlock serializes InodesPerBlock inodes into a single
// on-disk block.
func encodeInodeTableBlock(inodes [InodesPerBlock]Inode) [BlockSize]byte {
	var block [BlockSize]byte
	w := bytewriter.New(block[:])
	binary.Write(w, binary.LittleEndian, &inodes)
	return block
}

// decodeInodeTableBlock parses a single inode-table block into its
// InodesPerBlock inode records.
func decodeInodeTableBlock(block []byte) [InodesPerBlock]Inode {
	var inodes [InodesPerBlock]Inode
	binary.Read(bytes.NewReader(block), binary.LittleEndian, &inodes)
	return inodes
}

// encodePointerBlock serializes PointersPerBlock block indices (an
// indirect block) into a single on-disk block.
func encodePointerBlock(pointers [PointersPerBlock]uint32) [BlockSize]byte {
	var block [BlockSize]byte
	w := bytewriter.New(block[:])
	binary.Write(w, binary.LittleEndian, &pointers)
	return block
}

// decodePointerBlock parses a single indirect block into its
// PointersPerBlock block indices.
func decodePointerBlock(block []byte) [PointersPerBlock]uint32 {
	var pointers [PointersPerBlock]uint32
	binary.Read(bytes.NewReader(block), binary.LittleEndian, &pointers)
	return pointers
}

// inodeTableBlockFor returns the inode-table block number and in-block
// slot index for n, per spec.md §3: block n/InodesPerBlock + 1, slot
// n%InodesPerBlock.
func inodeTableBlockFor(n Inumber) (block uint, slot uint) {
	block = uint(n)/InodesPerBlock + 1
	slot = uint(n) % InodesPerBlock
	return block, slot
}

// ceilDiv returns ceil(a/b) for non-negative a and positive b.
func ceilDiv(a, b uint32) uint32 {
	if a == 0 {
		return 0
	}
	return (a-1)/b + 1
}
