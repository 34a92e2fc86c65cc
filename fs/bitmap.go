package fs

import (
	"github.com/boljen/go-bitmap"
	"github.com/inodefs/simplefs/fserrors"
)

// blockAllocator is the in-memory free-block bitmap (C4) and the first-fit
// allocator over it (C5). It exists only while a Filesystem is mounted; it
// is never persisted and must be rebuilt from on-disk inode pointers at
// every mount.
//
// Adapted from the teacher's drivers/common/allocatormap.go Allocator,
// which already implements first-fit allocate/release over the same
// boljen/go-bitmap dependency — generalized here from an arbitrary "unit"
// to specifically data blocks, with Filesystem.rebuildBitmap replacing the
// teacher's constructor-only initialization.
type blockAllocator struct {
	freeMap     bitmap.Bitmap
	totalBlocks uint
}

func newBlockAllocator(totalBlocks uint) *blockAllocator {
	return &blockAllocator{
		freeMap:     bitmap.New(int(totalBlocks)),
		totalBlocks: totalBlocks,
	}
}

func (a *blockAllocator) isOccupied(i uint32) bool {
	return a.freeMap.Get(int(i))
}

func (a *blockAllocator) markOccupied(i uint32) {
	a.freeMap.Set(int(i), true)
}

func (a *blockAllocator) markFree(i uint32) {
	a.freeMap.Set(int(i), false)
}

// allocate scans the bitmap in ascending order and returns the first free
// block, marking it occupied. The ascending scan is deterministic by
// design (spec.md §4.3's "tie-break: first-fit by ascending index"), which
// is what makes scenarios S3-S5 reproducible in tests.
func (a *blockAllocator) allocate() (uint32, error) {
	for i := uint(0); i < a.totalBlocks; i++ {
		if !a.freeMap.Get(int(i)) {
			a.freeMap.Set(int(i), true)
			return uint32(i), nil
		}
	}
	return 0, fserrors.New(fserrors.NoSpace)
}

// release marks block i free. Releasing an already-free block is a no-op,
// matching spec.md §7's policy that it is one of the error cases that
// should never be surfaced to the caller.
func (a *blockAllocator) release(i uint32) {
	if uint(i) >= a.totalBlocks {
		return
	}
	a.freeMap.Set(int(i), false)
}

// snapshot returns a copy of the occupancy state, used only by tests to
// inspect which blocks are marked occupied.
func (a *blockAllocator) snapshot() []bool {
	out := make([]bool, a.totalBlocks)
	for i := uint(0); i < a.totalBlocks; i++ {
		out[i] = a.freeMap.Get(int(i))
	}
	return out
}
