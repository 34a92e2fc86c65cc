package fs

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/inodefs/simplefs/fserrors"
)

// Check walks every valid inode and validates the invariants spec.md §8
// requires to hold whenever the filesystem is quiescent: every nonzero
// pointer is marked occupied in the bitmap, no data block is claimed by
// two inodes, and the number of reachable data blocks matches
// ceil(size/BlockSize). Every violation found is collected and returned
// together, rather than stopping at the first one, using
// hashicorp/go-multierror — a dependency the teacher required but never
// actually imported anywhere in its own source (see DESIGN.md).
//
// Check is read-only and is never called from Format, Mount, Create,
// Delete, or Write; it exists for tooling and tests that want to assert
// the filesystem is in a consistent state.
func (fs *Filesystem) Check() error {
	if err := fs.requireMounted(); err != nil {
		return err
	}

	var result *multierror.Error
	claimedBy := make(map[uint32]Inumber)

	claim := func(block uint32, owner Inumber) {
		if block == 0 {
			return
		}
		if !fs.alloc.isOccupied(block) {
			result = multierror.Append(result, fmt.Errorf(
				"inode %d references block %d, which the bitmap marks free", owner, block))
		}
		if prior, taken := claimedBy[block]; taken && prior != owner {
			result = multierror.Append(result, fmt.Errorf(
				"block %d is referenced by both inode %d and inode %d", block, prior, owner))
		}
		claimedBy[block] = owner
	}

	for blockIdx := uint32(1); blockIdx <= fs.sb.NInodeBlocks; blockIdx++ {
		raw := make([]byte, BlockSize)
		if err := fs.device.ReadBlock(uint(blockIdx), raw); err != nil {
			return fserrors.Wrap(fserrors.IOError, err)
		}
		table := decodeInodeTableBlock(raw)

		for slot, inode := range table {
			if inode.IsValid == 0 {
				continue
			}
			inumber := Inumber((blockIdx-1)*InodesPerBlock + uint32(slot))

			reachable := uint32(0)
			for _, ptr := range inode.Direct {
				if ptr != 0 {
					claim(ptr, inumber)
					reachable++
				}
			}
			if inode.Indirect != 0 {
				claim(inode.Indirect, inumber)

				indRaw := make([]byte, BlockSize)
				if err := fs.device.ReadBlock(uint(inode.Indirect), indRaw); err != nil {
					return fserrors.Wrap(fserrors.IOError, err)
				}
				for _, ptr := range decodePointerBlock(indRaw) {
					if ptr != 0 {
						claim(ptr, inumber)
						reachable++
					}
				}
			}

			want := ceilDiv(inode.Size, BlockSize)
			if reachable != want {
				result = multierror.Append(result, fmt.Errorf(
					"inode %d has size %d (expects %d data blocks) but reaches %d",
					inumber, inode.Size, want, reachable))
			}
		}
	}

	if result != nil {
		return result.ErrorOrNil()
	}
	return nil
}
