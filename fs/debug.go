package fs

import (
	"fmt"
	"io"

	"github.com/inodefs/simplefs/fserrors"
)

// Debug writes a human-readable dump of the superblock and every valid
// inode to w: the inumber, size, nonzero direct block list, and (if
// present) the indirect block number followed by its nonzero pointer
// contents. It never mutates filesystem state.
//
// Grounded on original_source/fs.c's fs_debug, with one deliberate
// deviation: that source returns early the first time it meets a
// zero-size valid inode, silently skipping every inode after it. This
// implementation always walks every valid inode to completion, since
// spec.md never calls for that early exit and it looks like exactly the
// kind of bug spec.md §9 asks an implementer to notice and not repeat.
func (fs *Filesystem) Debug(w io.Writer) error {
	if err := fs.requireMounted(); err != nil {
		return err
	}

	fmt.Fprintln(w, "superblock:")
	fmt.Fprintf(w, "    %d blocks\n", fs.sb.NBlocks)
	fmt.Fprintf(w, "    %d inode blocks\n", fs.sb.NInodeBlocks)
	fmt.Fprintf(w, "    %d inodes\n", fs.sb.NInodes)

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

			inumber := (blockIdx-1)*InodesPerBlock + uint32(slot)
			fmt.Fprintf(w, "inode %d:\n", inumber)
			fmt.Fprintf(w, "    size: %d bytes\n", inode.Size)

			fmt.Fprint(w, "    direct blocks:")
			for _, ptr := range inode.Direct {
				if ptr != 0 {
					fmt.Fprintf(w, " %d", ptr)
				}
			}
			fmt.Fprintln(w)

			if inode.Indirect != 0 {
				fmt.Fprintf(w, "    indirect block: %d\n", inode.Indirect)

				indRaw := make([]byte, BlockSize)
				if err := fs.device.ReadBlock(uint(inode.Indirect), indRaw); err != nil {
					return fserrors.Wrap(fserrors.IOError, err)
				}
				pointers := decodePointerBlock(indRaw)

				fmt.Fprint(w, "    indirect data blocks:")
				for _, ptr := range pointers {
					if ptr != 0 {
						fmt.Fprintf(w, " %d", ptr)
					}
				}
				fmt.Fprintln(w)
			}
		}
	}

	return nil
}
