package fs

import (
	"github.com/inodefs/simplefs/fserrors"
)

// maxFileBlocks is the largest number of data blocks a single inode can
// address: five direct pointers plus the 1024 entries of one indirect
// block.
const maxFileBlocks = PointersPerInode + PointersPerBlock

// MaxFileSize is the largest file size, in bytes, representable by a
// single inode (spec.md §3 invariant 5).
const MaxFileSize = int64(maxFileBlocks) * BlockSize

// Read copies up to length bytes of inumber n's data, starting at offset,
// into buf (which must be at least length bytes), and returns the number
// of bytes actually copied.
//
// It returns -1 if the filesystem isn't mounted, n is out of range, or n's
// inode isn't allocated. Reading at or past end-of-file returns 0, nil.
// This replaces the original source's fs_read, which (per spec.md §9) had
// a copy-loop bug indexing by the wrong loop variable; here each block is
// copied byte-range by byte-range from its own buffer.
func (fs *Filesystem) Read(n Inumber, buf []byte, length int, offset int64) (int, error) {
	if err := fs.requireMounted(); err != nil {
		return -1, err
	}
	if !fs.isUsableInumber(n) {
		return -1, fserrors.Newf(fserrors.InvalidInumber, "inumber %d out of range", n)
	}

	inode, err := fs.inodes.load(n)
	if err != nil {
		return -1, err
	}
	if inode.IsValid == 0 {
		return -1, fserrors.Newf(fserrors.InvalidInumber, "inode %d is not allocated", n)
	}

	if offset < 0 || offset >= int64(inode.Size) {
		return 0, nil
	}
	if length <= 0 {
		return 0, nil
	}

	effLength := length
	if remaining := int64(inode.Size) - offset; int64(effLength) > remaining {
		effLength = int(remaining)
	}
	if effLength > len(buf) {
		effLength = len(buf)
	}

	var indirect [PointersPerBlock]uint32
	indirectLoaded := false

	startBlock := uint32(offset / BlockSize)
	endBlock := uint32((offset + int64(effLength) - 1) / BlockSize)

	copied := 0
	blockBuf := make([]byte, BlockSize)

	for l := startBlock; l <= endBlock; l++ {
		physical, err := fs.resolveLogicalBlock(inode, &indirect, &indirectLoaded, l)
		if err != nil {
			return -1, err
		}
		if physical == 0 {
			return -1, fserrors.Newf(
				fserrors.OutOfBounds,
				"logical block %d of inode %d has no backing block", l, n)
		}

		if err := fs.device.ReadBlock(uint(physical), blockBuf); err != nil {
			return -1, fserrors.Wrap(fserrors.IOError, err)
		}

		prefix := uint32(0)
		if l == startBlock {
			prefix = uint32(offset % BlockSize)
		}
		suffix := uint32(BlockSize)
		if l == endBlock {
			suffix = uint32((offset+int64(effLength)-1)%BlockSize) + 1
		}

		copied += copy(buf[copied:], blockBuf[prefix:suffix])
	}

	return copied, nil
}

// Write copies up to length bytes from data, starting at offset, into
// inumber n, allocating direct and indirect blocks as needed. It never
// implicitly allocates an inode — writing to an invalid inode is a no-op
// returning 0 (spec.md §9 corrects the original source, which in some
// revisions allowed write to silently allocate the inode). It returns the
// number of bytes actually written, which may be less than length if the
// allocator runs out of space or the write would exceed MaxFileSize;
// whatever succeeded before that point is persisted.
func (fs *Filesystem) Write(n Inumber, data []byte, length int, offset int64) (int, error) {
	if err := fs.requireMounted(); err != nil {
		return 0, err
	}
	if !fs.isUsableInumber(n) {
		return 0, fserrors.Newf(fserrors.InvalidInumber, "inumber %d out of range", n)
	}
	if length <= 0 || offset < 0 {
		return 0, nil
	}

	inode, err := fs.inodes.load(n)
	if err != nil {
		return 0, err
	}
	if inode.IsValid == 0 {
		return 0, nil
	}

	if length > len(data) {
		length = len(data)
	}

	var indirect [PointersPerBlock]uint32
	indirectLoaded := false
	indirectDirty := false

	remaining := length
	written := 0
	curOffset := offset
	blockBuf := make([]byte, BlockSize)

	// loadIndirectOnce decodes the existing indirect block, if any, the
	// first time a logical block past the direct pointers is touched.
	loadIndirectOnce := func() error {
		if indirectLoaded {
			return nil
		}
		if inode.Indirect != 0 {
			raw := make([]byte, BlockSize)
			if err := fs.device.ReadBlock(uint(inode.Indirect), raw); err != nil {
				return fserrors.Wrap(fserrors.IOError, err)
			}
			indirect = decodePointerBlock(raw)
		}
		indirectLoaded = true
		return nil
	}

	for remaining > 0 {
		l := uint32(curOffset / BlockSize)
		if l >= maxFileBlocks {
			// Out of bounds: persist whatever succeeded and return the
			// partial count, per spec.md §7's policy.
			break
		}
		inBlockOffset := uint32(curOffset % BlockSize)

		var physical uint32
		if l < PointersPerInode {
			physical = inode.Direct[l]
		} else {
			if err := loadIndirectOnce(); err != nil {
				return written, err
			}
			if inode.Indirect == 0 {
				allocated, allocErr := fs.alloc.allocate()
				if allocErr != nil {
					break
				}
				inode.Indirect = allocated
				indirectDirty = true
			}
			physical = indirect[l-PointersPerInode]
		}

		if physical == 0 {
			allocated, allocErr := fs.alloc.allocate()
			if allocErr != nil {
				// No space: persist everything that succeeded so far and
				// return the partial count, per spec.md §7's policy.
				break
			}
			physical = allocated
			if l < PointersPerInode {
				inode.Direct[l] = physical
			} else {
				indirect[l-PointersPerInode] = physical
				indirectDirty = true
			}
		}

		writeLen := BlockSize - int(inBlockOffset)
		if writeLen > remaining {
			writeLen = remaining
		}

		if inBlockOffset != 0 || writeLen < BlockSize {
			if err := fs.device.ReadBlock(uint(physical), blockBuf); err != nil {
				return written, fserrors.Wrap(fserrors.IOError, err)
			}
		}
		copy(blockBuf[inBlockOffset:int(inBlockOffset)+writeLen], data[written:written+writeLen])
		if err := fs.device.WriteBlock(uint(physical), blockBuf); err != nil {
			return written, fserrors.Wrap(fserrors.IOError, err)
		}

		written += writeLen
		remaining -= writeLen
		curOffset += int64(writeLen)
		if curOffset > int64(inode.Size) {
			inode.Size = uint32(curOffset)
		}
	}

	if indirectDirty {
		encoded := encodePointerBlock(indirect)
		if err := fs.device.WriteBlock(uint(inode.Indirect), encoded[:]); err != nil {
			return written, fserrors.Wrap(fserrors.IOError, err)
		}
	}
	if err := fs.inodes.store(n, inode); err != nil {
		return written, err
	}

	return written, nil
}

// resolveLogicalBlock maps logical block l of a read-only inode to a
// physical block index, per spec.md §4.5: direct for l<5, the (l-5)th
// indirect-block entry otherwise. *indirect and *indirectLoaded cache the
// decoded indirect block across calls within a single Read. A zero return
// with a nil error means "no block allocated at this slot" (the indirect
// block itself doesn't exist, or its entry is empty).
func (fs *Filesystem) resolveLogicalBlock(
	inode Inode, indirect *[PointersPerBlock]uint32, indirectLoaded *bool, l uint32,
) (uint32, error) {
	if l < PointersPerInode {
		return inode.Direct[l], nil
	}

	idx := l - PointersPerInode
	if idx >= PointersPerBlock {
		return 0, fserrors.Newf(fserrors.OutOfBounds, "logical block %d exceeds file capacity", l)
	}

	if !*indirectLoaded {
		if inode.Indirect == 0 {
			return 0, nil
		}
		raw := make([]byte, BlockSize)
		if err := fs.device.ReadBlock(uint(inode.Indirect), raw); err != nil {
			return 0, fserrors.Wrap(fserrors.IOError, err)
		}
		*indirect = decodePointerBlock(raw)
		*indirectLoaded = true
	}

	return indirect[idx], nil
}
