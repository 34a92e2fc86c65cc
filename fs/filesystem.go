package fs

import (
	"github.com/inodefs/simplefs/blockdev"
	"github.com/inodefs/simplefs/fserrors"
	"github.com/sirupsen/logrus"
)

// Filesystem is the single owned handle every simplefs operation goes
// through: the block device, the decoded superblock, the inode accessor,
// and (only while mounted) the free-block allocator.
//
// This replaces the teacher's (and, further back, the original C source's)
// process-wide globals — mounted, inode_blocks, allocate_bitmap — with an
// explicit value, per spec.md §9's re-architecture note. Filesystem is not
// safe for concurrent use: exactly one goroutine may call its methods at a
// time (spec.md §5).
type Filesystem struct {
	device  blockdev.Device
	sb      Superblock
	inodes  *inodeAccessor
	alloc   *blockAllocator
	mounted bool
	logger  *logrus.Logger
}

// New wraps device in an unmounted Filesystem handle. Call Format (on a
// fresh device) or Mount (on an already-formatted one) before using it.
func New(device blockdev.Device) *Filesystem {
	return &Filesystem{device: device, logger: logrus.New()}
}

// WithLogger stores l on this Filesystem and returns fs for chaining. No
// Filesystem operation writes to the logger: failures (NoSpace, IOError,
// consistency violations) are reported only through returned errors,
// matching the teacher's own policy of returning DriverError rather than
// printing from inside the driver.
func (fs *Filesystem) WithLogger(l *logrus.Logger) *Filesystem {
	fs.logger = l
	return fs
}

// IsMounted reports whether Mount has succeeded and Unmount/Close has not
// yet been called.
func (fs *Filesystem) IsMounted() bool {
	return fs.mounted
}

// Superblock returns a copy of the currently mounted superblock. The
// zero value is returned if the filesystem is not mounted.
func (fs *Filesystem) Superblock() Superblock {
	if !fs.mounted {
		return Superblock{}
	}
	return fs.sb
}

// computeNInodeBlocks applies spec.md §4.4's corrected formula: a true
// ceiling of nblocks/10, floored at 1 — not the original source's
// integer-division "ceil" that actually computed floor.
func computeNInodeBlocks(nblocks uint32) uint32 {
	n := ceilDiv(nblocks, 10)
	if n < 1 {
		n = 1
	}
	return n
}

// Format writes a fresh superblock and zeroes every inode slot in the
// inode table. It is forbidden while mounted. Format does not wipe data
// blocks — an old file's data blocks simply become unreferenced until
// something else claims them, exactly like the on-disk image this was
// modeled on (original_source/fs.c's fs_format, corrected per spec.md §9
// to use a true ceiling rather than integer-division floor).
func (fs *Filesystem) Format() error {
	if fs.mounted {
		return fserrors.New(fserrors.AlreadyMounted)
	}

	nblocks := uint32(fs.device.Size())
	ninodeblocks := computeNInodeBlocks(nblocks)
	ninodes := ninodeblocks * InodesPerBlock

	var emptyInodes [InodesPerBlock]Inode
	emptyBlock := encodeInodeTableBlock(emptyInodes)
	for i := uint32(1); i <= ninodeblocks; i++ {
		if err := fs.device.WriteBlock(uint(i), emptyBlock[:]); err != nil {
			return fserrors.Wrap(fserrors.IOError, err)
		}
	}

	sb := Superblock{
		Magic:        Magic,
		NBlocks:      nblocks,
		NInodeBlocks: ninodeblocks,
		NInodes:      ninodes,
	}
	encoded := encodeSuperblock(sb)
	if err := fs.device.WriteBlock(0, encoded[:]); err != nil {
		return fserrors.Wrap(fserrors.IOError, err)
	}
	return nil
}

// Mount reads the superblock, validates its magic number, and rebuilds the
// free-block bitmap from on-disk inode pointers (spec.md §4.3). Calling
// Mount on an already-mounted Filesystem re-reads and re-checks the
// superblock and replaces the in-memory bitmap with one rebuilt from disk.
func (fs *Filesystem) Mount() error {
	raw := make([]byte, BlockSize)
	if err := fs.device.ReadBlock(0, raw); err != nil {
		return fserrors.Wrap(fserrors.IOError, err)
	}

	sb := decodeSuperblock(raw)
	if sb.Magic != Magic {
		return fserrors.New(fserrors.BadMagic)
	}

	fs.sb = sb
	fs.inodes = newInodeAccessor(fs.device, uint(sb.NInodeBlocks))
	alloc, err := fs.rebuildBitmap(sb)
	if err != nil {
		return err
	}
	fs.alloc = alloc
	fs.mounted = true
	return nil
}

// rebuildBitmap implements spec.md §4.3's mount-time scan: block 0 and the
// inode-table blocks are always occupied, then every nonzero direct and
// indirect pointer reachable from a valid inode is marked occupied too.
func (fs *Filesystem) rebuildBitmap(sb Superblock) (*blockAllocator, error) {
	alloc := newBlockAllocator(uint(sb.NBlocks))

	alloc.markOccupied(0)
	for i := uint32(1); i <= sb.NInodeBlocks; i++ {
		alloc.markOccupied(i)
	}

	for blockIdx := uint32(1); blockIdx <= sb.NInodeBlocks; blockIdx++ {
		raw := make([]byte, BlockSize)
		if err := fs.device.ReadBlock(uint(blockIdx), raw); err != nil {
			return nil, fserrors.Wrap(fserrors.IOError, err)
		}
		table := decodeInodeTableBlock(raw)

		for _, inode := range table {
			if inode.IsValid == 0 {
				continue
			}
			for _, ptr := range inode.Direct {
				if ptr != 0 {
					alloc.markOccupied(ptr)
				}
			}
			if inode.Indirect != 0 {
				alloc.markOccupied(inode.Indirect)
				indRaw := make([]byte, BlockSize)
				if err := fs.device.ReadBlock(uint(inode.Indirect), indRaw); err != nil {
					return nil, fserrors.Wrap(fserrors.IOError, err)
				}
				for _, ptr := range decodePointerBlock(indRaw) {
					if ptr != 0 {
						alloc.markOccupied(ptr)
					}
				}
			}
		}
	}

	return alloc, nil
}

// Unmount releases the bitmap and marks the filesystem unmounted. It is
// idempotent. This is the guaranteed-release half of the scoped
// acquisition spec.md §5 calls for: the bitmap is allocated in Mount and
// must be released here even if the caller is unwinding from a failure.
func (fs *Filesystem) Unmount() error {
	fs.alloc = nil
	fs.mounted = false
	return nil
}

// Close implements io.Closer by unmounting, so callers can `defer
// fs.Close()` immediately after a successful Mount.
func (fs *Filesystem) Close() error {
	return fs.Unmount()
}

// requireMounted returns NotMounted if the filesystem hasn't been
// successfully mounted.
func (fs *Filesystem) requireMounted() error {
	if !fs.mounted {
		return fserrors.New(fserrors.NotMounted)
	}
	return nil
}

// isUsableInumber reports whether n is in the usable range for this
// mounted filesystem. Inumber 0 is always excluded: spec.md §9 resolves
// the original source's off-by-one inumber confusion by reserving 0 as the
// failure/invalid sentinel, so it is never returned by Create or accepted
// by any other operation as a real inode.
func (fs *Filesystem) isUsableInumber(n Inumber) bool {
	return n > 0 && uint32(n) < fs.sb.NInodes
}

// Create allocates the first free inode, in ascending (block, slot) order,
// and returns its inumber. It returns 0 if every inode is in use.
func (fs *Filesystem) Create() (Inumber, error) {
	if err := fs.requireMounted(); err != nil {
		return 0, err
	}

	for blockIdx := uint32(1); blockIdx <= fs.sb.NInodeBlocks; blockIdx++ {
		raw := make([]byte, BlockSize)
		if err := fs.device.ReadBlock(uint(blockIdx), raw); err != nil {
			return 0, fserrors.Wrap(fserrors.IOError, err)
		}
		table := decodeInodeTableBlock(raw)

		for slot, inode := range table {
			n := Inumber((blockIdx-1)*InodesPerBlock + uint32(slot))
			if n == 0 {
				// Reserved sentinel; never allocated to a real file.
				continue
			}
			if inode.IsValid != 0 {
				continue
			}

			table[slot] = Inode{IsValid: 1}
			encoded := encodeInodeTableBlock(table)
			if err := fs.device.WriteBlock(uint(blockIdx), encoded[:]); err != nil {
				return 0, fserrors.Wrap(fserrors.IOError, err)
			}
			return n, nil
		}
	}

	return 0, nil
}

// Delete frees every block referenced by inumber n — its direct blocks,
// its indirect block, and every block the indirect block points to — then
// zeroes and invalidates the inode itself. It returns InvalidInumber if n
// is out of range or already free.
func (fs *Filesystem) Delete(n Inumber) error {
	if err := fs.requireMounted(); err != nil {
		return err
	}
	if !fs.isUsableInumber(n) {
		return fserrors.Newf(fserrors.InvalidInumber, "inumber %d out of range", n)
	}

	inode, err := fs.inodes.load(n)
	if err != nil {
		return err
	}
	if inode.IsValid == 0 {
		return fserrors.Newf(fserrors.InvalidInumber, "inode %d is not allocated", n)
	}

	for _, ptr := range inode.Direct {
		if ptr != 0 {
			fs.alloc.release(ptr)
		}
	}
	if inode.Indirect != 0 {
		raw := make([]byte, BlockSize)
		if err := fs.device.ReadBlock(uint(inode.Indirect), raw); err != nil {
			return fserrors.Wrap(fserrors.IOError, err)
		}
		for _, ptr := range decodePointerBlock(raw) {
			if ptr != 0 {
				fs.alloc.release(ptr)
			}
		}
		fs.alloc.release(inode.Indirect)
	}

	return fs.inodes.store(n, Inode{})
}

// GetSize returns the logical size, in bytes, of inumber n, or -1 if n is
// out of range or not allocated.
func (fs *Filesystem) GetSize(n Inumber) int64 {
	if !fs.mounted || !fs.isUsableInumber(n) {
		return -1
	}

	inode, err := fs.inodes.load(n)
	if err != nil || inode.IsValid == 0 {
		return -1
	}
	return int64(inode.Size)
}
