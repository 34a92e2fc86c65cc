package fs

import (
	"github.com/inodefs/simplefs/blockdev"
	"github.com/inodefs/simplefs/fserrors"
)

// inodeAccessor loads and stores individual inodes by inumber, computing
// the enclosing inode-table block and in-block slot itself. It never
// touches the free-block bitmap and tolerates being called on a currently
// invalid slot, since that slot is exactly what Create targets.
//
// Modeled on the teacher's drivers/unixv1 InodeManager, adapted from a
// directory-aware inode store to a flat, inumber-addressed one.
type inodeAccessor struct {
	device       blockdev.Device
	ninodeblocks uint
}

func newInodeAccessor(device blockdev.Device, ninodeblocks uint) *inodeAccessor {
	return &inodeAccessor{device: device, ninodeblocks: ninodeblocks}
}

func (a *inodeAccessor) checkRange(n Inumber) error {
	block, _ := inodeTableBlockFor(n)
	if block < 1 || block > a.ninodeblocks {
		return fserrors.Newf(fserrors.InvalidInumber, "inumber %d out of range", n)
	}
	return nil
}

// load reads the inode-table block containing n and returns its slot.
func (a *inodeAccessor) load(n Inumber) (Inode, error) {
	if err := a.checkRange(n); err != nil {
		return Inode{}, err
	}

	block, slot := inodeTableBlockFor(n)
	raw := make([]byte, BlockSize)
	if err := a.device.ReadBlock(block, raw); err != nil {
		return Inode{}, fserrors.Wrap(fserrors.IOError, err)
	}

	table := decodeInodeTableBlock(raw)
	return table[slot], nil
}

// store reads the enclosing inode-table block, replaces n's slot, and
// writes the block back.
func (a *inodeAccessor) store(n Inumber, inode Inode) error {
	if err := a.checkRange(n); err != nil {
		return err
	}

	block, slot := inodeTableBlockFor(n)
	raw := make([]byte, BlockSize)
	if err := a.device.ReadBlock(block, raw); err != nil {
		return fserrors.Wrap(fserrors.IOError, err)
	}

	table := decodeInodeTableBlock(raw)
	table[slot] = inode
	encoded := encodeInodeTableBlock(table)
	if err := a.device.WriteBlock(block, encoded[:]); err != nil {
		return fserrors.Wrap(fserrors.IOError, err)
	}
	return nil
}
