package fs_test

import (
	"bytes"
	"testing"

	"github.com/inodefs/simplefs/blockdev"
	"github.com/inodefs/simplefs/fs"
	"github.com/inodefs/simplefs/fserrors"
	"github.com/inodefs/simplefs/fstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1: format+mount+debug on an empty 20-block device.
func TestFormatMountDebugEmpty(t *testing.T) {
	device := fstest.NewMemoryImage(20)
	fsys := fs.New(device)

	require.NoError(t, fsys.Format())
	require.NoError(t, fsys.Mount())

	sb := fsys.Superblock()
	assert.EqualValues(t, 20, sb.NBlocks)
	assert.EqualValues(t, 2, sb.NInodeBlocks)
	assert.EqualValues(t, 256, sb.NInodes)

	var out bytes.Buffer
	require.NoError(t, fsys.Debug(&out))
	assert.Equal(t, "superblock:\n    20 blocks\n    2 inode blocks\n    256 inodes\n", out.String())
}

func TestFormatForbiddenWhileMounted(t *testing.T) {
	fsys := fstest.FormattedAndMounted(20)
	err := fsys.Format()
	require.Error(t, err)
	var fsErr *fserrors.Error
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, fserrors.AlreadyMounted, fsErr.Kind())
}

// S7: mounting an unformatted (zeroed) device fails with BadMagic, and
// subsequent operations fail too.
func TestMountWithoutFormatFails(t *testing.T) {
	device := fstest.NewMemoryImage(20)
	fsys := fs.New(device)

	err := fsys.Mount()
	require.Error(t, err)
	var fsErr *fserrors.Error
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, fserrors.BadMagic, fsErr.Kind())

	n, err := fsys.Create()
	assert.EqualValues(t, 0, n)
	require.Error(t, err)
}

func TestOperationsRequireMount(t *testing.T) {
	device := fstest.NewMemoryImage(20)
	fsys := fs.New(device)
	require.NoError(t, fsys.Format())

	_, err := fsys.Create()
	require.Error(t, err)
	assert.Equal(t, int64(-1), fsys.GetSize(1))

	buf := make([]byte, 10)
	n, err := fsys.Read(1, buf, 10, 0)
	assert.EqualValues(t, -1, n)
	require.Error(t, err)
}

// S2: small write and read round trip, and getsize reflects it.
func TestSmallWriteReadRoundTrip(t *testing.T) {
	fsys := fstest.FormattedAndMounted(20)

	n, err := fsys.Create()
	require.NoError(t, err)
	require.NotZero(t, n)

	written, err := fsys.Write(n, []byte("hello"), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, written)

	assert.EqualValues(t, 5, fsys.GetSize(n))

	buf := make([]byte, 5)
	read, err := fsys.Read(n, buf, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, read)
	assert.Equal(t, "hello", string(buf))
}

// S5: deleting a file that reaches into the indirect region succeeds, and
// create then reuses the lowest free inumber as an empty file.
func TestDeleteReclaimsAndCreateReuses(t *testing.T) {
	fsys := fstest.FormattedAndMounted(20)

	n, err := fsys.Create()
	require.NoError(t, err)

	payload := make([]byte, 6*fs.BlockSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	written, err := fsys.Write(n, payload, len(payload), 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), written)

	require.NoError(t, fsys.Check())

	require.NoError(t, fsys.Delete(n))

	again, err := fsys.Create()
	require.NoError(t, err)
	assert.Equal(t, n, again)
	assert.EqualValues(t, 0, fsys.GetSize(again))
}

func TestDeleteInvalidInumberFails(t *testing.T) {
	fsys := fstest.FormattedAndMounted(20)

	err := fsys.Delete(0)
	require.Error(t, err)

	n, err := fsys.Create()
	require.NoError(t, err)
	require.NoError(t, fsys.Delete(n))

	err = fsys.Delete(n)
	require.Error(t, err)
}

func TestGetSizeOfInvalidInode(t *testing.T) {
	fsys := fstest.FormattedAndMounted(20)
	assert.EqualValues(t, -1, fsys.GetSize(0))
	assert.EqualValues(t, -1, fsys.GetSize(5))
}

// S6: unmount/remount preserves size and data, and the bitmap rebuilt at
// the second mount passes Check.
func TestUnmountRemountPreservesState(t *testing.T) {
	device := fstest.NewMemoryImage(30)
	fsys := fs.New(device)
	require.NoError(t, fsys.Format())
	require.NoError(t, fsys.Mount())

	n, err := fsys.Create()
	require.NoError(t, err)

	payload := make([]byte, 5000)
	for i := range payload {
		payload[i] = byte(i % 256)
	}
	written, err := fsys.Write(n, payload, len(payload), 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), written)

	require.NoError(t, fsys.Unmount())
	require.False(t, fsys.IsMounted())

	fsys2 := fs.New(device)
	require.NoError(t, fsys2.Mount())

	assert.EqualValues(t, 5000, fsys2.GetSize(n))

	buf := make([]byte, len(payload))
	read, err := fsys2.Read(n, buf, len(payload), 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), read)
	assert.Equal(t, payload, buf)

	require.NoError(t, fsys2.Check())
}

func TestCreateReturnsZeroWhenFull(t *testing.T) {
	// Create allocates no data blocks, so inode slots can be exhausted on a
	// small device: 20 blocks means 2 inode blocks -> 256 inodes, and
	// creating every usable inode (1..255) leaves Create reporting full.
	fsys := fstest.FormattedAndMounted(20)

	sb := fsys.Superblock()
	created := 0
	for {
		n, err := fsys.Create()
		if n == 0 {
			require.NoError(t, err)
			break
		}
		created++
		if created > int(sb.NInodes) {
			t.Fatal("Create never reported full")
		}
	}
	assert.EqualValues(t, sb.NInodes-1, created)

	n, err := fsys.Create()
	assert.EqualValues(t, 0, n)
	assert.NoError(t, err)
}

func TestInumberZeroNeverValid(t *testing.T) {
	fsys := fstest.FormattedAndMounted(20)

	// Drain every real inode; inumber 0 must never come back from Create.
	for {
		n, err := fsys.Create()
		require.NoError(t, err)
		if n == 0 {
			break
		}
		assert.NotZero(t, n)
	}
}

func TestFileDeviceBackedFilesystem(t *testing.T) {
	path := t.TempDir() + "/image.bin"
	device, err := blockdev.CreateFileDevice(path, fs.BlockSize, 20)
	require.NoError(t, err)

	fsys := fs.New(device)
	require.NoError(t, fsys.Format())
	require.NoError(t, fsys.Mount())

	n, err := fsys.Create()
	require.NoError(t, err)

	written, err := fsys.Write(n, []byte("on disk"), 7, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, written)

	buf := make([]byte, 7)
	read, err := fsys.Read(n, buf, 7, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, read)
	assert.Equal(t, "on disk", string(buf))
}
