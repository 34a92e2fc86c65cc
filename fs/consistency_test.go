package fs_test

import (
	"testing"

	"github.com/inodefs/simplefs/fstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPassesOnFreshlyWrittenFiles(t *testing.T) {
	fsys := fstest.FormattedAndMounted(50)

	a, err := fsys.Create()
	require.NoError(t, err)
	_, err = fsys.Write(a, fstest.DeterministicPayload(10000, 1), 10000, 0)
	require.NoError(t, err)

	b, err := fsys.Create()
	require.NoError(t, err)
	_, err = fsys.Write(b, fstest.DeterministicPayload(500, 2), 500, 0)
	require.NoError(t, err)

	assert.NoError(t, fsys.Check())
}

func TestCheckPassesOnEmptyFilesystem(t *testing.T) {
	fsys := fstest.FormattedAndMounted(20)
	assert.NoError(t, fsys.Check())
}

func TestCheckRequiresMount(t *testing.T) {
	fsys := fstest.FormattedAndMounted(20)
	require.NoError(t, fsys.Unmount())

	err := fsys.Check()
	require.Error(t, err)
}
