package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "archive"), false)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchive_PutGet(t *testing.T) {
	t.Parallel()
	a := newTestArchive(t)

	require.NoError(t, a.Put("snap", "2025-01-01T00:00:00+00:00", []byte(`{"v":1}`)))

	blob, err := a.Get("snap", "2025-01-01T00:00:00+00:00")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(blob))

	_, err = a.Get("snap", "2030-01-01T00:00:00+00:00")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestArchive_LatestPicksNewest(t *testing.T) {
	t.Parallel()
	a := newTestArchive(t)

	require.NoError(t, a.Put("snap", "2025-01-01T00:00:00+00:00", []byte("old")))
	require.NoError(t, a.Put("snap", "2025-01-01T00:00:00.5+00:00", []byte("newest")))
	require.NoError(t, a.Put("snap", "2025-01-01T00:00:00.25+00:00", []byte("middle")))
	require.NoError(t, a.Put("snap-other", "2099-01-01T00:00:00+00:00", []byte("unrelated")))

	entry, blob, err := a.Latest("snap")
	require.NoError(t, err)
	assert.Equal(t, "newest", string(blob))
	assert.Equal(t, "snap", entry.SnapshotID)
	assert.Equal(t, "2025-01-01T00:00:00.5+00:00", entry.CreatedAt)
	assert.Equal(t, int64(len("newest")), entry.Size)
}

func TestArchive_LatestMissing(t *testing.T) {
	t.Parallel()
	a := newTestArchive(t)
	_, _, err := a.Latest("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestArchive_ListOrderAndIsolation(t *testing.T) {
	t.Parallel()
	a := newTestArchive(t)

	require.NoError(t, a.Put("a", "2025-02-01T00:00:00+00:00", []byte("2")))
	require.NoError(t, a.Put("a", "2025-01-01T00:00:00+00:00", []byte("1")))
	require.NoError(t, a.Put("ab", "2025-01-01T00:00:00+00:00", []byte("x")))

	entries, err := a.List("a")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2025-01-01T00:00:00+00:00", entries[0].CreatedAt)
	assert.Equal(t, "2025-02-01T00:00:00+00:00", entries[1].CreatedAt)

	all, err := a.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestArchive_PutRequiresKey(t *testing.T) {
	t.Parallel()
	a := newTestArchive(t)
	require.Error(t, a.Put("", "2025-01-01T00:00:00+00:00", nil))
	require.Error(t, a.Put("snap", "", nil))
}

func TestArchive_ReopenReadOnly(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "archive")
	a, err := Open(dir, false)
	require.NoError(t, err)
	require.NoError(t, a.Put("snap", "2025-01-01T00:00:00+00:00", []byte("kept")))
	require.NoError(t, a.Close())

	ro, err := Open(dir, true)
	require.NoError(t, err)
	defer ro.Close()
	_, blob, err := ro.Latest("snap")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(blob))
}
