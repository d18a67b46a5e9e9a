package envfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cotpanel/cotpanel/internal/schema"
)

func TestStore_LoadMissingFileIsNotAnError(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "adsbcot"))

	text, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestStore_LoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adsbcot")
	require.NoError(t, os.WriteFile(path, []byte("COT_STALE=200\n"), 0644))

	store := NewStore(path)
	text, ok, err := store.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "COT_STALE=200\n", text)
}

func TestStore_LoadUnreadable(t *testing.T) {
	// A directory at the managed path is unreadable as a file and, unlike a
	// permission trick, fails even when the tests run as root.
	path := filepath.Join(t.TempDir(), "adsbcot")
	require.NoError(t, os.Mkdir(path, 0755))

	store := NewStore(path)
	_, _, err := store.Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, os.ErrNotExist)
}

func TestStore_WriteReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adsbcot")
	store := NewStore(path)

	require.NoError(t, store.Write("COT_STALE=100\n"))
	require.NoError(t, store.Write("COT_STALE=200\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "COT_STALE=200\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fileMode), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestStore_WriteThenLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "adsbcot"))

	text, err := Encode(schema.Defaults())
	require.NoError(t, err)
	require.NoError(t, store.Write(text))

	loaded, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)

	doc := Decode(loaded)
	for k, v := range schema.Defaults() {
		assert.Equal(t, v, doc.Values[k], k)
	}
}

func TestStore_WatchSeesExternalChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adsbcot")
	require.NoError(t, os.WriteFile(path, []byte("COT_STALE=100\n"), 0644))

	store := NewStore(path)
	changed := make(chan struct{}, 1)
	require.NoError(t, store.Watch(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))
	defer store.Close()

	require.NoError(t, os.WriteFile(path, []byte("COT_STALE=200\n"), 0644))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watch callback never fired")
	}
}
