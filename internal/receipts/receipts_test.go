package receipts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveAndDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Save(strings.NewReader("receipt bytes"), "png")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(ref, ".png"))
	require.True(t, store.Exists(ref))

	require.NoError(t, store.Delete(ref))
	require.False(t, store.Exists(ref))
}

func TestDeleteMissingIsNoError(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Delete("never-existed.png"))
	require.NoError(t, store.Delete(""))
}

func TestDeleteRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

	store, err := NewStore(filepath.Join(dir, "receipts"))
	require.NoError(t, err)

	require.Error(t, store.Delete("../outside.txt"))
	_, statErr := os.Stat(outside)
	require.NoError(t, statErr)
}
