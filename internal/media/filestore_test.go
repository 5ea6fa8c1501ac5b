package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Save(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root, "https://cdn.example/uploads/")

	ref, err := store.Save(context.Background(), "42/a.jpg", []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/uploads/42/a.jpg", ref)

	data, err := os.ReadFile(filepath.Join(root, "42", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	entries, err := os.ReadDir(filepath.Join(root, "42"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_SaveReplacesExisting(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root, "/uploads")

	_, err := store.Save(context.Background(), "1/a.jpg", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "1/a.jpg", []byte("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "1", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
}

func TestFileStore_RejectsEscapingKeys(t *testing.T) {
	store := NewFileStore(t.TempDir(), "/uploads")

	for _, key := range []string{"../a.jpg", "1/../../a.jpg", "/etc/passwd", ""} {
		_, err := store.Save(context.Background(), key, []byte("x"))
		assert.Error(t, err, "key %q", key)
	}
}

func TestFileStore_CanceledContext(t *testing.T) {
	store := NewFileStore(t.TempDir(), "/uploads")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "1/a.jpg", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
