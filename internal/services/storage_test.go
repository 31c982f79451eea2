package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStorage(root)
	require.NoError(t, store.Init(ctx))

	t.Run(`save open stat`, func(t *testing.T) {
		key := CandidateKey("cand-1", "q0.webm")
		require.NoError(t, store.Save(ctx, key, strings.NewReader("video-bytes")))

		size, err := store.Stat(ctx, key)
		require.NoError(t, err)
		require.EqualValues(t, len("video-bytes"), size)

		rc, err := store.Open(ctx, key)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.Equal(t, "video-bytes", string(data))
	})

	t.Run(`overwrite leaves no temp files`, func(t *testing.T) {
		key := CandidateKey("cand-1", "q0.webm")
		require.NoError(t, store.Save(ctx, key, strings.NewReader("second")))

		entries, err := os.ReadDir(filepath.Join(root, "cand-1"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, "q0.webm", entries[0].Name())
	})

	t.Run(`zero byte file`, func(t *testing.T) {
		key := CandidateKey("cand-1", "q1.webm")
		require.NoError(t, store.Save(ctx, key, strings.NewReader("")))
		size, err := store.Stat(ctx, key)
		require.NoError(t, err)
		require.Zero(t, size)
	})

	t.Run(`missing blob`, func(t *testing.T) {
		_, err := store.Stat(ctx, "cand-1/q9.webm")
		require.ErrorIs(t, err, ErrBlobNotFound)
		_, err = store.Open(ctx, "cand-1/q9.webm")
		require.ErrorIs(t, err, ErrBlobNotFound)
	})

	t.Run(`keys cannot escape the root`, func(t *testing.T) {
		require.ErrorIs(t, store.Save(ctx, "../outside.txt", strings.NewReader("x")), ErrInvalidKey)
		_, err := store.Stat(ctx, "/etc/passwd")
		require.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run(`delete dir`, func(t *testing.T) {
		require.NoError(t, store.DeleteDir(ctx, "cand-1"))
		_, err := os.Stat(filepath.Join(root, "cand-1"))
		require.True(t, os.IsNotExist(err))
	})
}
