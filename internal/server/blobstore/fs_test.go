package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestFSStore_PutGetDelete(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "zstd"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s, err := NewFSStore(t.TempDir(), compress)
			require.NoError(t, err)
			require.NoError(t, s.Ensure(ctx, "documentServer"))

			payload := strings.Repeat("document bytes ", 1000)
			n, err := s.Put(ctx, "documentServer", "0f7c2a", "text/plain", strings.NewReader(payload))
			require.NoError(t, err)
			assert.Equal(t, int64(len(payload)), n)

			rc, err := s.Get(ctx, "documentServer", "0f7c2a")
			require.NoError(t, err)
			assert.Equal(t, payload, readAll(t, rc))

			require.NoError(t, s.Delete(ctx, "documentServer", "0f7c2a"))
			_, err = s.Get(ctx, "documentServer", "0f7c2a")
			assert.ErrorIs(t, err, common.ErrorNotFound)

			require.NoError(t, s.Delete(ctx, "documentServer", "0f7c2a"), "delete is idempotent")
		})
	}
}

func TestFSStore_ReadsBlobsWrittenWithOtherCompressionSetting(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	compressed, err := NewFSStore(dir, true)
	require.NoError(t, err)
	_, err = compressed.Put(ctx, "b", "abc", "text/plain", strings.NewReader("zipped"))
	require.NoError(t, err)

	plain, err := NewFSStore(dir, false)
	require.NoError(t, err)
	rc, err := plain.Get(ctx, "b", "abc")
	require.NoError(t, err)
	assert.Equal(t, "zipped", readAll(t, rc))
}

func TestFSStore_FailedPutLeavesNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFSStore(dir, false)
	require.NoError(t, err)

	boom := errors.New("client went away")
	src := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(boom))

	_, err = s.Put(ctx, "b", "abcdef", "text/plain", src)
	require.ErrorIs(t, err, boom)

	_, err = s.Get(ctx, "b", "abcdef")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	entries, err := os.ReadDir(filepath.Join(dir, "b", "ab"))
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file must be removed")
}

func TestFSStore_RejectsPathTraversal(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir(), false)
	require.NoError(t, err)

	_, err = s.Put(ctx, "b", "../escape", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = s.Get(ctx, "..", "k")
	assert.ErrorIs(t, err, ErrInvalidKey)

	assert.ErrorIs(t, s.Ensure(ctx, ""), ErrInvalidKey)
}

func TestNewFSStore_EmptyDir(t *testing.T) {
	_, err := NewFSStore("", false)
	assert.Error(t, err)
}
