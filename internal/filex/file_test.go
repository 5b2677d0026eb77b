package filex

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesNestedDirs(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "a", "b", "file.db")

	require.NoError(t, EnsureParentDir(path))

	fi, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	// Idempotent.
	require.NoError(t, EnsureParentDir(path))
}

func TestEnsureParentDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "blocker"), []byte("x"), 0o600))

	err := EnsureParentDir(filepath.Join(tmp, "blocker", "file.db"))
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestWriteAtomic_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "doc.bin")

	err := WriteAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, strings.NewReader("payload"))
		return err
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the final file should remain")
}

func TestWriteAtomic_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.bin")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	boom := errors.New("stream broke")
	err := WriteAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "old", string(got), "existing file must be untouched")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must be removed")
}
