package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pages.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestReaderBytesAndRange(t *testing.T) {
	path := writeFile(t, []byte("NBPG\x01payload"))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(12), r.Size())
	assert.Equal(t, []byte("NBPG\x01payload"), r.Bytes())

	got, err := r.ReadRange(5, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	_, err = r.ReadRange(12, 1)
	assert.True(t, errors.IsOutOfRange(err))

	bytesRead, pagesRead := r.Stats()
	assert.Equal(t, int64(19), bytesRead)
	assert.Equal(t, int64(2), pagesRead)
}

func TestReaderEmptyFile(t *testing.T) {
	_, err := Open(writeFile(t, nil))
	assert.True(t, errors.IsTruncated(err))
}

func TestReaderMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReaderCloseTwice(t *testing.T) {
	r, err := Open(writeFile(t, []byte{1, 2, 3}))
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.ReadRange(0, 1)
	assert.Error(t, err)
}
