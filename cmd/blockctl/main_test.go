package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-blocks/pkg/block"
	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/json"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "blockctl v"+version)
}

func TestEncodings(t *testing.T) {
	out, err := run(t, "encodings")
	require.NoError(t, err)
	tags := strings.Fields(out)
	assert.Contains(t, tags, block.ArrayEncoding)
	assert.Contains(t, tags, block.RunLengthEncoding)
	assert.Len(t, tags, 11)
}

func TestGenerateAndInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.bin")

	out, err := run(t, "generate", "--out", path, "--pages", "3", "--rows", "200", "--compression", "zstd")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 pages")
	assert.Contains(t, out, "zstd")

	out, err = run(t, "inspect", path, "--schema")
	require.NoError(t, err)
	assert.Contains(t, out, "compression zstd")
	assert.Equal(t, 3, strings.Count(out, "positions, 11 channels"))
	assert.Contains(t, out, block.DictionaryEncoding)
	assert.Contains(t, out, "arrow schema:")

	out, err = run(t, "inspect", path, "--json", "--limit", "2")
	require.NoError(t, err)
	var reports []pageReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 3)
	assert.Equal(t, 200, reports[2].Positions)
	assert.True(t, reports[0].Checksummed)
	require.Len(t, reports[0].Channels, 11)
	assert.Len(t, reports[0].Channels[0].Values, 2)
	// ids continue across pages
	assert.EqualValues(t, 400, reports[2].Channels[0].Values[0])
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BLOCKCTL_COMPRESSION", "s2")
	path := filepath.Join(t.TempDir(), "pages.bin")

	out, err := run(t, "generate", "--out", path, "--rows", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "s2")
}

func TestInvalidCompression(t *testing.T) {
	_, err := run(t, "encodings", "--compression", "brotli")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestInspectRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a page stream"), 0o600))

	_, err := run(t, "inspect", path)
	assert.True(t, errors.IsCorrupt(err))

	_, err = run(t, "inspect", filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}
