package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/config"
)

func runInitIn(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cmd := newInitCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return buf.String(), err
}

func TestInitCmd_WritesConfigAndDocsDir(t *testing.T) {
	dir := t.TempDir()

	out, err := runInitIn(t, dir)
	require.NoError(t, err)
	assert.Contains(t, out, ".docqa.yaml")

	data, err := os.ReadFile(filepath.Join(dir, ".docqa.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "chunk_size")
	assert.Contains(t, string(data), "tinyllama")

	info, err := os.Stat(filepath.Join(dir, config.DefaultDocsDirectory))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestInitCmd_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docqa.yaml"), []byte("docs:\n"), 0o644))

	_, err := runInitIn(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}

func TestInitCmd_ForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docqa.yaml"), []byte("docs:\n"), 0o644))

	_, err := runInitIn(t, dir, "--force")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ".docqa.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "chunk_size")
}

func TestInitConfigTemplate_ParsesAndValidates(t *testing.T) {
	dir := t.TempDir()
	_, err := runInitIn(t, dir)
	require.NoError(t, err)

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.Index.ChunkSize)
	assert.Equal(t, 200, cfg.Index.ChunkOverlap)
}
