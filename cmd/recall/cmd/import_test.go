package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore points the CLI at a throwaway database and forces the
// offline classifier so tests never touch the network.
func setupTestStore(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("RECALL_STORAGE_PATH", filepath.Join(tmp, "memory.db"))
	t.Setenv("RECALL_CLASSIFIER_FALLBACK_ONLY", "true")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
}

func writeImportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportCmd_LoadsChunksAndFacts(t *testing.T) {
	setupTestStore(t)
	path := writeImportFile(t, `
chunks:
  - text: "My uncle Bob is a carpenter in Portland."
    tags: ["entity:bob"]
  - text: "My cat Lilou naps on the windowsill every afternoon."
    tags: ["entity:lilou"]
facts:
  - entity: Bob
    fact: "works as a carpenter"
`)

	cmd := newImportCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "imported 2 chunks and 1 entity facts")
}

func TestImportCmd_ThenStatusReflectsCounts(t *testing.T) {
	setupTestStore(t)
	path := writeImportFile(t, `
chunks:
  - text: "Last summer I hiked the Eagle Creek trail."
facts:
  - entity: Lilou
    fact: "is a cat"
  - entity: Lilou
    fact: "naps on the windowsill"
`)

	importCmd := newImportCmd()
	importCmd.SetOut(&bytes.Buffer{})
	importCmd.SetArgs([]string{path})
	require.NoError(t, importCmd.Execute())

	statusCmd := newStatusCmd()
	buf := &bytes.Buffer{}
	statusCmd.SetOut(buf)
	statusCmd.SetArgs([]string{})
	require.NoError(t, statusCmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "chunks:        1")
	assert.Contains(t, output, "entities:      1")
	assert.Contains(t, output, "entity facts:  2")
}

func TestImportCmd_ThenQueryFindsContext(t *testing.T) {
	setupTestStore(t)
	path := writeImportFile(t, `
chunks:
  - text: "My uncle Bob is a carpenter in Portland."
    tags: ["entity:bob"]
facts:
  - entity: Bob
    fact: "works as a carpenter"
`)

	importCmd := newImportCmd()
	importCmd.SetOut(&bytes.Buffer{})
	importCmd.SetArgs([]string{path})
	require.NoError(t, importCmd.Execute())

	queryCmd := newQueryCmd()
	buf := &bytes.Buffer{}
	queryCmd.SetOut(buf)
	queryCmd.SetArgs([]string{"What does my uncle Bob do for a living?"})
	require.NoError(t, queryCmd.Execute())

	assert.Contains(t, buf.String(), "carpenter")
}

func TestImportCmd_ScopeIsolation(t *testing.T) {
	setupTestStore(t)
	path := writeImportFile(t, `
chunks:
  - text: "My cat Lilou naps on the windowsill."
`)

	importCmd := newImportCmd()
	importCmd.SetOut(&bytes.Buffer{})
	importCmd.SetArgs([]string{path, "--scope", "alice"})
	require.NoError(t, importCmd.Execute())

	statusCmd := newStatusCmd()
	buf := &bytes.Buffer{}
	statusCmd.SetOut(buf)
	statusCmd.SetArgs([]string{"--scope", "bob"})
	require.NoError(t, statusCmd.Execute())

	assert.Contains(t, buf.String(), "chunks:        0")
}

func TestImportCmd_RejectsEmptyFile(t *testing.T) {
	setupTestStore(t)
	path := writeImportFile(t, "chunks: []\nfacts: []\n")

	cmd := newImportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chunks or facts")
}

func TestImportCmd_RejectsMissingFile(t *testing.T) {
	setupTestStore(t)

	cmd := newImportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.yaml")})

	err := cmd.Execute()

	require.Error(t, err)
}
