package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HelpListsCommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()

	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "serve")
	assert.Contains(t, output, "query")
	assert.Contains(t, output, "import")
	assert.Contains(t, output, "invalidate")
	assert.Contains(t, output, "status")
	assert.Contains(t, output, "version")
}

func TestRootCmd_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "recall version")
}

func TestInvalidateCmd_RequiresExactlyOneTarget(t *testing.T) {
	cmd := newInvalidateCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func TestInvalidateCmd_RejectsMultipleTargets(t *testing.T) {
	cmd := newInvalidateCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--all", "--entity", "Lilou"})

	err := cmd.Execute()

	require.Error(t, err)
}
