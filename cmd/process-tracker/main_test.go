package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// execute runs the CLI against a sqlite store in dir and returns its output.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("process_tracking_data_store_type", "sqlite")
	t.Setenv("process_tracking_data_store_name", filepath.Join(dir, "tracker.db"))
	t.Setenv("process_tracking_log_level", "ERROR")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{
		"--env-file", filepath.Join(dir, "missing.env"),
		"--config", filepath.Join(dir, "missing.ini"),
	}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestLookupCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "setup")
	require.NoError(t, err)
	assert.Contains(t, out, "Data store initialized.")

	out, err = execute(t, dir, "create", "-t", "actor", "-n", "data team")
	require.NoError(t, err)
	assert.Contains(t, out, "Created actor 'data team'.")

	out, err = execute(t, dir, "update", "-t", "actor", "-i", "data team", "-n", "platform team")
	require.NoError(t, err)
	assert.Contains(t, out, "Renamed actor 'data team' to 'platform team'.")

	out, err = execute(t, dir, "list", "-t", "actor", "-o", "yaml")
	require.NoError(t, err)
	var listed map[string][]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &listed))
	assert.Equal(t, []string{"platform team"}, listed["actor"])

	out, err = execute(t, dir, "delete", "-t", "actor", "-n", "platform team")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted actor 'platform team'.")

	out, err = execute(t, dir, "list", "-t", "actor")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestProtectedRecords(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "setup")
	require.NoError(t, err)

	out, err := execute(t, dir, "delete", "-t", "process status", "-n", "running")
	require.NoError(t, err)
	assert.Equal(t, "The item could not be deleted because it is a protected record.\n", out)

	out, err = execute(t, dir, "update", "-t", "error_type", "-i", "File Error", "-n", "Disk Error")
	require.NoError(t, err)
	assert.Equal(t, "The item could not be updated because it is a protected record.\n", out)

	out, err = execute(t, dir, "list", "-t", "process status")
	require.NoError(t, err)
	assert.Contains(t, out, "running")
}

func TestInvalidInput(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "create", "-t", "colour", "-n", "blue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")

	_, err = execute(t, dir, "list", "-t", "actor", "-o", "xml")
	require.Error(t, err)

	out, err := execute(t, dir, "version")
	require.NoError(t, err)
	assert.Equal(t, "process-tracker dev\n", out)
}
