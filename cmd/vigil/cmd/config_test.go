package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-dev/vigil/internal/config"
)

func TestConfigShowCmd_Defaults(t *testing.T) {
	// Given: a root with no config file
	root := t.TempDir()
	cmd := newConfigShowCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{root})

	// When: showing the effective configuration
	err := cmd.Execute()

	// Then: it should render the defaults as YAML
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "debounce_window_ms: 400")
	assert.Contains(t, output, "respect_gitignore: true")
	assert.Contains(t, output, ".git/")
}

func TestConfigShowCmd_ProjectFileWins(t *testing.T) {
	// Given: a root with a project config overriding the window
	root := t.TempDir()
	cfgPath := filepath.Join(root, config.FileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte("debounce_window_ms: 150\n"), 0o644))

	cmd := newConfigShowCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{root})

	// When: showing the effective configuration
	err := cmd.Execute()

	// Then: the project value should be in effect
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "debounce_window_ms: 150")
}

func TestConfigPathCmd(t *testing.T) {
	// Given: a root directory
	root := t.TempDir()
	cmd := newConfigPathCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{root})

	// When: printing the config path
	err := cmd.Execute()

	// Then: it should be the project config file under the root
	require.NoError(t, err)
	assert.Contains(t, buf.String(), filepath.Join(root, config.FileName))
}

func TestConfigShowCmd_InvalidConfigFails(t *testing.T) {
	// Given: a root with an invalid config file
	root := t.TempDir()
	cfgPath := filepath.Join(root, config.FileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte("debounce_window_ms: -5\n"), 0o644))

	cmd := newConfigShowCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{root})

	// When: showing the effective configuration
	err := cmd.Execute()

	// Then: validation should reject it
	require.Error(t, err)
}
