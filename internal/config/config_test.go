package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "github.com/vigil-dev/vigil/internal/errors"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, 400, cfg.DebounceWindowMS)
	assert.Equal(t, 400*time.Millisecond, cfg.DebounceWindow())
	assert.True(t, cfg.RespectGitignore)
	assert.Contains(t, cfg.IgnorePatterns, ".git/")
	assert.Contains(t, cfg.IgnorePatterns, ".vigil/")
}

func TestLoad_ReadsYAML(t *testing.T) {
	root := t.TempDir()
	content := `
debounce_window_ms: 150
respect_gitignore: false
ignore_patterns:
  - "*.bak"
journal:
  enabled: false
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 150, cfg.DebounceWindowMS)
	assert.False(t, cfg.RespectGitignore)
	assert.Equal(t, []string{"*.bak"}, cfg.IgnorePatterns)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("{::"), 0o644))

	_, err := Load(root)
	require.Error(t, err)
	assert.True(t, verrors.IsCode(err, verrors.ErrCodeConfigInvalid))
}

func TestLoad_EnvOverrides(t *testing.T) {
	root := t.TempDir()
	t.Setenv("VIGIL_DEBOUNCE_MS", "0")
	t.Setenv("VIGIL_LOG_LEVEL", "error")
	t.Setenv("VIGIL_JOURNAL", "false")

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.DebounceWindowMS)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.False(t, cfg.Journal.Enabled)
}

func TestValidate_RejectsNegativeWindow(t *testing.T) {
	cfg := Default()
	cfg.DebounceWindowMS = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, verrors.IsCode(err, verrors.ErrCodeConfigInvalid))
}

func TestValidate_ZeroWindowAllowed(t *testing.T) {
	// 0 disables coalescing; it is a valid configuration
	cfg := Default()
	cfg.DebounceWindowMS = 0
	assert.NoError(t, cfg.Validate())
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.Root = filepath.FromSlash("/project")

	assert.Equal(t, filepath.FromSlash("/project/.vigil/journal.db"), cfg.JournalPath())
	assert.Equal(t, filepath.FromSlash("/project/.vigil/vigil.lock"), cfg.LockPath())

	cfg.Journal.Path = filepath.FromSlash("/var/lib/vigil.db")
	assert.Equal(t, filepath.FromSlash("/var/lib/vigil.db"), cfg.JournalPath())
}
