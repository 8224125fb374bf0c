// pkg/config/config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Contains(t, s.SocketPath, filepath.Join("pandora", "vaultd.sock"))
	assert.Contains(t, s.HistoryDir, filepath.Join("kyklos", "history"))
	assert.Contains(t, s.BackupDir, filepath.Join("kyklos", "backups"))
	assert.Equal(t, DefaultAgentID, s.AgentID)
	assert.Equal(t, DefaultPasswordLength, s.PasswordLength)
	assert.Equal(t, DefaultPause, s.Pause)
	assert.True(t, s.Headless)
	require.NoError(t, s.Validate())
}

func TestLoad_ConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "socket_path: /run/vaultd.sock\npassword_length: 32\npause: 250ms\nheadless: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/run/vaultd.sock", s.SocketPath)
	assert.Equal(t, 32, s.PasswordLength)
	assert.Equal(t, 250*time.Millisecond, s.Pause)
	assert.False(t, s.Headless)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultAgentID, s.AgentID)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KYKLOS_AGENT_ID", "kyklos-ci")
	t.Setenv("KYKLOS_PASSWORD_LENGTH", "40")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "kyklos-ci", s.AgentID)
	assert.Equal(t, 40, s.PasswordLength)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsBadLength(t *testing.T) {
	s := Defaults()
	s.PasswordLength = 2
	assert.Error(t, s.Validate())

	s = Defaults()
	s.PasswordLength = 1024
	assert.Error(t, s.Validate())
}

func TestValidate_RejectsEmptyPaths(t *testing.T) {
	s := Defaults()
	s.SocketPath = ""
	assert.Error(t, s.Validate())
}
