package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `[journal]
path = "/var/lib/postconfctl/journal.db"
`)
	cfg, err := LoadConfig(path, false)
	require.NoError(t, err)

	assert.Equal(t, "postconf", cfg.Postconf.Binary)
	assert.Equal(t, "grep", cfg.Postconf.Grep)
	assert.Equal(t, "substring", cfg.Postconf.Match)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultSSHTimeout, cfg.SSH.Timeout.Duration)
	assert.Equal(t, "/var/lib/postconfctl/journal.db", cfg.Journal.Path)
}

func TestLoadConfigParsesSSH(t *testing.T) {
	path := writeConfig(t, `[ssh]
host = "mx1.example.com"
user = "root"
key_path = "/root/.ssh/id_ed25519"
timeout = "3s"
`)
	cfg, err := LoadConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, "mx1.example.com", cfg.SSH.Host)
	assert.Equal(t, 3*time.Second, cfg.SSH.Timeout.Duration)
}

func TestLoadConfigRejectsIncompleteSSH(t *testing.T) {
	path := writeConfig(t, `[ssh]
host = "mx1.example.com"
`)
	_, err := LoadConfig(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user is required")
}

func TestLoadConfigRejectsUnknownMatcher(t *testing.T) {
	path := writeConfig(t, `[postconf]
match = "regex"
`)
	_, err := LoadConfig(path, false)
	require.Error(t, err)
}

func TestLoadConfigParseError(t *testing.T) {
	path := writeConfig(t, `[postconf`)
	_, err := LoadConfig(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config parse failed")
}

func TestLoadConfigMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	_, err := LoadConfig(missing, false)
	require.Error(t, err)

	cfg, err := LoadConfig(missing, true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestTemplateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.toml")
	require.NoError(t, WriteTemplate(path, false))
	require.Error(t, WriteTemplate(path, false), "existing config must not be overwritten")
	require.NoError(t, WriteTemplate(path, true))

	cfg, err := LoadConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, "postconfctl", cfg.Server.ID)
	assert.Empty(t, cfg.SSH.Host)
}
