package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigurationDefaults(t *testing.T) {
	config, err := LoadConfiguration("")
	require.NoError(t, err)
	assert.Equal(t, *New(), config)
	assert.Equal(t, "127.0.0.1:5000", config.Address())
	assert.Zero(t, config.MineTimeout())
}

func TestLoadConfigurationJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"node_host": "0.0.0.0",
		"node_port": 8080,
		"threads": 4,
		"mine_timeout_seconds": 30
	}`)

	config, err := LoadConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", config.Address())
	assert.Equal(t, 4, config.Threads)
	assert.Equal(t, 30*time.Second, config.MineTimeout())
	assert.Equal(t, DefaultLogLevel, config.LogLevel)
}

func TestLoadConfigurationTOML(t *testing.T) {
	path := writeFile(t, "wledger.toml", `
node_port = 6000
threads = 2
log_level = "debug"
`)

	config, err := LoadConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultHost, config.NodeHost)
	assert.Equal(t, int64(6000), config.NodePort)
	assert.Equal(t, 2, config.Threads)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestLoadConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"malformed json", "bad.json", `{"node_port": `},
		{"malformed toml", "bad.toml", `node_port = = 1`},
		{"port out of range", "port.json", `{"node_port": 70000}`},
		{"zero threads", "threads.json", `{"threads": 0}`},
		{"negative timeout", "timeout.toml", `mine_timeout_seconds = -1`},
		{"unknown level", "level.json", `{"log_level": "chatty"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfiguration(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
