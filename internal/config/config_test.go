package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
emodul:
  username: test
  password: test
  language: pl
poll:
  interval_seconds: 30
  modules:
    - 8623dddc28f834922d97b76f2096873c
mqtt:
  broker: tcp://broker:1883
http_addr: 127.0.0.1:9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Emodul.Username)
	assert.Equal(t, "pl", cfg.Emodul.Language)
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.PollInterval())
	assert.Len(t, cfg.Poll.Modules, 1)
	assert.True(t, cfg.MQTT.Enabled())
	assert.Equal(t, DefaultTopicPrefix, cfg.MQTT.TopicPrefix)
	assert.Equal(t, DefaultHassPrefix, cfg.MQTT.DiscoveryPrefix)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("EMODUL_USERNAME", "someone")
	t.Setenv("EMODUL_PASSWORD", "secret")
	t.Setenv("EMODUL_POLL_INTERVAL_SECONDS", "45")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "someone", cfg.Emodul.Username)
	assert.Equal(t, 45*time.Second, cfg.PollInterval())
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.False(t, cfg.MQTT.Enabled())
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
emodul:
  username: from-file
  password: from-file
`)
	t.Setenv("EMODUL_PASSWORD", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Emodul.Username)
	assert.Equal(t, "from-env", cfg.Emodul.Password)
}

func TestValidate(t *testing.T) {
	_, err := Load(writeConfig(t, `
emodul:
  username: test
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")

	_, err = Load(writeConfig(t, `
emodul:
  username: test
  password: test
poll:
  interval_seconds: 2
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval_seconds")
}
