package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joebot/aminobot/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.Bot.Prefix)
	assert.Equal(t, 360, cfg.Socket.ReconnectIntervalSeconds)
	assert.Equal(t, 1000, cfg.Socket.RetryBackoffMs)
	assert.Equal(t, "42", cfg.Auth.SignatureVersion)
	assert.False(t, cfg.HasCredentials())
}

func TestLoadFillsZeroValues(t *testing.T) {
	path := writeConfig(t, `{"bot": {"prefix": "?"}, "socket": {"reconnectIntervalSeconds": 0}}`)
	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.Bot.Prefix)
	assert.Equal(t, config.HandlerErrorsLog, cfg.Bot.HandlerErrors)
	assert.Equal(t, 360, cfg.Socket.ReconnectIntervalSeconds)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Auth.DeviceID = "dev"
	cfg.Auth.Key = "abcd"
	cfg.Auth.Session = "token"
	cfg.Bot.SelfProfileID = "me"

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	require.NoError(t, config.SaveTo(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.True(t, loaded.HasCredentials())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(config.EnvDeviceID, "env-device")
	t.Setenv(config.EnvKey, "0102")
	t.Setenv(config.EnvSession, "env-session")
	t.Setenv(config.EnvPrefix, "/")

	path := writeConfig(t, `{"auth": {"deviceId": "file-device"}}`)
	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "env-device", cfg.Auth.DeviceID)
	assert.Equal(t, "0102", cfg.Auth.Key)
	assert.Equal(t, "env-session", cfg.Auth.Session)
	assert.Equal(t, "/", cfg.Bot.Prefix)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("AMINOBOT_DEVICE_ID=from-dotenv\n"), 0o644))

	// t.Setenv registers cleanup; clearing the variable lets godotenv set it.
	t.Setenv(config.EnvDeviceID, "")
	require.NoError(t, os.Unsetenv(config.EnvDeviceID))

	require.NoError(t, config.LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv(config.EnvDeviceID))
}

func TestValidateRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `{
		"bot": {"prefix": "a b", "handlerErrors": "explode"},
		"auth": {"key": "not-hex", "signatureVersion": "4242"},
		"socket": {"url": "https://example.com", "retryBackoffMs": -1},
		"logging": {"level": "loud"}
	}`)

	_, err := config.LoadFrom(path)
	require.Error(t, err)
	for _, want := range []string{
		"bot.prefix", "bot.handlerErrors", "auth.key", "auth.signatureVersion",
		"socket.url", "socket.retryBackoffMs", "logging.level",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	path := writeConfig(t, `{"bot": {"prefx": "!"}, "unknownField": true}`)
	_, err := config.LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot.prefx")
	assert.Contains(t, err.Error(), "unknownField")
}

func TestCheckUnknownFieldsSorted(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"z": 1, "a": 2, "socket": {"bogus": 1, "url": "ws://x"}}`), &raw))
	assert.Equal(t, []string{"a", "socket.bogus", "z"}, config.CheckUnknownFields(raw))
}

func TestUpgradeAddsDefaultsKeepsValues(t *testing.T) {
	path := writeConfig(t, `{"bot": {"prefix": "?"}, "auth": {"deviceId": "dev"}, "stale": 1}`)

	cfg, err := config.UpgradeAt(path)
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.Bot.Prefix)
	assert.Equal(t, "dev", cfg.Auth.DeviceID)
	assert.Equal(t, 360, cfg.Socket.ReconnectIntervalSeconds)

	reloaded, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestUpgradeRejectsMistypedValues(t *testing.T) {
	body := `{"bot": {"prefix": 5}}`
	path := writeConfig(t, body)

	_, err := config.UpgradeAt(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply merged config")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestDataDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := config.DataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".aminobot"), dir)
	assert.DirExists(t, dir)
}

func TestDataDirReportsCreateError(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".aminobot"), []byte("not a dir"), 0o644))

	_, err := config.DataDir()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create data dir")
}
