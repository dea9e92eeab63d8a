package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override config values.
const (
	EnvDeviceID = "AMINOBOT_DEVICE_ID"
	EnvKey      = "AMINOBOT_KEY"
	EnvSession  = "AMINOBOT_SESSION"
	EnvPrefix   = "AMINOBOT_PREFIX"
)

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(homeDir(), ".aminobot", "config.json")
}

// DataDir returns the aminobot data directory, creating it if needed.
func DataDir() (string, error) {
	dir := filepath.Join(homeDir(), ".aminobot")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

// LoadEnv loads .env files into the process environment. Variables already
// set win; missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from disk, falling back to defaults.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads configuration from a specific path, applies environment
// overrides and validates the result. A missing file yields defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err == nil {
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
		if unknown := CheckUnknownFields(raw); len(unknown) > 0 {
			return cfg, fmt.Errorf("unknown config fields: %s", strings.Join(unknown, ", "))
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("apply config: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyDefaults fills zero values.
func applyDefaults(cfg *Config) {
	d := DefaultConfig()
	if cfg.Bot.Prefix == "" {
		cfg.Bot.Prefix = d.Bot.Prefix
	}
	if cfg.Bot.HandlerErrors == "" {
		cfg.Bot.HandlerErrors = d.Bot.HandlerErrors
	}
	if cfg.Auth.SignatureVersion == "" {
		cfg.Auth.SignatureVersion = d.Auth.SignatureVersion
	}
	if cfg.Socket.URL == "" {
		cfg.Socket.URL = d.Socket.URL
	}
	if cfg.Socket.UserAgent == "" {
		cfg.Socket.UserAgent = d.Socket.UserAgent
	}
	if cfg.Socket.ReconnectIntervalSeconds == 0 {
		cfg.Socket.ReconnectIntervalSeconds = d.Socket.ReconnectIntervalSeconds
	}
	if cfg.Socket.RetryBackoffMs == 0 {
		cfg.Socket.RetryBackoffMs = d.Socket.RetryBackoffMs
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDeviceID); v != "" {
		cfg.Auth.DeviceID = v
	}
	if v := os.Getenv(EnvKey); v != "" {
		cfg.Auth.Key = v
	}
	if v := os.Getenv(EnvSession); v != "" {
		cfg.Auth.Session = v
	}
	if v := os.Getenv(EnvPrefix); v != "" {
		cfg.Bot.Prefix = v
	}
}

// Save writes configuration to disk.
func Save(cfg *Config) error {
	return SaveTo(cfg, ConfigPath())
}

// SaveTo writes configuration to a specific path. The file may hold
// credentials, so it is only readable by the owner.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Upgrade reads the existing config file, deep-merges it on top of
// DefaultConfig (local values win), and saves the result.
// New fields from defaults are added; existing user values are preserved.
func Upgrade() (*Config, error) {
	return UpgradeAt(ConfigPath())
}

// UpgradeAt is Upgrade for a specific path.
func UpgradeAt(path string) (*Config, error) {
	defaultData, err := json.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	var defaultMap map[string]any
	if err := json.Unmarshal(defaultData, &defaultMap); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}

	localData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var localMap map[string]any
	if err := json.Unmarshal(localData, &localMap); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	merged := deepMerge(defaultMap, localMap)

	// Re-serialize through the struct to drop unknown keys and normalize.
	cfg := DefaultConfig()
	reData, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode merged config: %w", err)
	}
	if err := json.Unmarshal(reData, cfg); err != nil {
		return nil, fmt.Errorf("apply merged config: %w", err)
	}

	if err := SaveTo(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// deepMerge recursively merges src into dst. Values from src take priority.
// For nested maps, merge recursively. For all other types, src wins.
func deepMerge(dst, src map[string]any) map[string]any {
	result := make(map[string]any, len(dst))
	for k, v := range dst {
		result[k] = v
	}
	for k, srcVal := range src {
		dstVal, exists := result[k]
		if !exists {
			result[k] = srcVal
			continue
		}
		dstMap, dstOK := dstVal.(map[string]any)
		srcMap, srcOK := srcVal.(map[string]any)
		if dstOK && srcOK {
			result[k] = deepMerge(dstMap, srcMap)
		} else {
			result[k] = srcVal
		}
	}
	return result
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp"
	}
	return home
}
