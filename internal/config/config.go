package config

import "path/filepath"

// Config is the root configuration for aminobot.
type Config struct {
	Bot     BotConfig     `json:"bot"`
	Auth    AuthConfig    `json:"auth"`
	Socket  SocketConfig  `json:"socket"`
	Logging LoggingConfig `json:"logging"`
}

// Handler error policies.
const (
	HandlerErrorsLog  = "log"
	HandlerErrorsStop = "stop"
)

// BotConfig holds command and dispatch settings.
type BotConfig struct {
	Prefix string `json:"prefix"`
	// SelfProfileID overrides the profile id taken from the session.
	SelfProfileID string `json:"selfProfileId"`
	// HandlerErrors is what to do when a hook or command fails: "log" keeps
	// the frame loop running, "stop" ends it.
	HandlerErrors string `json:"handlerErrors"`
	// CooldownNotice, when set, is replied to commands dropped by a cooldown.
	CooldownNotice string `json:"cooldownNotice,omitempty"`
}

// AuthConfig holds device and session credentials.
type AuthConfig struct {
	DeviceID string `json:"deviceId"`
	// Key is the hex-encoded request signing key.
	Key              string `json:"key"`
	SignatureVersion string `json:"signatureVersion"`
	Session          string `json:"session"`
}

// SocketConfig holds realtime connection settings.
type SocketConfig struct {
	URL                      string `json:"url"`
	UserAgent                string `json:"userAgent"`
	ReconnectIntervalSeconds int    `json:"reconnectIntervalSeconds"`
	RetryBackoffMs           int    `json:"retryBackoffMs"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `json:"level"`
	Color bool   `json:"color"`
	// File, when set, receives plain log output instead of stderr.
	File string `json:"file,omitempty"`
}

// LogFilePath returns the expanded log file path, or "" for stderr.
func (c *Config) LogFilePath() string {
	if c.Logging.File == "" {
		return ""
	}
	return expandHome(c.Logging.File)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Prefix:        "!",
			HandlerErrors: HandlerErrorsLog,
		},
		Auth: AuthConfig{
			SignatureVersion: "42",
		},
		Socket: SocketConfig{
			URL:                      "wss://ws1.narvii.com/",
			UserAgent:                "aminobot/0.1.0",
			ReconnectIntervalSeconds: 360,
			RetryBackoffMs:           1000,
		},
		Logging: LoggingConfig{
			Level: "info",
			Color: true,
		},
	}
}

// HasCredentials reports whether everything needed to connect is set.
func (c *Config) HasCredentials() bool {
	return c.Auth.DeviceID != "" && c.Auth.Key != "" && c.Auth.Session != ""
}

func expandHome(path string) string {
	if len(path) > 1 && path[:2] == "~/" {
		home := homeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
