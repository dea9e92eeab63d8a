package config

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) validate() []string {
	var errs []string

	// bot
	if c.Bot.Prefix == "" || strings.ContainsAny(c.Bot.Prefix, " \t\n") {
		errs = append(errs, "bot.prefix must be non-empty and contain no whitespace")
	}
	switch c.Bot.HandlerErrors {
	case HandlerErrorsLog, HandlerErrorsStop:
	default:
		errs = append(errs, fmt.Sprintf("bot.handlerErrors must be %q or %q", HandlerErrorsLog, HandlerErrorsStop))
	}

	// auth
	if c.Auth.Key != "" {
		if _, err := hex.DecodeString(c.Auth.Key); err != nil {
			errs = append(errs, "auth.key must be hex-encoded")
		}
	}
	if b, err := hex.DecodeString(c.Auth.SignatureVersion); err != nil || len(b) != 1 {
		errs = append(errs, "auth.signatureVersion must be a single hex byte")
	}

	// socket
	if !strings.HasPrefix(c.Socket.URL, "wss://") && !strings.HasPrefix(c.Socket.URL, "ws://") {
		errs = append(errs, "socket.url must be a ws:// or wss:// URL")
	}
	if c.Socket.ReconnectIntervalSeconds <= 0 {
		errs = append(errs, "socket.reconnectIntervalSeconds must be positive")
	}
	if c.Socket.RetryBackoffMs <= 0 {
		errs = append(errs, "socket.retryBackoffMs must be positive")
	}

	// logging
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "logging.level must be one of debug, info, warn, error")
	}

	return errs
}

// CheckUnknownFields walks the raw config map and returns paths of any keys
// that do not correspond to known Config struct fields.
func CheckUnknownFields(raw map[string]any) []string {
	result := checkUnknownFields(raw, reflect.TypeOf(Config{}), "")
	sort.Strings(result)
	return result
}

func checkUnknownFields(data map[string]any, t reflect.Type, prefix string) []string {
	t = derefType(t)

	switch t.Kind() {
	case reflect.Map:
		// Map keys are user-defined; check values only.
		elemType := derefType(t.Elem())
		if elemType.Kind() != reflect.Struct {
			return nil
		}
		var unknown []string
		for key, val := range data {
			if nested, ok := val.(map[string]any); ok {
				unknown = append(unknown, checkUnknownFields(nested, elemType, joinPath(prefix, key))...)
			}
		}
		return unknown

	case reflect.Struct:
		known := jsonFieldMap(t)
		var unknown []string
		for key, val := range data {
			ft, ok := known[key]
			if !ok {
				unknown = append(unknown, joinPath(prefix, key))
				continue
			}
			if nested, ok := val.(map[string]any); ok {
				unknown = append(unknown, checkUnknownFields(nested, ft, joinPath(prefix, key))...)
			}
		}
		return unknown

	default:
		return nil
	}
}

func jsonFieldMap(t reflect.Type) map[string]reflect.Type {
	m := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name != "" {
			m[name] = f.Type
		}
	}
	return m
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
