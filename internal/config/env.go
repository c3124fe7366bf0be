package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names recognised by ApplyEnv.
const (
	EnvHost            = "HOST"
	EnvPort            = "PORT"
	EnvAllowedOrigins  = "ALLOWED_ORIGINS"
	EnvMaxMessageSize  = "MAX_MESSAGE_SIZE"
	EnvSendBufferSize  = "SEND_BUFFER_SIZE"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvProbeInterval   = "PROBE_INTERVAL"
	EnvProbeTimeout    = "PROBE_TIMEOUT"
	EnvEchoToSender    = "ECHO_TO_SENDER"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvRateLimitBurst  = "RATE_LIMIT_BURST"
	EnvRateLimitRefill = "RATE_LIMIT_REFILL_INTERVAL"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
)

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Files that
// do not exist are skipped. With no paths, ".env" is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv returns the defaults overridden by the process environment.
func FromEnv() *Config {
	cfg := Default()
	ApplyEnv(cfg)
	return cfg
}

// ApplyEnv overrides fields of cfg from environment variables. Unset
// variables and unparsable values leave the current value in place.
func ApplyEnv(cfg *Config) {
	applyEnvWith(cfg, os.LookupEnv)
}

func applyEnvWith(cfg *Config, lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get(EnvHost); ok {
		cfg.Host = v
	}
	if v, ok := get(EnvPort); ok {
		cfg.Port = parseIntValue(v, cfg.Port)
	}
	if v, ok := get(EnvAllowedOrigins); ok {
		cfg.AllowedOrigins = parseOrigins(v)
	}
	if v, ok := get(EnvMaxMessageSize); ok {
		cfg.MaxMessageSize = parseMaxMessageSize(v, cfg.MaxMessageSize)
	}
	if v, ok := get(EnvSendBufferSize); ok {
		cfg.SendBufferSize = parseIntValue(v, cfg.SendBufferSize)
	}
	if v, ok := get(EnvWriteTimeout); ok {
		cfg.WriteTimeout = parseSeconds(v, cfg.WriteTimeout)
	}
	if v, ok := get(EnvProbeInterval); ok {
		cfg.ProbeInterval = parseSeconds(v, cfg.ProbeInterval)
	}
	if v, ok := get(EnvProbeTimeout); ok {
		cfg.ProbeTimeout = parseSeconds(v, cfg.ProbeTimeout)
	}
	if v, ok := get(EnvEchoToSender); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EchoToSender = b
		}
	}
	if v, ok := get(EnvShutdownTimeout); ok {
		cfg.ShutdownTimeout = parseSeconds(v, cfg.ShutdownTimeout)
	}
	if v, ok := get(EnvRateLimitBurst); ok {
		if burst, err := strconv.Atoi(v); err == nil && burst >= 0 {
			cfg.RateLimit.Burst = burst
		}
	}
	if v, ok := get(EnvRateLimitRefill); ok {
		cfg.RateLimit.RefillInterval = parseSeconds(v, cfg.RateLimit.RefillInterval)
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v, ok := get(EnvLogFormat); ok {
		cfg.Log.Format = strings.ToLower(v)
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// parseSeconds accepts a whole number of seconds or a Go duration string.
func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
