package config

import (
	"net"
	"strconv"
	"time"
)

// Default values for configuration fields.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8000
	DefaultMaxMessageSize  = 1 << 20
	DefaultSendBufferSize  = 256
	DefaultWriteTimeout    = 10 * time.Second
	DefaultProbeInterval   = 30 * time.Second
	DefaultProbeTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRateLimitRefill = time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// RateLimitConfig defines per-connection inbound message throttling.
// A Burst of zero disables the limiter.
type RateLimitConfig struct {
	Burst          int           `yaml:"burst" validate:"gte=0"`
	RefillInterval time.Duration `yaml:"refill_interval" validate:"gt=0"`
}

// Enabled reports whether inbound messages are throttled.
func (r RateLimitConfig) Enabled() bool {
	return r.Burst > 0
}

// LogConfig selects the logger level and output format.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Config holds the relay server settings.
type Config struct {
	Host string `yaml:"host" validate:"omitempty,hostname|ip"`
	Port int    `yaml:"port" validate:"gte=1,lte=65535"`

	// AllowedOrigins lists the browser origins allowed to open a WebSocket.
	// "*" allows any origin, including requests without an Origin header.
	AllowedOrigins []string `yaml:"allowed_origins"`

	MaxMessageSize int64         `yaml:"max_message_size" validate:"gt=0"`
	SendBufferSize int           `yaml:"send_buffer_size" validate:"gt=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gt=0"`

	// ProbeInterval is the time between keepalive pings. ProbeTimeout is how
	// long a connection may stay silent past a ping before it is declared dead.
	ProbeInterval time.Duration `yaml:"probe_interval" validate:"gt=0"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout" validate:"gt=0"`

	// EchoToSender delivers each message back to the connection that sent it.
	EchoToSender bool `yaml:"echo_to_sender"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns a Config populated with default values for all settings.
func Default() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		AllowedOrigins:  []string{"*"},
		MaxMessageSize:  DefaultMaxMessageSize,
		SendBufferSize:  DefaultSendBufferSize,
		WriteTimeout:    DefaultWriteTimeout,
		ProbeInterval:   DefaultProbeInterval,
		ProbeTimeout:    DefaultProbeTimeout,
		EchoToSender:    true,
		ShutdownTimeout: DefaultShutdownTimeout,
		RateLimit: RateLimitConfig{
			Burst:          0,
			RefillInterval: DefaultRateLimitRefill,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return &out
}
