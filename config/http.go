package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"ADDR" envDefault:":8080"`

	// MaxConnections caps concurrently accepted connections. Zero disables the cap.
	MaxConnections int `env:"MAX_CONNECTIONS" envDefault:"0"`

	// MaxBodyBytes caps inbound webhook bodies.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT"     envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT"     envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.MaxConnections < 0 {
		h.MaxConnections = 0
	}
	if h.MaxBodyBytes <= 0 {
		h.MaxBodyBytes = 1 << 20
	}
	if h.ReadTimeout <= 0 {
		h.ReadTimeout = 30 * time.Second
	}
	if h.WriteTimeout <= 0 {
		h.WriteTimeout = 30 * time.Second
	}
	if h.IdleTimeout <= 0 {
		h.IdleTimeout = 120 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}
