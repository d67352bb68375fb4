// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig    `envconfig:"SERVER"`
	Upload   UploadConfig    `envconfig:"UPLOAD"`
	Session  SessionConfig   `envconfig:"SESSION"`
	Rate     RateLimitConfig `envconfig:"RATE_LIMIT"`
	Security SecurityConfig  `envconfig:"SECURITY"`
	Clean    CleanConfig     `envconfig:"CLEAN"`
	Logging  LoggingConfig   `envconfig:"LOG"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds file upload and parsing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed size of one uploaded file in bytes (default: 50MB)
	MaxFileSize int64 `envconfig:"MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of files parsed in parallel (default: 4)
	MaxConcurrent int `envconfig:"MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a parse slot (default: 30s)
	MaxWaitTime time.Duration `envconfig:"MAX_WAIT_TIME" default:"30s"`

	// PreviewRows is the default number of rows in a head preview (default: 5)
	PreviewRows int `envconfig:"PREVIEW_ROWS" default:"5"`

	// MaxPreviewRows caps the n query parameter of preview requests (default: 500)
	MaxPreviewRows int `envconfig:"MAX_PREVIEW_ROWS" default:"500"`
}

// SessionConfig holds settings for the in-memory session store.
type SessionConfig struct {
	// TTL is how long an idle session is kept (default: 2h)
	TTL time.Duration `envconfig:"TTL" default:"2h"`

	// ReapInterval is how often expired sessions are removed (default: 5m)
	ReapInterval time.Duration `envconfig:"REAP_INTERVAL" default:"5m"`

	// MaxFiles is the maximum number of files held by one session (default: 20)
	MaxFiles int `envconfig:"MAX_FILES" default:"20"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `envconfig:"ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per IP (default: 120)
	RequestsPerMinute int `envconfig:"REQUESTS_PER_MINUTE" default:"120"`

	// Burst is the number of requests allowed above the sustained rate (default: 30)
	Burst int `envconfig:"BURST" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `envconfig:"ENABLE_CSP" default:"true"`

	// CORSAllowedOrigins is a comma-separated list of origins allowed to call
	// the JSON API from a browser. Empty disables CORS.
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
}

// CleanConfig holds data cleaning settings.
type CleanConfig struct {
	// FoldAccents folds diacritics (é -> e) before text normalization strips
	// non-alphanumeric characters (default: false)
	FoldAccents bool `envconfig:"FOLD_ACCENTS" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `envconfig:"LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `envconfig:"FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
