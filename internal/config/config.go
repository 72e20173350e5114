package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Mailbox
	MailDomain   string `env:"MAIL_DOMAIN" envDefault:"example.com"`
	MailServer   string `env:"MAIL_SERVER"` // resolved from MailDomain when empty
	MailPort     int    `env:"MAIL_PORT" envDefault:"993"`
	MailTLS      bool   `env:"MAIL_TLS" envDefault:"true"`
	MailUsername string `env:"MAIL_USERNAME,required"`
	MailPassword string `env:"MAIL_PASSWORD,required"`
	MailFolder   string `env:"MAIL_FOLDER" envDefault:"INBOX"`

	// IMAP
	IMAPDialTimeout    time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"15s"`
	IMAPCommandTimeout time.Duration `env:"IMAP_COMMAND_TIMEOUT" envDefault:"30s"`
	IMAPIdleTimeout    time.Duration `env:"IMAP_IDLE_TIMEOUT" envDefault:"5m"`

	// Connection pool
	PoolSize           int           `env:"POOL_SIZE" envDefault:"5"`
	PoolAcquireTimeout time.Duration `env:"POOL_ACQUIRE_TIMEOUT" envDefault:"10s"`

	// Inbox listing
	InboxSize int `env:"INBOX_SIZE" envDefault:"15"`

	// Visit log
	LogFile      string `env:"LOG_FILE" envDefault:"history.log"`
	LogSize      int    `env:"LOG_SIZE" envDefault:"15"`
	LogBackend   string `env:"LOG_BACKEND" envDefault:"file"` // "file" or "sqlite"
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/history.db"`

	// Geolocation
	GeoEndpoint string        `env:"GEO_ENDPOINT" envDefault:"http://ip-api.com/json/"`
	GeoTimeout  time.Duration `env:"GEO_TIMEOUT" envDefault:"3s"`

	// HTTP
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Credentials are the login for the shared mailbox.
type Credentials struct {
	Username string
	Secret   string
}

// LogValue keeps the secret out of log output.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("secret", "[redacted]"),
	)
}

// ConnectionConfig describes where the IMAP server lives.
type ConnectionConfig struct {
	Host   string
	Port   int
	UseTLS bool
}

// Addr returns host:port
func (c ConnectionConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Credentials returns the mailbox credentials
func (c *Config) Credentials() Credentials {
	return Credentials{Username: c.MailUsername, Secret: c.MailPassword}
}

// Connection returns the IMAP endpoint settings
func (c *Config) Connection() ConnectionConfig {
	return ConnectionConfig{Host: c.MailServer, Port: c.MailPort, UseTLS: c.MailTLS}
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required values and numeric bounds
func (c *Config) Validate() error {
	var errs []error

	if c.MailUsername == "" || c.MailPassword == "" {
		errs = append(errs, errors.New("MAIL_USERNAME and MAIL_PASSWORD must be set"))
	}
	if c.MailDomain == "" {
		errs = append(errs, errors.New("MAIL_DOMAIN must not be empty"))
	}

	errs = append(errs,
		intRange("MAIL_PORT", c.MailPort, 1, 65535),
		intRange("POOL_SIZE", c.PoolSize, 1, 50),
		intRange("INBOX_SIZE", c.InboxSize, 1, 200),
		intRange("LOG_SIZE", c.LogSize, 1, 500),
		durationRange("IMAP_DIAL_TIMEOUT", c.IMAPDialTimeout, time.Second, 2*time.Minute),
		durationRange("IMAP_COMMAND_TIMEOUT", c.IMAPCommandTimeout, time.Second, 5*time.Minute),
		durationRange("IMAP_IDLE_TIMEOUT", c.IMAPIdleTimeout, 10*time.Second, 30*time.Minute),
		durationRange("POOL_ACQUIRE_TIMEOUT", c.PoolAcquireTimeout, 100*time.Millisecond, 2*time.Minute),
		durationRange("GEO_TIMEOUT", c.GeoTimeout, 100*time.Millisecond, 30*time.Second),
	)

	switch c.LogBackend {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("LOG_BACKEND must be \"file\" or \"sqlite\", got %q", c.LogBackend))
	}

	return errors.Join(errs...)
}

func intRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be between %d and %d, got %d", name, lo, hi, v)
	}
	return nil
}

func durationRange(name string, v, lo, hi time.Duration) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be between %s and %s, got %s", name, lo, hi, v)
	}
	return nil
}
