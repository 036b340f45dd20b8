// Package postgres is a traced pgxpool wrapper used as a durable cache
// backend when Persona clients share a database rather than Redis.
//
// The wrapper exposes only what a key/value table needs: single-row
// queries, statements and a health ping. Spans follow the database
// client semantic conventions and errors are returned as [*pserr.Error].
//
//	cfg := postgres.DefaultConfig()
//	cfg.URI = os.Getenv("DATABASE_URL")
//	client, err := postgres.NewClient(ctx, *cfg)
//
// Tests inject pgxmock through [NewFromPool].
package postgres

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const maxSQLTruncateLen = 100

const (
	DefaultHost           = "localhost"
	DefaultPort           = 5432
	DefaultDatabase       = "persona"
	DefaultUser           = "postgres"
	DefaultMaxConns       = 10
	DefaultMinConns       = 1
	DefaultConnectTimeout = 5 * time.Second
	DefaultHealthTimeout  = 5 * time.Second
)

// SSLMode is a libpq sslmode value.
type SSLMode string

const (
	SSLModeDisable    SSLMode = "disable"
	SSLModePrefer     SSLMode = "prefer"
	SSLModeRequire    SSLMode = "require"
	SSLModeVerifyCA   SSLMode = "verify-ca"
	SSLModeVerifyFull SSLMode = "verify-full"
)

// Valid reports whether m is a recognised mode.
func (m SSLMode) Valid() bool {
	switch m {
	case SSLModeDisable, SSLModePrefer, SSLModeRequire, SSLModeVerifyCA, SSLModeVerifyFull:
		return true
	}
	return false
}

// Secret hides a password from fmt, slog and text marshalling.
type Secret string

const redacted = "[REDACTED]"

func (s Secret) String() string   { return redacted }
func (s Secret) GoString() string { return redacted }

// Value returns the raw secret.
func (s Secret) Value() string { return string(s) }

// MarshalText implements encoding.TextMarshaler with the redacted form.
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Config holds the connection settings. URI, when set, takes precedence
// over the structured fields.
type Config struct {
	URI            string        `json:"uri,omitempty" yaml:"uri" env:"POSTGRES_URI"`
	Host           string        `json:"host,omitempty" yaml:"host" env:"POSTGRES_HOST"`
	Port           int           `json:"port,omitempty" yaml:"port" env:"POSTGRES_PORT"`
	Database       string        `json:"database" yaml:"database" env:"POSTGRES_DATABASE"`
	User           string        `json:"user" yaml:"user" env:"POSTGRES_USER"`
	Password       Secret        `json:"-" yaml:"-" env:"POSTGRES_PASSWORD"`
	SSLMode        SSLMode       `json:"ssl_mode,omitempty" yaml:"ssl_mode" env:"POSTGRES_SSLMODE"`
	MaxConns       int32         `json:"max_conns,omitempty" yaml:"max_conns" env:"POSTGRES_MAX_CONNS"`
	MinConns       int32         `json:"min_conns,omitempty" yaml:"min_conns" env:"POSTGRES_MIN_CONNS"`
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty" yaml:"connect_timeout" env:"POSTGRES_CONNECT_TIMEOUT"`
}

// DefaultConfig returns a Config for a local database.
func DefaultConfig() *Config {
	return &Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		Database:       DefaultDatabase,
		User:           DefaultUser,
		SSLMode:        SSLModePrefer,
		MaxConns:       DefaultMaxConns,
		MinConns:       DefaultMinConns,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// Validate applies defaults to zero-valued fields and returns the first
// invalid setting found.
func (c *Config) Validate() error {
	if c.MaxConns == 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.MinConns == 0 {
		c.MinConns = DefaultMinConns
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MaxConns < c.MinConns {
		return fmt.Errorf("postgres: config max_conns (%d) must be >= min_conns (%d)", c.MaxConns, c.MinConns)
	}

	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return fmt.Errorf("postgres: config URI is invalid: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("postgres: config URI scheme must be postgres:// or postgresql://, got %q", u.Scheme)
		}
		return nil
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.SSLMode == "" {
		c.SSLMode = SSLModePrefer
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("postgres: config port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Database == "" {
		return errors.New("postgres: config database must not be empty")
	}
	if c.User == "" {
		return errors.New("postgres: config user must not be empty")
	}
	if !c.SSLMode.Valid() {
		return fmt.Errorf("postgres: config ssl_mode %q is not valid", c.SSLMode)
	}
	return nil
}

// ConnectionString returns URI or a postgres:// URL built from the
// structured fields. The result contains the password in clear text.
func (c *Config) ConnectionString() string {
	if c.URI != "" {
		return c.URI
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password.Value()),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Database,
	}
	q := u.Query()
	if c.SSLMode != "" {
		q.Set("sslmode", string(c.SSLMode))
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func truncateSQL(sql string) string {
	if len(sql) <= maxSQLTruncateLen {
		return sql
	}
	return sql[:maxSQLTruncateLen] + "..."
}
