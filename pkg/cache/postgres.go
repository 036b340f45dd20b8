package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/techfromsage/persona-go/pkg/clients/postgres"
	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

// DefaultPostgresTable is the table used when no name is given.
const DefaultPostgresTable = "persona_cache"

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Postgres is a [Cache] kept in a single table:
//
//	key        TEXT PRIMARY KEY
//	value      TEXT NOT NULL
//	expires_at TIMESTAMPTZ NULL   (NULL means no expiry)
//
// Expired rows are ignored on read and removed by [Postgres.Purge].
type Postgres struct {
	client *postgres.Client
	table  string
	now    func() time.Time

	selectSQL string
	upsertSQL string
	deleteSQL string
	purgeSQL  string
}

var _ Cache = (*Postgres)(nil)

// PostgresOption configures a [Postgres] backend.
type PostgresOption func(*Postgres)

// WithTable overrides [DefaultPostgresTable].
func WithTable(name string) PostgresOption {
	return func(p *Postgres) { p.table = name }
}

// WithPostgresClock sets the clock used to compute expires_at.
func WithPostgresClock(now func() time.Time) PostgresOption {
	return func(p *Postgres) { p.now = now }
}

// NewPostgres returns a backend over client. The table name must be a
// lower-case SQL identifier; it is interpolated into statements.
func NewPostgres(client *postgres.Client, opts ...PostgresOption) (*Postgres, error) {
	p := &Postgres{client: client, table: DefaultPostgresTable, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if !tableNamePattern.MatchString(p.table) {
		return nil, pserr.Newf(pserr.CodeValidationFormat,
			"cache: invalid postgres table name %q", p.table)
	}

	p.selectSQL = fmt.Sprintf(
		`SELECT value FROM %s WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`, p.table)
	p.upsertSQL = fmt.Sprintf(
		`INSERT INTO %s (key, value, expires_at) VALUES ($1, $2, $3) `+
			`ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`, p.table)
	p.deleteSQL = fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, p.table)
	p.purgeSQL = fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= $1`, p.table)
	return p, nil
}

// EnsureSchema creates the table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.client.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at TIMESTAMPTZ
)`, p.table))
	return err
}

// Get returns the unexpired value or [ErrMiss].
func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.client.QueryRow(ctx, p.selectSQL, key, p.now()).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrMiss
	}
	if err != nil {
		return "", p.client.ScanError(err)
	}
	return value, nil
}

// Set upserts value under key for ttl.
func (p *Postgres) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := p.now().Add(ttl)
		expiresAt = &t
	}
	_, err := p.client.Exec(ctx, p.upsertSQL, key, value, expiresAt)
	return err
}

// Delete removes key.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.client.Exec(ctx, p.deleteSQL, key)
	return err
}

// Purge deletes expired rows and returns how many were removed.
func (p *Postgres) Purge(ctx context.Context) (int64, error) {
	tag, err := p.client.Exec(ctx, p.purgeSQL, p.now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
