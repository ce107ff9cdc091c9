// Package postgres provides the Postgres-backed image store.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openglam/smithsonian-harvester/internal/harvest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for image rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store writes image records into Postgres, deduplicating on the foreign
// identifier with ON CONFLICT DO NOTHING. The running total counts rows the
// database actually inserted.
type Store struct {
	pool  execCloser
	table string
	total int
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "images"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewWithPool(pool execCloser, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "images"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// AddItem inserts one record. A conflicting foreign identifier leaves the
// existing row in place and does not advance the total.
func (s *Store) AddItem(ctx context.Context, rec harvest.ImageRecord) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("image store is not configured")
	}
	if rec.ForeignID == "" {
		return s.total, fmt.Errorf("foreign identifier is required")
	}
	if rec.ForeignLandingURL == "" {
		return s.total, fmt.Errorf("foreign landing url is required")
	}
	if rec.ImageURL == "" {
		return s.total, fmt.Errorf("image url is required")
	}

	metaJSON, err := json.Marshal(rec.MetaData)
	if err != nil {
		return s.total, fmt.Errorf("marshal meta data: %w", err)
	}
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return s.total, fmt.Errorf("marshal tags: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	foreign_identifier,
	foreign_landing_url,
	image_url,
	thumbnail_url,
	license_url,
	title,
	creator,
	meta_data,
	tags
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (foreign_identifier) DO NOTHING`, s.table)

	tag, err := s.pool.Exec(ctx, query,
		rec.ForeignID,
		rec.ForeignLandingURL,
		rec.ImageURL,
		rec.ThumbnailURL,
		rec.LicenseURL,
		rec.Title,
		rec.Creator,
		metaJSON,
		tagsJSON,
	)
	if err != nil {
		return s.total, fmt.Errorf("insert image: %w", err)
	}
	s.total += int(tag.RowsAffected())
	return s.total, nil
}

// Commit reports the number of rows inserted over the run. Inserts are
// applied as they arrive, so there is nothing left to flush.
func (s *Store) Commit(_ context.Context) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("image store is not configured")
	}
	return s.total, nil
}
