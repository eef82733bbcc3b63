// Package store persists profiling runs in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mlst/pkg/api"
)

// Schema is safe to execute repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS mlst_profiles (
    run_id         UUID        NOT NULL,
    name           TEXT        NOT NULL,
    sequence_type  TEXT        NOT NULL,
    clonal_complex TEXT        NOT NULL,
    alleles        JSONB       NOT NULL,
    failed         BOOLEAN     NOT NULL DEFAULT false,
    error          TEXT        NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_mlst_profiles_sequence_type
    ON mlst_profiles (sequence_type);
`

const insertProfile = `INSERT INTO mlst_profiles (run_id, name, sequence_type, clonal_complex, alleles, failed, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (run_id, name) DO UPDATE SET sequence_type  = EXCLUDED.sequence_type,
                                         clonal_complex = EXCLUDED.clonal_complex,
                                         alleles        = EXCLUDED.alleles,
                                         failed         = EXCLUDED.failed,
                                         error          = EXCLUDED.error`

const selectRun = `SELECT name, sequence_type, clonal_complex, alleles, error
FROM mlst_profiles WHERE run_id = $1 ORDER BY name`

// conn is the part of *pgxpool.Pool the store needs.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Open connects a pool and checks it with a ping.
func Open(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

type Store struct {
	db  conn
	now func() time.Time
}

// New wraps db, normally a *pgxpool.Pool.
func New(db conn) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveRun stores profiles under runID in one batch. Saving the same name
// twice within a run overwrites the earlier row.
func (s *Store) SaveRun(ctx context.Context, runID uuid.UUID, profiles []api.ProfileV1) error {
	if len(profiles) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	at := s.now().UTC()
	for _, p := range profiles {
		alleles, err := json.Marshal(p.Alleles)
		if err != nil {
			return fmt.Errorf("marshal alleles of %s: %w", p.Name, err)
		}
		b.Queue(insertProfile, runID, p.Name, p.SequenceType, p.ClonalComplex, alleles, p.Error != "", p.Error, at)
	}

	br := s.db.SendBatch(ctx, b)
	for _, p := range profiles {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("save %s: %w", p.Name, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("save run %s: %w", runID, err)
	}
	return nil
}

// Run loads the profiles of runID ordered by name.
func (s *Store) Run(ctx context.Context, runID uuid.UUID) ([]api.ProfileV1, error) {
	rows, err := s.db.Query(ctx, selectRun, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []api.ProfileV1
	for rows.Next() {
		var (
			p       api.ProfileV1
			alleles []byte
		)
		if err := rows.Scan(&p.Name, &p.SequenceType, &p.ClonalComplex, &alleles, &p.Error); err != nil {
			return nil, fmt.Errorf("scan run %s: %w", runID, err)
		}
		if err := json.Unmarshal(alleles, &p.Alleles); err != nil {
			return nil, fmt.Errorf("decode alleles of %s: %w", p.Name, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	return out, nil
}
