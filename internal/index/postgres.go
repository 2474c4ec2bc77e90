package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/stardustx8/legalchat/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock's pool
// interface satisfies it, which keeps the store unit-testable.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store on Postgres with the pgvector extension.
type PostgresStore struct {
	pool    Pool
	dims    int
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool. dims is the
// embedding dimensionality used when creating the chunks table.
func NewPostgres(ctx context.Context, connString string, dims int) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, dims: dims, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, mainly for tests.
func NewPostgresFromPool(pool Pool, dims int) *PostgresStore {
	return &PostgresStore{pool: pool, dims: dims}
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS knife_chunks (
	id         TEXT PRIMARY KEY,
	iso_code   TEXT NOT NULL,
	chunk      TEXT NOT NULL,
	embedding  vector(%d) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_knife_chunks_iso_code ON knife_chunks(iso_code);
`

// Migrate creates the chunks table and the pgvector extension.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(postgresMigration, s.dims))
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// formatVector renders an embedding as a pgvector literal.
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s *PostgresStore) Search(ctx context.Context, vector []float64, k int, codes []string) ([]model.ScoredChunk, error) {
	vec := formatVector(vector)

	var rows pgx.Rows
	var err error
	if len(codes) > 0 {
		rows, err = s.pool.Query(ctx,
			`SELECT id, iso_code, chunk, 1 - (embedding <=> $1::vector) AS score
			FROM knife_chunks
			WHERE iso_code = ANY($2)
			ORDER BY embedding <=> $1::vector
			LIMIT $3`,
			vec, codes, k,
		)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT id, iso_code, chunk, 1 - (embedding <=> $1::vector) AS score
			FROM knife_chunks
			ORDER BY embedding <=> $1::vector
			LIMIT $2`,
			vec, k,
		)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search")
	}
	defer rows.Close()

	var out []model.ScoredChunk
	for rows.Next() {
		var sc model.ScoredChunk
		if err := rows.Scan(&sc.ID, &sc.ISOCode, &sc.Content, &sc.Score); err != nil {
			return nil, eris.Wrap(err, "postgres: scan chunk")
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate chunks")
	}
	return out, nil
}

func (s *PostgresStore) Upload(ctx context.Context, chunks []model.Chunk) error {
	for _, c := range chunks {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO knife_chunks (id, iso_code, chunk, embedding, updated_at)
			VALUES ($1, $2, $3, $4::vector, now())
			ON CONFLICT (id) DO UPDATE
			SET iso_code = EXCLUDED.iso_code, chunk = EXCLUDED.chunk,
			    embedding = EXCLUDED.embedding, updated_at = now()`,
			c.ID, c.ISOCode, c.Content, formatVector(c.Embedding),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert chunk %s", c.ID)
		}
	}
	return nil
}

func (s *PostgresStore) DeleteJurisdiction(ctx context.Context, code string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM knife_chunks WHERE iso_code = $1`, code)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete jurisdiction %s", code)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Purge(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM knife_chunks`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge")
	}
	return int(tag.RowsAffected()), nil
}
