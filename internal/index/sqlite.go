package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/stardustx8/legalchat/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Similarity is
// computed in Go since SQLite has no vector type; it is intended for local
// development and small corpora.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS knife_chunks (
	id         TEXT PRIMARY KEY,
	iso_code   TEXT NOT NULL,
	chunk      TEXT NOT NULL,
	embedding  TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_knife_chunks_iso_code ON knife_chunks(iso_code);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Search(ctx context.Context, vector []float64, k int, codes []string) ([]model.ScoredChunk, error) {
	query := `SELECT id, iso_code, chunk, embedding FROM knife_chunks`
	var args []any
	if len(codes) > 0 {
		query += ` WHERE iso_code IN (?` + strings.Repeat(",?", len(codes)-1) + `)`
		for _, c := range codes {
			args = append(args, c)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search")
	}
	defer rows.Close()

	var scored []model.ScoredChunk
	for rows.Next() {
		var sc model.ScoredChunk
		var embJSON string
		if err := rows.Scan(&sc.ID, &sc.ISOCode, &sc.Content, &embJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan chunk")
		}
		if err := json.Unmarshal([]byte(embJSON), &sc.Embedding); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode embedding %s", sc.ID)
		}
		sc.Score = cosineSimilarity(vector, sc.Embedding)
		scored = append(scored, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate chunks")
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	for i := range scored {
		scored[i].Embedding = nil
	}
	return scored, nil
}

func (s *SQLiteStore) Upload(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upload")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, c := range chunks {
		embJSON, err := json.Marshal(c.Embedding)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode embedding %s", c.ID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO knife_chunks (id, iso_code, chunk, embedding, updated_at)
			VALUES (?, ?, ?, ?, datetime('now'))
			ON CONFLICT (id) DO UPDATE
			SET iso_code = excluded.iso_code, chunk = excluded.chunk,
			    embedding = excluded.embedding, updated_at = datetime('now')`,
			c.ID, c.ISOCode, c.Content, string(embJSON),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert chunk %s", c.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upload")
}

func (s *SQLiteStore) DeleteJurisdiction(ctx context.Context, code string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM knife_chunks WHERE iso_code = ?`, code)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete jurisdiction %s", code)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM knife_chunks`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

// cosineSimilarity returns 0 for mismatched or zero-magnitude vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
