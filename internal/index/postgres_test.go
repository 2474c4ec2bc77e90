package index

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stardustx8/legalchat/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewPostgresFromPool(mock, 1024), mock
}

func TestPostgresStore_Search_WithCodes(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "iso_code", "chunk", "score"}).
		AddRow("CH-0001", "CH", "Swiss rules", 0.92).
		AddRow("FR-0001", "FR", "French rules", 0.85)
	mock.ExpectQuery(`SELECT id, iso_code, chunk, 1 - \(embedding <=> \$1::vector\) AS score`).
		WithArgs("[0.100000,0.200000]", []string{"CH", "FR"}, 10).
		WillReturnRows(rows)

	got, err := s.Search(context.Background(), []float64{0.1, 0.2}, 10, []string{"CH", "FR"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.ScoredChunk{
		Chunk: model.Chunk{ID: "CH-0001", ISOCode: "CH", Content: "Swiss rules"},
		Score: 0.92,
	}, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Search_NoCodes(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, iso_code, chunk, 1 - \(embedding <=> \$1::vector\) AS score`).
		WithArgs("[0.500000]", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "iso_code", "chunk", "score"}))

	got, err := s.Search(context.Background(), []float64{0.5}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Upload(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO knife_chunks`).
		WithArgs("CH-0000", "CH", "Swiss rules", "[0.100000]").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.Upload(context.Background(), []model.Chunk{
		{ID: "CH-0000", ISOCode: "CH", Content: "Swiss rules", Embedding: []float64{0.1}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteJurisdiction(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM knife_chunks WHERE iso_code = \$1`).
		WithArgs("CH").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteJurisdiction(context.Background(), "CH")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Purge(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM knife_chunks`).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	n, err := s.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS vector`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "[]", formatVector(nil))
	assert.Equal(t, "[1.000000,-0.500000]", formatVector([]float64{1, -0.5}))
}
