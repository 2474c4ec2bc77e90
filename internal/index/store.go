// Package index provides the vector index backends used for retrieval.
// Documents are stored as per-jurisdiction chunks with embeddings; search is
// vector similarity optionally filtered to a set of ISO country codes.
package index

import (
	"context"

	"github.com/stardustx8/legalchat/internal/model"
)

// Store defines the persistence interface for the chunk index.
type Store interface {
	// Search returns the top k chunks most similar to the query vector.
	// When codes is non-empty, results are restricted to those jurisdictions.
	Search(ctx context.Context, vector []float64, k int, codes []string) ([]model.ScoredChunk, error)

	// Upload inserts or replaces the given chunks by ID.
	Upload(ctx context.Context, chunks []model.Chunk) error

	// DeleteJurisdiction removes all chunks for one ISO code and reports how
	// many were deleted.
	DeleteJurisdiction(ctx context.Context, code string) (int, error)

	// Purge removes every chunk in the index.
	Purge(ctx context.Context) (int, error)

	Close() error
}
