package ingest

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stardustx8/legalchat/internal/index"
	"github.com/stardustx8/legalchat/internal/model"
	"github.com/stardustx8/legalchat/internal/resilience"
	"github.com/stardustx8/legalchat/pkg/embeddings"
)

const (
	embedBatchSize       = 16
	maxEmbedConcurrency  = 4
	defaultMaxChunkChars = 2000
)

// Ingester turns one jurisdiction's source text into indexed chunks.
type Ingester struct {
	embedder      embeddings.Client
	store         index.Store
	maxChunkChars int
	retry         resilience.Policy
	log           *zap.Logger
}

// NewIngester constructs an Ingester. maxChunkChars <= 0 selects the default.
func NewIngester(embedder embeddings.Client, store index.Store, maxChunkChars int, rp resilience.Policy, log *zap.Logger) *Ingester {
	if maxChunkChars <= 0 {
		maxChunkChars = defaultMaxChunkChars
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingester{embedder: embedder, store: store, maxChunkChars: maxChunkChars, retry: rp, log: log}
}

// IngestText replaces the indexed chunks for one jurisdiction with chunks
// derived from text. Returns the number of chunks written. Existing chunks
// are deleted only after every embedding succeeded, so a failed run leaves
// the previous document intact.
func (in *Ingester) IngestText(ctx context.Context, code, text string) (int, error) {
	if !model.ValidCode(code) {
		return 0, eris.Errorf("ingest: invalid ISO 3166-1 alpha-2 code %q", code)
	}

	pieces := SplitText(text, in.maxChunkChars)
	if len(pieces) == 0 {
		return 0, eris.Errorf("ingest: no content for %s", code)
	}

	vectors, err := in.embedAll(ctx, pieces)
	if err != nil {
		return 0, err
	}

	chunks := make([]model.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = model.Chunk{
			ID:        fmt.Sprintf("%s-%04d", code, i),
			ISOCode:   code,
			Content:   p,
			Embedding: vectors[i],
		}
	}

	removed, err := in.store.DeleteJurisdiction(ctx, code)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: delete existing chunks for %s", code)
	}
	if err := in.store.Upload(ctx, chunks); err != nil {
		return 0, eris.Wrapf(err, "ingest: upload chunks for %s", code)
	}

	in.log.Info("jurisdiction ingested",
		zap.String("iso_code", code),
		zap.Int("chunks", len(chunks)),
		zap.Int("replaced", removed),
	)
	return len(chunks), nil
}

// embedAll embeds pieces in batches, a bounded number in flight at once.
// Results land by index so output order matches input order.
func (in *Ingester) embedAll(ctx context.Context, pieces []string) ([][]float64, error) {
	vectors := make([][]float64, len(pieces))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxEmbedConcurrency)

	for start := 0; start < len(pieces); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		start, end := start, end
		g.Go(func() error {
			policy := in.retry
			if policy.OnRetry == nil {
				policy.OnRetry = resilience.Logged(in.log, "embeddings", "embed_chunks")
			}
			batch, err := resilience.DoVal(gCtx, policy, func(ctx context.Context) ([][]float64, error) {
				return in.embedder.EmbedBatch(ctx, pieces[start:end])
			})
			if err != nil {
				return err
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
