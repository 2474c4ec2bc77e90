// Package retrieve implements jurisdiction-balanced vector retrieval. Raw
// similarity search favors whichever jurisdiction's phrasing is closest to
// the query; balancing redistributes slots so every detected jurisdiction
// with any hits is represented.
package retrieve

import (
	"context"

	"go.uber.org/zap"

	"github.com/stardustx8/legalchat/internal/index"
	"github.com/stardustx8/legalchat/internal/model"
	"github.com/stardustx8/legalchat/internal/resilience"
	"github.com/stardustx8/legalchat/pkg/embeddings"
)

// KPolicy holds the dynamic result-count constants.
type KPolicy struct {
	BaseK      int // single-jurisdiction result count
	PerCountry int // per-jurisdiction count for multi-jurisdiction queries
	MaxK       int // upper bound on the multi-jurisdiction count
	MinSearchK int // lower bound on raw search breadth
}

// DefaultKPolicy mirrors the production constants: legal chunks are dense,
// so single-jurisdiction queries pull a generous base and comparisons scale
// per jurisdiction up to a cap.
func DefaultKPolicy() KPolicy {
	return KPolicy{BaseK: 15, PerCountry: 10, MaxK: 50, MinSearchK: 10}
}

// KFor returns the result count for a query touching n jurisdictions.
func (p KPolicy) KFor(n int) int {
	if n <= 1 {
		return p.BaseK
	}
	k := n * p.PerCountry
	if k > p.MaxK {
		k = p.MaxK
	}
	return k
}

// searchBreadth returns how many raw candidates to request. Multi-country
// queries over-fetch so minority jurisdictions survive the similarity cut.
func (p KPolicy) searchBreadth(k, n int) int {
	if n <= 1 {
		return k
	}
	breadth := k * n
	if breadth < p.MinSearchK {
		breadth = p.MinSearchK
	}
	return breadth
}

// Retriever embeds a query and runs a balanced vector search against the
// chunk index.
type Retriever struct {
	embedder embeddings.Client
	store    index.Store
	policy   KPolicy
	retry    resilience.Policy
	log      *zap.Logger
}

// NewRetriever constructs a Retriever.
func NewRetriever(embedder embeddings.Client, store index.Store, kp KPolicy, rp resilience.Policy, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{embedder: embedder, store: store, policy: kp, retry: rp, log: log}
}

// KFor exposes the retriever's k policy to the orchestrator.
func (r *Retriever) KFor(n int) int {
	return r.policy.KFor(n)
}

// Retrieve returns up to k chunks for the query, restricted to codes and
// balanced across them. Embedding or search failures propagate after retry
// exhaustion; there is no degraded mode, partial evidence is worse than an
// error for legal answers.
func (r *Retriever) Retrieve(ctx context.Context, query string, codes []string, k int) ([]model.ScoredChunk, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	embedPolicy := r.retry
	if embedPolicy.OnRetry == nil {
		embedPolicy.OnRetry = resilience.Logged(r.log, "embeddings", "embed_query")
	}
	vector, err := resilience.DoVal(ctx, embedPolicy, func(ctx context.Context) ([]float64, error) {
		return r.embedder.Embed(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	breadth := r.policy.searchBreadth(k, len(codes))
	searchPolicy := r.retry
	if searchPolicy.OnRetry == nil {
		searchPolicy.OnRetry = resilience.Logged(r.log, "index", "vector_search")
	}
	raw, err := resilience.DoVal(ctx, searchPolicy, func(ctx context.Context) ([]model.ScoredChunk, error) {
		return r.store.Search(ctx, vector, breadth, codes)
	})
	if err != nil {
		return nil, err
	}

	if len(codes) == 1 {
		if len(raw) > k {
			raw = raw[:k]
		}
		return raw, nil
	}

	balanced := balance(raw, codes, k)
	r.log.Debug("balanced retrieval",
		zap.Int("raw_hits", len(raw)),
		zap.Int("balanced_hits", len(balanced)),
		zap.Strings("codes", codes),
	)
	return balanced, nil
}

// balance partitions raw hits by jurisdiction and assigns each available
// jurisdiction an equal share of k, spending the remainder on the first
// detected jurisdictions and backfilling from leftovers when a jurisdiction
// cannot fill its share. Jurisdictions with zero raw hits get zero slots.
func balance(raw []model.ScoredChunk, codes []string, k int) []model.ScoredChunk {
	byCode := make(map[string][]model.ScoredChunk, len(codes))
	for _, sc := range raw {
		byCode[sc.ISOCode] = append(byCode[sc.ISOCode], sc)
	}

	var available []string
	for _, c := range codes {
		if len(byCode[c]) > 0 {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return nil
	}

	perCountry := k / len(available)
	if perCountry < 1 {
		perCountry = 1
	}
	remainder := k % len(available)

	taken := make(map[string]int, len(available))
	total := 0
	for i, c := range available {
		quota := perCountry
		if i < remainder {
			quota++
		}
		if quota > len(byCode[c]) {
			quota = len(byCode[c])
		}
		taken[c] = quota
		total += quota
	}

	// Backfill from leftover hits, in detected-jurisdiction order.
	for _, c := range available {
		for total < k && taken[c] < len(byCode[c]) {
			taken[c]++
			total++
		}
		if total >= k {
			break
		}
	}

	out := make([]model.ScoredChunk, 0, total)
	for _, c := range available {
		out = append(out, byCode[c][:taken[c]]...)
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}
