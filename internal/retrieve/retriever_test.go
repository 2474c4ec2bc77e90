package retrieve

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stardustx8/legalchat/internal/model"
	"github.com/stardustx8/legalchat/internal/resilience"
)

type fakeEmbedder struct {
	vector []float64
	errs   []error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

type fakeStore struct {
	hits      []model.ScoredChunk
	err       error
	lastK     int
	lastCodes []string
}

func (f *fakeStore) Search(_ context.Context, _ []float64, k int, codes []string) ([]model.ScoredChunk, error) {
	f.lastK = k
	f.lastCodes = codes
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func (f *fakeStore) Upload(context.Context, []model.Chunk) error { return nil }

func (f *fakeStore) DeleteJurisdiction(context.Context, string) (int, error) { return 0, nil }

func (f *fakeStore) Purge(context.Context) (int, error) { return 0, nil }

func (f *fakeStore) Close() error { return nil }

func hitsFor(code string, n int) []model.ScoredChunk {
	out := make([]model.ScoredChunk, n)
	for i := range out {
		out[i] = model.ScoredChunk{
			Chunk: model.Chunk{ID: fmt.Sprintf("%s-%04d", code, i), ISOCode: code},
			Score: 1 - float64(i)/100,
		}
	}
	return out
}

func countByCode(chunks []model.ScoredChunk) map[string]int {
	out := map[string]int{}
	for _, c := range chunks {
		out[c.ISOCode]++
	}
	return out
}

func noRetry() resilience.Policy {
	p := resilience.DefaultPolicy()
	p.Retries = 0
	p.BaseDelay = 0
	return p
}

func newTestRetriever(e *fakeEmbedder, s *fakeStore) *Retriever {
	return NewRetriever(e, s, DefaultKPolicy(), noRetry(), zap.NewNop())
}

func TestKFor(t *testing.T) {
	p := DefaultKPolicy()
	assert.Equal(t, 15, p.KFor(1))
	assert.Equal(t, 20, p.KFor(2))
	assert.Equal(t, 40, p.KFor(4))
	assert.Equal(t, 50, p.KFor(5))
	assert.Equal(t, 50, p.KFor(9))
}

func TestRetrieve_SingleJurisdictionSkipsBalancing(t *testing.T) {
	s := &fakeStore{hits: hitsFor("CH", 30)}
	r := newTestRetriever(&fakeEmbedder{vector: []float64{0.1}}, s)

	got, err := r.Retrieve(context.Background(), "knife in CH", []string{"CH"}, 15)
	require.NoError(t, err)
	require.Len(t, got, 15)
	// Raw similarity order is preserved.
	assert.Equal(t, "CH-0000", got[0].ID)
	assert.Equal(t, "CH-0014", got[14].ID)
	assert.Equal(t, 15, s.lastK)
}

func TestRetrieve_MultiJurisdictionOverFetches(t *testing.T) {
	s := &fakeStore{hits: append(hitsFor("CH", 20), hitsFor("FR", 20)...)}
	r := newTestRetriever(&fakeEmbedder{vector: []float64{0.1}}, s)

	_, err := r.Retrieve(context.Background(), "CH vs FR", []string{"CH", "FR"}, 20)
	require.NoError(t, err)
	assert.Equal(t, 40, s.lastK)
	assert.Equal(t, []string{"CH", "FR"}, s.lastCodes)
}

func TestBalance_EvenSplit(t *testing.T) {
	raw := append(append(hitsFor("AT", 5), hitsFor("BE", 5)...), hitsFor("CH", 5)...)
	got := balance(raw, []string{"AT", "BE", "CH"}, 9)
	require.Len(t, got, 9)
	assert.Equal(t, map[string]int{"AT": 3, "BE": 3, "CH": 3}, countByCode(got))
}

func TestBalance_RemainderGoesToFirstDetected(t *testing.T) {
	raw := append(append(hitsFor("CH", 10), hitsFor("FR", 10)...), hitsFor("DE", 10)...)
	// Detected order differs from alphabetical; FR was detected first.
	got := balance(raw, []string{"FR", "DE", "CH"}, 10)
	require.Len(t, got, 10)
	assert.Equal(t, map[string]int{"FR": 4, "DE": 3, "CH": 3}, countByCode(got))
}

func TestBalance_ScarcityBackfills(t *testing.T) {
	raw := append(append(hitsFor("AT", 10), hitsFor("BE", 1)...), hitsFor("CH", 10)...)
	got := balance(raw, []string{"AT", "BE", "CH"}, 9)
	require.Len(t, got, 9)
	counts := countByCode(got)
	assert.Equal(t, 1, counts["BE"], "scarce jurisdiction keeps its single hit")
	assert.Equal(t, 9, counts["AT"]+counts["BE"]+counts["CH"])
}

func TestBalance_ZeroHitJurisdictionGetsNoSlots(t *testing.T) {
	raw := append(hitsFor("CH", 10), hitsFor("FR", 10)...)
	got := balance(raw, []string{"CH", "XX", "FR"}, 10)
	require.Len(t, got, 10)
	counts := countByCode(got)
	assert.Zero(t, counts["XX"])
	assert.Equal(t, 5, counts["CH"])
	assert.Equal(t, 5, counts["FR"])
}

func TestBalance_FewerHitsThanK(t *testing.T) {
	raw := append(hitsFor("CH", 2), hitsFor("FR", 3)...)
	got := balance(raw, []string{"CH", "FR"}, 20)
	assert.Len(t, got, 5)
}

func TestBalance_NoHits(t *testing.T) {
	assert.Nil(t, balance(nil, []string{"CH", "FR"}, 10))
}

func TestBalance_KSmallerThanJurisdictions(t *testing.T) {
	raw := append(append(hitsFor("AT", 5), hitsFor("BE", 5)...), hitsFor("CH", 5)...)
	got := balance(raw, []string{"AT", "BE", "CH"}, 2)
	assert.Len(t, got, 2)
}

func TestRetrieve_EmptyCodes(t *testing.T) {
	r := newTestRetriever(&fakeEmbedder{vector: []float64{0.1}}, &fakeStore{})
	got, err := r.Retrieve(context.Background(), "question", nil, 15)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRetrieve_EmbedFailurePropagates(t *testing.T) {
	e := &fakeEmbedder{errs: []error{eris.New("embedding service down")}}
	r := newTestRetriever(e, &fakeStore{})

	_, err := r.Retrieve(context.Background(), "question", []string{"CH"}, 15)
	require.Error(t, err)
}

func TestRetrieve_TransientEmbedFailureRetries(t *testing.T) {
	e := &fakeEmbedder{
		vector: []float64{0.1},
		errs:   []error{resilience.NewTransientError(eris.New("503"), 503)},
	}
	s := &fakeStore{hits: hitsFor("CH", 5)}
	p := noRetry()
	p.Retries = 1
	r := NewRetriever(e, s, DefaultKPolicy(), p, zap.NewNop())

	got, err := r.Retrieve(context.Background(), "question", []string{"CH"}, 15)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 2, e.calls)
}

func TestRetrieve_SearchFailurePropagates(t *testing.T) {
	s := &fakeStore{err: eris.New("index unreachable")}
	r := newTestRetriever(&fakeEmbedder{vector: []float64{0.1}}, s)

	_, err := r.Retrieve(context.Background(), "question", []string{"CH"}, 15)
	require.Error(t, err)
}
