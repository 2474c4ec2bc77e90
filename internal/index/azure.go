package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/stardustx8/legalchat/internal/model"
	"github.com/stardustx8/legalchat/internal/resilience"
)

const azureAPIVersion = "2023-11-01"

// deletePageSize bounds how many document keys one cleanup round fetches and
// deletes. Rounds repeat until the index reports no more matches.
const deletePageSize = 1000

// AzureStore implements Store against the Azure AI Search REST API.
type AzureStore struct {
	endpoint   string
	apiKey     string
	index      string
	apiVersion string
	client     *http.Client
}

// AzureOption configures an AzureStore.
type AzureOption func(*AzureStore)

// WithAzureHTTPClient overrides the HTTP client, mainly for tests.
func WithAzureHTTPClient(c *http.Client) AzureOption {
	return func(s *AzureStore) { s.client = c }
}

// WithAzureAPIVersion overrides the REST API version.
func WithAzureAPIVersion(v string) AzureOption {
	return func(s *AzureStore) { s.apiVersion = v }
}

// NewAzure creates a Store backed by an Azure AI Search index.
func NewAzure(endpoint, apiKey, index string, opts ...AzureOption) *AzureStore {
	s := &AzureStore{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		index:      index,
		apiVersion: azureAPIVersion,
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type azureVectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float64 `json:"vector"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
}

type azureSearchRequest struct {
	VectorQueries []azureVectorQuery `json:"vectorQueries,omitempty"`
	Search        string             `json:"search,omitempty"`
	Filter        string             `json:"filter,omitempty"`
	Select        string             `json:"select,omitempty"`
	Top           int                `json:"top,omitempty"`
}

type azureSearchDoc struct {
	Score   float64 `json:"@search.score"`
	ID      string  `json:"id"`
	ISOCode string  `json:"iso_code"`
	Chunk   string  `json:"chunk"`
}

type azureSearchResponse struct {
	Value []azureSearchDoc `json:"value"`
}

type azureIndexAction struct {
	Action    string    `json:"@search.action"`
	ID        string    `json:"id"`
	ISOCode   string    `json:"iso_code,omitempty"`
	Chunk     string    `json:"chunk,omitempty"`
	Embedding []float64 `json:"embedding,omitempty"`
}

type azureIndexResult struct {
	Key        string `json:"key"`
	Status     bool   `json:"status"`
	StatusCode int    `json:"statusCode"`
}

type azureIndexResponse struct {
	Value []azureIndexResult `json:"value"`
}

func (s *AzureStore) Search(ctx context.Context, vector []float64, k int, codes []string) ([]model.ScoredChunk, error) {
	req := azureSearchRequest{
		VectorQueries: []azureVectorQuery{{
			Kind:   "vector",
			Vector: vector,
			Fields: "embedding",
			K:      k,
		}},
		Select: "chunk,iso_code,id",
	}
	if len(codes) > 0 {
		req.Filter = fmt.Sprintf("search.in(iso_code, '%s', ',')", strings.Join(codes, ","))
	}

	var resp azureSearchResponse
	if err := s.post(ctx, "/docs/search", req, &resp); err != nil {
		return nil, err
	}

	out := make([]model.ScoredChunk, 0, len(resp.Value))
	for _, doc := range resp.Value {
		out = append(out, model.ScoredChunk{
			Chunk: model.Chunk{ID: doc.ID, ISOCode: doc.ISOCode, Content: doc.Chunk},
			Score: doc.Score,
		})
	}
	return out, nil
}

func (s *AzureStore) Upload(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	actions := make([]azureIndexAction, len(chunks))
	for i, c := range chunks {
		actions[i] = azureIndexAction{
			Action:    "mergeOrUpload",
			ID:        c.ID,
			ISOCode:   c.ISOCode,
			Chunk:     c.Content,
			Embedding: c.Embedding,
		}
	}

	var resp azureIndexResponse
	if err := s.post(ctx, "/docs/index", map[string]any{"value": actions}, &resp); err != nil {
		return err
	}
	for _, r := range resp.Value {
		if !r.Status {
			return eris.Errorf("azure: upload failed for document %s (status %d)", r.Key, r.StatusCode)
		}
	}
	return nil
}

func (s *AzureStore) DeleteJurisdiction(ctx context.Context, code string) (int, error) {
	return s.deleteMatching(ctx, fmt.Sprintf("iso_code eq '%s'", code))
}

func (s *AzureStore) Purge(ctx context.Context) (int, error) {
	return s.deleteMatching(ctx, "")
}

// deleteMatching repeatedly fetches matching document keys and deletes them in
// batches until the index reports no more matches.
func (s *AzureStore) deleteMatching(ctx context.Context, filter string) (int, error) {
	deleted := 0
	for {
		req := azureSearchRequest{
			Search: "*",
			Filter: filter,
			Select: "id",
			Top:    deletePageSize,
		}
		var found azureSearchResponse
		if err := s.post(ctx, "/docs/search", req, &found); err != nil {
			return deleted, err
		}
		if len(found.Value) == 0 {
			return deleted, nil
		}

		actions := make([]azureIndexAction, len(found.Value))
		for i, doc := range found.Value {
			actions[i] = azureIndexAction{Action: "delete", ID: doc.ID}
		}
		var resp azureIndexResponse
		if err := s.post(ctx, "/docs/index", map[string]any{"value": actions}, &resp); err != nil {
			return deleted, err
		}
		deleted += len(actions)

		if len(found.Value) < deletePageSize {
			return deleted, nil
		}
	}
}

func (s *AzureStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *AzureStore) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "azure: marshal request")
	}

	url := fmt.Sprintf("%s/indexes/%s%s?api-version=%s", s.endpoint, s.index, path, s.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "azure: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "azure: request failed"), 0)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "azure: read response"), resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := eris.Errorf("azure: %s returned %d: %s", path, resp.StatusCode, truncate(string(respBody), 256))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, "azure: decode response")
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
