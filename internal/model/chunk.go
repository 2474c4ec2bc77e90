package model

// Chunk is one stored unit of legal source text, tagged with the single
// jurisdiction it belongs to. Chunks are immutable once written; re-ingesting
// a jurisdiction replaces its chunks wholesale.
type Chunk struct {
	ID        string    `json:"id"`
	ISOCode   string    `json:"iso_code"`
	Content   string    `json:"content"`
	Embedding []float64 `json:"embedding,omitempty"`
}

// ScoredChunk is a chunk annotated with its similarity score for one query.
// Never persisted.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}
