package models

import (
	"time"
)

// DocumentChunk is one contiguous slice of a document's text.
type DocumentChunk struct {
	Content    string         `json:"content"`
	ChunkIndex int            `json:"chunk_index"`
	Embedding  []float32      `json:"embedding,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Document is an ingested file. Chunks are kept sorted by ChunkIndex.
type Document struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	FilePath    string          `json:"file_path"`
	ContentHash string          `json:"content_hash"`
	Chunks      []DocumentChunk `json:"chunks"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
}

func (d *Document) ChunkCount() int {
	return len(d.Chunks)
}

// Preview returns the first 100 characters of the first chunk.
func (d *Document) Preview() string {
	if len(d.Chunks) == 0 {
		return ""
	}
	r := []rune(d.Chunks[0].Content)
	if len(r) <= 100 {
		return string(r)
	}
	return string(r[:100]) + "..."
}

// EmbeddingDimension is the vector length of the first embedded chunk, or 0.
func (d *Document) EmbeddingDimension() int {
	for _, c := range d.Chunks {
		if len(c.Embedding) > 0 {
			return len(c.Embedding)
		}
	}
	return 0
}

type Outcome string

const (
	OutcomeStored        Outcome = "stored"
	OutcomeAlreadyExists Outcome = "already_exists"
	OutcomeFailed        Outcome = "failed"
)

// ProcessingResult reports what happened to one file.
type ProcessingResult struct {
	Filename        string  `json:"filename"`
	Outcome         Outcome `json:"outcome"`
	Success         bool    `json:"success"`
	ChunksProcessed int     `json:"chunks_processed"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	ProcessingTime  float64 `json:"processing_time"`
}

func Stored(filename string, chunks int, elapsed time.Duration) ProcessingResult {
	return ProcessingResult{
		Filename:        filename,
		Outcome:         OutcomeStored,
		Success:         true,
		ChunksProcessed: chunks,
		ProcessingTime:  elapsed.Seconds(),
	}
}

func AlreadyExists(filename string, chunks int, elapsed time.Duration) ProcessingResult {
	return ProcessingResult{
		Filename:        filename,
		Outcome:         OutcomeAlreadyExists,
		Success:         true,
		ChunksProcessed: chunks,
		ErrorMessage:    "already exists",
		ProcessingTime:  elapsed.Seconds(),
	}
}

func Failed(filename string, err error, elapsed time.Duration) ProcessingResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ProcessingResult{
		Filename:       filename,
		Outcome:        OutcomeFailed,
		ErrorMessage:   msg,
		ProcessingTime: elapsed.Seconds(),
	}
}

// HealthStatus is the reachability of both backends.
type HealthStatus struct {
	Embedding bool `json:"embedding"`
	Storage   bool `json:"storage"`
	Overall   bool `json:"overall"`
}

// SearchHit is a stored chunk ranked by cosine distance to a query.
type SearchHit struct {
	DocumentID  string         `json:"document_id"`
	Filename    string         `json:"filename"`
	FilePath    string         `json:"file_path"`
	ContentHash string         `json:"content_hash"`
	ChunkIndex  int            `json:"chunk_index"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Distance    float64        `json:"distance"`
}

// DocumentSummary is one row of a document listing.
type DocumentSummary struct {
	ContentHash string     `json:"content_hash"`
	Filename    string     `json:"filename"`
	FilePath    string     `json:"file_path"`
	ChunkCount  int        `json:"chunk_count"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

type Stats struct {
	Documents int   `json:"documents"`
	Chunks    int   `json:"chunks"`
	TableSize int64 `json:"table_size_bytes"`
}
