package ingestion_engine

import (
	"fmt"

	"github.com/markdave123-py/vectordb/internal/models"
)

// Chunker splits text into fixed-size windows of Size characters where
// consecutive windows share Overlap characters. Characters are runes.
type Chunker struct {
	Size    int
	Overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{Size: size, Overlap: overlap}, nil
}

// span is a half-open rune range [start, end).
type span struct {
	start, end int
}

func (c *Chunker) spans(n int) []span {
	if n == 0 {
		return nil
	}
	if n <= c.Size {
		return []span{{0, n}}
	}

	step := c.Size - c.Overlap
	out := make([]span, 0, (n-c.Overlap+step-1)/step)
	for start := 0; ; start += step {
		end := start + c.Size
		if end >= n {
			out = append(out, span{start, n})
			return out
		}
		out = append(out, span{start, end})
	}
}

// Split returns the chunk texts in order. Empty input yields no chunks.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	spans := c.spans(len(runes))
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = string(runes[s.start:s.end])
	}
	return out
}

// Chunk is Split with indices and per-chunk metadata attached.
func (c *Chunker) Chunk(text string) []models.DocumentChunk {
	runes := []rune(text)
	spans := c.spans(len(runes))
	out := make([]models.DocumentChunk, len(spans))
	for i, s := range spans {
		out[i] = models.DocumentChunk{
			Content:    string(runes[s.start:s.end]),
			ChunkIndex: i,
			Metadata: map[string]any{
				"chunk_length": s.end - s.start,
				"start_offset": s.start,
			},
		}
	}
	return out
}
