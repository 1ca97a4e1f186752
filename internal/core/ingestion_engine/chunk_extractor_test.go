package ingestion_engine

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunker_Validation(t *testing.T) {
	_, err := NewChunker(0, 0)
	assert.Error(t, err)
	_, err = NewChunker(100, 100)
	assert.Error(t, err)
	_, err = NewChunker(100, -1)
	assert.Error(t, err)
	c, err := NewChunker(100, 99)
	require.NoError(t, err)
	assert.Equal(t, 100, c.Size)
}

func TestSplit_ShortText(t *testing.T) {
	c, _ := NewChunker(1000, 200)
	assert.Equal(t, []string{"hello"}, c.Split("hello"))

	exact := strings.Repeat("a", 1000)
	assert.Equal(t, []string{exact}, c.Split(exact))

	assert.Empty(t, c.Split(""))
}

func TestSplit_Example(t *testing.T) {
	c, _ := NewChunker(1000, 200)
	text := make([]byte, 2500)
	for i := range text {
		text[i] = byte('a' + i%26)
	}

	chunks := c.Split(string(text))
	require.Len(t, chunks, 3)
	assert.Equal(t, string(text[0:1000]), chunks[0])
	assert.Equal(t, string(text[800:1800]), chunks[1])
	assert.Equal(t, string(text[1600:2500]), chunks[2])
	assert.Len(t, chunks[2], 900)
}

func TestSplit_Properties(t *testing.T) {
	cases := []struct{ size, overlap, length int }{
		{10, 0, 95},
		{10, 3, 100},
		{7, 6, 50},
		{1000, 200, 1001},
		{5, 2, 5},
		{5, 2, 6},
	}
	for _, tc := range cases {
		c, err := NewChunker(tc.size, tc.overlap)
		require.NoError(t, err)
		text := strings.Repeat("0123456789", tc.length/10+1)[:tc.length]

		chunks := c.Split(text)
		require.NotEmpty(t, chunks)

		for i, ch := range chunks {
			if i < len(chunks)-1 {
				assert.Len(t, ch, tc.size, "every chunk but the last is full")
				next := chunks[i+1]
				assert.Equal(t, ch[len(ch)-tc.overlap:], next[:tc.overlap], "overlap between %d and %d", i, i+1)
			}
		}

		// Rebuild the text by dropping each chunk's overlap prefix.
		var rebuilt strings.Builder
		rebuilt.WriteString(chunks[0])
		for _, ch := range chunks[1:] {
			rebuilt.WriteString(ch[tc.overlap:])
		}
		assert.Equal(t, text, rebuilt.String(), "size=%d overlap=%d len=%d", tc.size, tc.overlap, tc.length)
	}
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	c, _ := NewChunker(4, 1)
	chunks := c.Split("héllo wörld")

	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch))
		assert.LessOrEqual(t, utf8.RuneCountInString(ch), 4)
	}
	assert.Equal(t, "héll", chunks[0])
	assert.Equal(t, "lo w", chunks[1])
}

func TestChunk_IndicesAndMetadata(t *testing.T) {
	c, _ := NewChunker(10, 2)
	chunks := c.Chunk(strings.Repeat("x", 25))

	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Nil(t, ch.Embedding)
		assert.Equal(t, i*8, ch.Metadata["start_offset"])
	}
	assert.Equal(t, 9, chunks[2].Metadata["chunk_length"])
	assert.NotContains(t, chunks[2].Metadata, "chunk_size", "chunk_size is the configured window, kept at document level")
}
