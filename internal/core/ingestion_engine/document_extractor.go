package ingestion_engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/vectordb/internal/core"
)

var _ core.DocumentExtractor = (*TextExtractor)(nil)

// TextExtractor reads plain-text files. Files are rejected before they are
// read when the extension or size is wrong.
type TextExtractor struct {
	extensions []string
	maxBytes   int64
}

func NewTextExtractor(extensions []string, maxBytes int64) *TextExtractor {
	return &TextExtractor{extensions: extensions, maxBytes: maxBytes}
}

// Supports reports whether the file name carries an accepted extension.
func (e *TextExtractor) Supports(name string) bool {
	return slices.Contains(e.extensions, strings.ToLower(filepath.Ext(name)))
}

func (e *TextExtractor) ExtractText(ctx context.Context, path string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, &core.FileError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", 0, &core.FileError{Path: path, Err: core.ErrNotRegularFile}
	}
	if !e.Supports(path) {
		return "", 0, &core.FileError{Path: path, Err: fmt.Errorf("%w %q", core.ErrUnsupportedExtension, filepath.Ext(path))}
	}
	if e.maxBytes > 0 && info.Size() > e.maxBytes {
		return "", 0, &core.FileError{Path: path, Err: fmt.Errorf("%w: %d bytes exceeds limit of %d", core.ErrFileTooLarge, info.Size(), e.maxBytes)}
	}

	data, err := e.read(path)
	if err != nil {
		return "", 0, &core.FileError{Path: path, Err: err}
	}
	if !utf8.Valid(data) {
		return "", 0, &core.FileError{Path: path, Err: core.ErrInvalidEncoding}
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", 0, &core.FileError{Path: path, Err: core.ErrEmptyFile}
	}
	return text, int64(len(data)), nil
}

// read loads the file, reading at most maxBytes+1 so a file that grew after
// the size check is still rejected.
func (e *TextExtractor) read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if e.maxBytes <= 0 {
		return io.ReadAll(f)
	}
	data, err := io.ReadAll(io.LimitReader(f, e.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes read", core.ErrFileTooLarge, e.maxBytes)
	}
	return data, nil
}
