package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate marks a write rejected by the unique (content_hash, chunk_index) constraint.
	ErrDuplicate = errors.New("duplicate document")

	ErrFileTooLarge         = errors.New("file too large")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrEmptyFile            = errors.New("file has no text content")
	ErrNotRegularFile       = errors.New("not a regular file")
	ErrInvalidEncoding      = errors.New("file is not valid UTF-8")
)

// FileError is a failure to read or accept a source file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// EmbeddingError is a failure talking to the embedding backend.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// StorageError is a failure talking to the vector store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
