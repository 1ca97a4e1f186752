package core

import "context"

// DocumentExtractor reads the text of a file from disk after checking that
// it is something the pipeline accepts.
type DocumentExtractor interface {
	// Supports reports whether a file name is eligible, judged by name only.
	Supports(name string) bool
	ExtractText(ctx context.Context, path string) (text string, size int64, err error)
}
