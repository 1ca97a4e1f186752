package ingestion_engine

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash fingerprints a document's text as lowercase hex SHA-256.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
