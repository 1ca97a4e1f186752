package objectclient

import (
	"fmt"
	"path"
	"strings"
)

// ArchiveKey lays out raw documents as <prefix>/<content hash>/<filename>.
// Spaces in the file name become underscores.
func ArchiveKey(prefix, contentHash, filename string) string {
	filename = strings.TrimSpace(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join(strings.Trim(prefix, "/"), contentHash, filename)
}

// ObjectURL is the virtual-hosted-style URL of an object.
func ObjectURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}
