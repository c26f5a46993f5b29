package store

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// SourceHash computes a stable hash of a world source. Line endings are
// normalized so the same text saved on different platforms hashes the same.
func SourceHash(source string) string {
	h := sha256.New()
	fmt.Fprint(h, strings.ReplaceAll(source, "\r\n", "\n"))
	return fmt.Sprintf("%x", h.Sum(nil))
}
