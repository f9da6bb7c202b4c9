// Package hash computes stable content digests for chunk change detection.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize applies the normalization rules content must satisfy before
// hashing: CRLF/CR are converted to LF, and trailing whitespace is
// stripped from every line. Internal whitespace is left untouched so
// semantically distinct indentation still produces distinct hashes.
func Normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// Hash returns the hex-encoded SHA-256 digest of the normalized content.
// It is pure and stable across processes and platforms; empty input
// yields the well-known SHA-256 digest of the empty string.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(Normalize(content)))
	return hex.EncodeToString(sum[:])
}
