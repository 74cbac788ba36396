// Package contenthash computes the two content hashes the design calls
// for: a fast file-level hash for change detection, and a normalized
// symbol-level hash for duplicate detection.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// File computes a fast, non-cryptographic hash of a file's raw bytes,
// used for the File record's content_hash (spec §3) to detect whether a
// file changed between indexing passes. xxhash is used here rather than
// a cryptographic hash because this hash is compared on every file touch
// during a full index walk and is never used for duplicate detection.
func File(contents []byte) string {
	return hex.EncodeToString(uint64ToBytes(xxhash.Sum64(contents)))
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// Symbol computes the cryptographic content_hash for a symbol's byte
// range, used for duplicate detection (spec §3, §4.4). It is computed
// over a normalized form that collapses runs of whitespace outside
// string literals, so two semantically identical symbols separated only
// by formatting hash equal. Per spec §9, normalization is walker-owned
// and not attempted across languages.
func Symbol(source []byte, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(source) {
		end = len(source)
	}
	if start >= end {
		return ""
	}
	normalized := normalizeWhitespaceOutsideStrings(string(source[start:end]))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// normalizeWhitespaceOutsideStrings collapses runs of whitespace to a
// single space, except inside '...' or "..." string literals, where
// content is preserved verbatim.
func normalizeWhitespaceOutsideStrings(s string) string {
	var b strings.Builder
	inString := false
	var quote rune
	lastWasSpace := false

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inString {
			b.WriteRune(r)
			if r == '\\' && i+1 < len(runes) {
				i++
				b.WriteRune(runes[i])
				continue
			}
			if r == quote {
				inString = false
			}
			continue
		}
		if r == '"' || r == '\'' {
			inString = true
			quote = r
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteRune(' ')
			}
			lastWasSpace = true
			continue
		}
		lastWasSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
