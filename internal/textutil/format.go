// Package textutil cleans extracted document text before persistence.
// Backends reject NUL bytes (PostgreSQL) and lone surrogate code points
// (MySQL utf8), so both are stripped.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// FixUTF8 drops invalid UTF-8 sequences and NUL characters from s.
func FixUTF8(s string) string {
	if utf8.ValidString(s) && !strings.ContainsRune(s, 0x00) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if r == utf8.RuneError || r == 0x00 {
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// TrimUnicodeSurrogates removes WTF-8 encoded surrogate code points
// (U+D800..U+DFFF, byte pattern ED A0..BF 80..BF). Surrogates are not valid
// UTF-8, so they only ever appear as such raw byte sequences.
func TrimUnicodeSurrogates(s string) string {
	if !strings.Contains(s, "\xed") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if i+2 < len(s) && s[i] == 0xED && s[i+1] >= 0xA0 && s[i+1] <= 0xBF && s[i+2] >= 0x80 && s[i+2] <= 0xBF {
			i += 3
			continue
		}
		b.WriteByte(s[i])
		i++
	}

	return b.String()
}

// Clean applies both fixes in the order the store requires: surrogates are
// dropped as whole sequences first, then any remaining invalid bytes.
func Clean(s string) string {
	return FixUTF8(TrimUnicodeSurrogates(s))
}
