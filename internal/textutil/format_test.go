package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixUTF8_KeepsValidText(t *testing.T) {
	s := "plain text with unicode: äöü 中文"
	require.Equal(t, s, FixUTF8(s))
}

func TestFixUTF8_DropsNulAndInvalid(t *testing.T) {
	s := "a\x00b" + string([]byte{0xff, 0xfe}) + "c"
	require.Equal(t, "abc", FixUTF8(s))
}

func TestTrimUnicodeSurrogates(t *testing.T) {
	// WTF-8 encodings of U+D800 and U+DFFF.
	s := "ok" + string([]byte{0xED, 0xA0, 0x80}) + "still" + string([]byte{0xED, 0xBF, 0xBF})
	require.Equal(t, "okstill", TrimUnicodeSurrogates(s))
}

func TestTrimUnicodeSurrogates_KeepsValidEDPrefixedRunes(t *testing.T) {
	// U+D7FF encodes as ED 9F BF and must survive.
	s := "a퟿b"
	require.Equal(t, s, TrimUnicodeSurrogates(s))
}

func TestClean(t *testing.T) {
	s := "x\x00y" + string([]byte{0xED, 0xB0, 0x80}) + "z"
	require.Equal(t, "xyz", Clean(s))
}
