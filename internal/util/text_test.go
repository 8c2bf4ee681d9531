package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  Mooring Rope 24mm ":    "MOORING ROPE 24MM",
		"Shackle “D” type":        "SHACKLE D TYPE",
		"Bolt M12×40":             "BOLT M12X40",
		"Rope, nylon*3 strand":    "ROPE NYLONX3 STRAND",
		"防锈漆 Anti-Rust Paint 5L": "ANTI-RUST PAINT 5L",
	}
	for input, want := range cases {
		require.Equal(t, want, NormalizeName(input), "input=%q", input)
	}
}

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "IMPA-330101", NormalizeCode(" impa-330101 "))
	require.Equal(t, "AB/12.3", NormalizeCode("ab / 12 . 3"))
	require.Equal(t, "", NormalizeCode("  ±§ "))
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	tokens := Tokenize("a Mooring Rope 24mm x")
	require.Equal(t, []string{"MOORING", "ROPE", "24MM"}, tokens)
}

func TestTokenOverlap(t *testing.T) {
	query := Tokenize("mooring rope 24mm")
	require.Equal(t, 1.0, TokenOverlap(query, Tokenize("24mm mooring rope nylon")))
	require.InDelta(t, 2.0/3.0, TokenOverlap(query, Tokenize("mooring rope 32mm")), 1e-9)
	require.Equal(t, 0.0, TokenOverlap(query, Tokenize("paint")))
	require.Equal(t, 0.0, TokenOverlap(nil, Tokenize("paint")))
}

func TestLooksLikeCode(t *testing.T) {
	require.True(t, LooksLikeCode("IMPA330101"))
	require.True(t, LooksLikeCode("ab-12"))
	require.False(t, LooksLikeCode("ROPE"))
	require.False(t, LooksLikeCode("12"))
}
