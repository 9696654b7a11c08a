package coupons

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"SAVE10":        "save10",
		"  Save10  ":    "save10",
		"SA VE 10":      "save10",
		"\tSaVe\n10 ":   "save10",
		"":              "",
		"   ":           "",
	}
	for in, want := range cases {
		require.Equal(t, want, Normalize(in), "input %q", in)
	}
}
