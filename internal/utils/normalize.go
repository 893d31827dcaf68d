package utils

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Fold returns the case-insensitive matching form of s: NFC-normalized and
// lower cased, so composed and decomposed accents compare equal.
func Fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// CharLen counts characters rather than bytes.
func CharLen(s string) int {
	return utf8.RuneCountInString(s)
}

// CreateRankList creates a slice of ranks based on position.
// The rank starts at 1 for the first item and increments for subsequent items.
func CreateRankList(count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := 0; i < count; i++ {
		ranks[i] = uint16(i + 1)
	}
	return ranks
}
