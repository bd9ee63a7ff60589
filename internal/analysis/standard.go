package analysis

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// StandardAnalyzer tokenizes on Unicode (UAX #29) word boundaries and lowercases tokens.
type StandardAnalyzer struct{}

// NewStandardAnalyzer creates a new StandardAnalyzer.
func NewStandardAnalyzer() *StandardAnalyzer {
	return &StandardAnalyzer{}
}

// Analyze splits the input into words, dropping segments without letters or digits.
func (a *StandardAnalyzer) Analyze(_ string, text string) []Token {
	var tokens []Token
	pos := 0
	offset := 0
	state := -1
	rest := text

	for len(rest) > 0 {
		var word string
		word, rest, state = uniseg.FirstWordInString(rest, state)
		start := offset
		offset += len(word)

		if !hasWordRune(word) {
			continue
		}
		tokens = append(tokens, Token{
			Term:      strings.ToLower(word),
			Position:  pos,
			StartByte: start,
			EndByte:   offset,
		})
		pos++
	}

	return tokens
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
