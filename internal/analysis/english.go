package analysis

import (
	"strings"

	"github.com/reiver/go-porterstemmer"
	"golang.org/x/text/unicode/norm"
)

// stopWords is a small English stop list. Removed words still consume a position.
var stopWords = map[string]bool{
	"a": true, "about": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "had": true, "has": true,
	"have": true, "he": true, "her": true, "his": true, "i": true, "if": true, "in": true,
	"into": true, "is": true, "it": true, "its": true, "no": true, "not": true, "of": true,
	"on": true, "or": true, "she": true, "so": true, "such": true, "that": true, "the": true,
	"their": true, "then": true, "there": true, "these": true, "they": true, "this": true,
	"to": true, "was": true, "were": true, "which": true, "will": true, "with": true,
}

// English normalizes to NFC, lowercases, splits compounds on punctuation,
// drops stop words and applies the Porter stemmer.
type English struct {
	stopWords map[string]bool
}

func NewEnglish() *English {
	return &English{stopWords: stopWords}
}

// IsStopWord reports whether the lowercased word is dropped by the analyzer.
func (a *English) IsStopWord(word string) bool {
	return a.stopWords[strings.ToLower(word)]
}

func (a *English) Analyze(text string) []TokenPosition {
	text = norm.NFC.String(strings.ToLower(text))

	var tokens []TokenPosition
	for i, word := range splitWords(text) {
		if a.stopWords[word] {
			continue
		}
		tokens = append(tokens, TokenPosition{
			Token:    porterstemmer.StemString(word),
			Position: uint64(i),
		})
	}
	return tokens
}
