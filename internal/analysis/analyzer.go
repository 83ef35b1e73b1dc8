package analysis

import (
	"strings"
	"unicode"

	"harshagw/qryeval/internal/errs"
)

// Analyzer names accepted by ByName.
const (
	NameSimple  = "simple"
	NameEnglish = "english"
)

type TokenPosition struct {
	Token    string
	Position uint64
}

// Analyzer defines the interface for text analysis.
type Analyzer interface {
	Analyze(text string) []TokenPosition
}

// ByName returns the analyzer registered under name.
func ByName(name string) (Analyzer, error) {
	switch strings.ToLower(name) {
	case NameSimple:
		return NewSimple(), nil
	case NameEnglish:
		return NewEnglish(), nil
	}
	return nil, errs.Configf("unknown analyzer %q", name)
}

// Terms returns the analyzed tokens of text without positions.
func Terms(a Analyzer, text string) []string {
	tokens := a.Analyze(text)
	terms := make([]string, len(tokens))
	for i, tp := range tokens {
		terms[i] = tp.Token
	}
	return terms
}

// Simple performs basic tokenization: lowercasing and splitting on non-alphanumeric.
type Simple struct{}

func NewSimple() *Simple {
	return &Simple{}
}

// Analyze tokenizes text into tokens with positions.
func (a *Simple) Analyze(text string) []TokenPosition {
	var tokens []TokenPosition
	var position uint64
	for _, word := range splitWords(strings.ToLower(text)) {
		tokens = append(tokens, TokenPosition{Token: word, Position: position})
		position++
	}
	return tokens
}

// splitWords splits on every rune that is neither a letter nor a number.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
