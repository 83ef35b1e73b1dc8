package query

import (
	"slices"
	"testing"
)

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
	}{
		{"empty", "", []TokenType{TokenEOF}},
		{"single word", "apple", []TokenType{TokenWord, TokenEOF}},
		{"operator", "#AND(a b)", []TokenType{TokenOperator, TokenLParen, TokenWord, TokenWord, TokenRParen, TokenEOF}},
		{"commas separate", "a,b", []TokenType{TokenWord, TokenWord, TokenEOF}},
		{"nested", "#or(#near/2(a b) c)", []TokenType{
			TokenOperator, TokenLParen, TokenOperator, TokenLParen, TokenWord, TokenWord,
			TokenRParen, TokenWord, TokenRParen, TokenEOF,
		}},
		{"tabs and newlines", "\ta\r\nb ", []TokenType{TokenWord, TokenWord, TokenEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenTypes(Tokenize(tt.input))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenize_OperatorLowercased(t *testing.T) {
	tokens := Tokenize("#WINDOW/8( x )")
	if tokens[0].Value != "#window/8" {
		t.Errorf("got %q, want #window/8", tokens[0].Value)
	}
}

func TestTokenize_Positions(t *testing.T) {
	tokens := Tokenize("ab  (cd)")
	wantPos := []int{0, 4, 5, 7, 8}
	for i, tok := range tokens {
		if tok.Pos != wantPos[i] {
			t.Errorf("token %d (%s): pos %d, want %d", i, tok, tok.Pos, wantPos[i])
		}
	}
}

func TestTokenString(t *testing.T) {
	if got := (Token{Type: TokenWord, Value: "x"}).String(); got != "WORD(x)" {
		t.Errorf("got %q", got)
	}
	if got := (Token{Type: TokenEOF}).String(); got != "EOF" {
		t.Errorf("got %q", got)
	}
}
