package query

import (
	"fmt"
	"strings"
)

type TokenType int

const (
	TokenWord TokenType = iota
	TokenOperator
	TokenLParen
	TokenRParen
	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenWord:
		return "WORD"
	case TokenOperator:
		return "OPERATOR"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token and the byte offset it started at.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

func (t Token) String() string {
	if t.Value != "" {
		return fmt.Sprintf("%s(%s)", t.Type, t.Value)
	}
	return t.Type.String()
}

// delimiters separate tokens; parentheses are also emitted as tokens.
const delimiters = "\t\n\r ,()"

// Lexer tokenizes a structured query string.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new lexer.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, pos: 0}
}

// Tokenize tokenizes a query string into tokens.
func Tokenize(query string) []Token {
	return NewLexer(query).TokenizeAll()
}

// TokenizeAll returns all tokens from the input, ending with EOF.
func (l *Lexer) TokenizeAll() []Token {
	var tokens []Token
	for {
		token := l.NextToken()
		tokens = append(tokens, token)
		if token.Type == TokenEOF {
			return tokens
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipSeparators()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	start := l.pos
	switch l.input[l.pos] {
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "(", Pos: start}
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")", Pos: start}
	}

	for l.pos < len(l.input) && !strings.ContainsRune(delimiters, rune(l.input[l.pos])) {
		l.pos++
	}
	word := l.input[start:l.pos]
	if strings.HasPrefix(word, "#") {
		return Token{Type: TokenOperator, Value: strings.ToLower(word), Pos: start}
	}
	return Token{Type: TokenWord, Value: word, Pos: start}
}

func (l *Lexer) skipSeparators() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '(' || ch == ')' || !strings.ContainsRune(delimiters, rune(ch)) {
			return
		}
		l.pos++
	}
}
