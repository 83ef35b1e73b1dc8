package query

import (
	"slices"
	"strconv"
	"strings"

	"harshagw/qryeval/internal/analysis"
	"harshagw/qryeval/internal/errs"
)

// DefaultField is the field a term searches when it names none.
const DefaultField = "body"

// Fields lists the field names a term may name after its '.'.
var Fields = []string{"url", "keywords", "title", "body", "inlink"}

// frame is an operator under construction and the weight waiting for its next argument.
type frame struct {
	node      *Node
	pos       int
	weight    float64
	hasWeight bool
}

// Parser turns structured query text into an operator tree.
type Parser struct {
	analyzer analysis.Analyzer
	tokens   []Token
	pos      int
	stack    []*frame
}

// NewParser creates a parser that normalizes terms with analyzer.
func NewParser(analyzer analysis.Analyzer) *Parser {
	return &Parser{analyzer: analyzer}
}

// Parse parses text wrapped in defaultOp.
func Parse(text string, defaultOp Kind, analyzer analysis.Analyzer) (*Node, error) {
	return NewParser(analyzer).Parse(text, defaultOp)
}

// Parse parses text as the arguments of a defaultOp root.
func (p *Parser) Parse(text string, defaultOp Kind) (*Node, error) {
	if defaultOp.Family() != FamilyScore || defaultOp == KindScore {
		return nil, errs.Configf("default operator %s is not a scoring operator", defaultOp)
	}

	p.tokens = Tokenize(text)
	p.pos = 0
	root := NewOp(defaultOp)
	p.stack = []*frame{{node: root}}

	for {
		tok := p.advance()
		top := p.top()

		switch tok.Type {
		case TokenEOF:
			if len(p.stack) > 1 {
				return nil, errs.Syntaxf("unbalanced parentheses: %s at position %d is never closed",
					top.node.Kind, top.pos)
			}
			if top.hasWeight {
				return nil, errs.Syntaxf("weight %g has no argument", top.weight)
			}
			return root, nil

		case TokenLParen:
			return nil, errs.Syntaxf("unexpected ( at position %d: %s", tok.Pos, p.fragment(tok))

		case TokenRParen:
			if top.hasWeight {
				return nil, errs.Syntaxf("weight %g has no argument in %s", top.weight, top.node.Kind)
			}
			if len(p.stack) == 1 {
				if p.current().Type == TokenEOF {
					return nil, errs.Syntaxf("unbalanced parentheses: unexpected ) at position %d", tok.Pos)
				}
				return nil, errs.Syntaxf("unexpected tokens after end of query: %s", p.fragment(p.current()))
			}
			p.stack = p.stack[:len(p.stack)-1]
			parent := p.top()
			if err := p.attach(parent, top.node); err != nil {
				return nil, err
			}
			parent.hasWeight = false

		case TokenOperator:
			node, err := p.operator(tok)
			if err != nil {
				return nil, err
			}
			if top.node.Kind.Weighted() && !top.hasWeight {
				return nil, errs.Syntaxf("missing weight before %s in %s", tok.Value, top.node.Kind)
			}
			if p.current().Type != TokenLParen {
				return nil, errs.Syntaxf("expected ( after %s at position %d", tok.Value, tok.Pos)
			}
			p.advance()
			p.stack = append(p.stack, &frame{node: node, pos: tok.Pos})

		case TokenWord:
			if top.node.Kind.Weighted() && !top.hasWeight {
				w, err := strconv.ParseFloat(tok.Value, 64)
				if err != nil {
					return nil, errs.Syntaxf("missing weight before %q in %s", tok.Value, top.node.Kind)
				}
				if w < 0 {
					return nil, errs.Syntaxf("negative weight %s in %s", tok.Value, top.node.Kind)
				}
				top.weight, top.hasWeight = w, true
				continue
			}
			terms, err := p.terms(tok)
			if err != nil {
				return nil, err
			}
			for _, term := range terms {
				if err := p.attach(top, term); err != nil {
					return nil, err
				}
			}
			top.hasWeight = false
		}
	}
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	token := p.current()
	p.pos++
	return token
}

func (p *Parser) top() *frame {
	return p.stack[len(p.stack)-1]
}

// fragment returns the remaining query text starting at tok, shortened for messages.
func (p *Parser) fragment(tok Token) string {
	var parts []string
	for _, t := range p.tokens {
		if t.Pos >= tok.Pos && t.Type != TokenEOF {
			parts = append(parts, t.Value)
		}
		if len(parts) == 6 {
			parts = append(parts, "...")
			break
		}
	}
	return strings.Join(parts, " ")
}

// attach adds arg to f, adapting inverted lists under scoring operators with SCORE.
func (p *Parser) attach(f *frame, arg *Node) error {
	parent := f.node
	if parent.Kind.Family() == FamilyInvList && arg.Kind.Family() == FamilyScore {
		return errs.Constructionf("%s cannot take scoring argument %s", parent.Kind, arg.Kind)
	}
	if parent.Kind.Family() == FamilyScore && arg.Kind.Family() == FamilyInvList {
		arg = &Node{Kind: KindScore, Args: []*Node{arg}}
	}
	if parent.Kind.Weighted() {
		parent.AddWeighted(f.weight, arg)
	} else {
		parent.Add(arg)
	}
	return nil
}

// operator builds the node for an operator token such as #near/3.
func (p *Parser) operator(tok Token) (*Node, error) {
	name, param, hasParam := strings.Cut(tok.Value, "/")
	kind, ok := KindByName(name)
	if !ok {
		return nil, errs.Syntaxf("unknown operator %s", tok.Value)
	}

	node := NewOp(kind)
	if !kind.Proximity() {
		if hasParam {
			return nil, errs.Syntaxf("operator %s takes no parameter", tok.Value)
		}
		return node, nil
	}
	if !hasParam || param == "" {
		return nil, errs.Syntaxf("missing distance parameter in %s", tok.Value)
	}
	k, err := strconv.Atoi(param)
	if err != nil || k < 1 {
		return nil, errs.Syntaxf("invalid distance parameter in %s", tok.Value)
	}
	node.Distance = k
	return node, nil
}

// terms splits a word into term and field and analyzes the term.
// One word may yield several terms, or none if it is a stop word.
func (p *Parser) terms(tok Token) ([]*Node, error) {
	term, field, _ := strings.Cut(tok.Value, ".")
	if field == "" {
		field = DefaultField
	}
	field = strings.ToLower(field)
	if !slices.Contains(Fields, field) {
		return nil, errs.Syntaxf("unknown field %q in %s", field, tok.Value)
	}

	var nodes []*Node
	for _, t := range analysis.Terms(p.analyzer, term) {
		nodes = append(nodes, NewTerm(t, field))
	}
	return nodes, nil
}
