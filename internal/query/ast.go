package query

import (
	"strconv"
	"strings"
)

// Kind identifies an operator in the query tree.
type Kind int

const (
	KindTerm Kind = iota
	KindSyn
	KindNear
	KindWindow
	KindScore
	KindAnd
	KindOr
	KindSum
	KindWAnd
	KindWSum
)

// Family groups operators by what they produce.
type Family int

const (
	// FamilyInvList operators produce positional postings.
	FamilyInvList Family = iota
	// FamilyScore operators produce a score per matched document.
	FamilyScore
)

func (f Family) String() string {
	if f == FamilyInvList {
		return "inverted-list"
	}
	return "scoring"
}

var kindNames = [...]string{
	KindTerm:   "TERM",
	KindSyn:    "#syn",
	KindNear:   "#near",
	KindWindow: "#window",
	KindScore:  "#score",
	KindAnd:    "#and",
	KindOr:     "#or",
	KindSum:    "#sum",
	KindWAnd:   "#wand",
	KindWSum:   "#wsum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

func (k Kind) Family() Family {
	switch k {
	case KindTerm, KindSyn, KindNear, KindWindow:
		return FamilyInvList
	default:
		return FamilyScore
	}
}

// Weighted reports whether each argument of k carries a weight.
func (k Kind) Weighted() bool {
	return k == KindWAnd || k == KindWSum
}

// Proximity reports whether k takes a distance parameter.
func (k Kind) Proximity() bool {
	return k == KindNear || k == KindWindow
}

// KindByName returns the operator kind for a keyword such as "#and".
func KindByName(name string) (Kind, bool) {
	switch strings.ToLower(name) {
	case "#syn":
		return KindSyn, true
	case "#near":
		return KindNear, true
	case "#window":
		return KindWindow, true
	case "#and":
		return KindAnd, true
	case "#or":
		return KindOr, true
	case "#sum":
		return KindSum, true
	case "#wand":
		return KindWAnd, true
	case "#wsum":
		return KindWSum, true
	}
	return 0, false
}

// Node is one operator in a query tree. Which fields are set depends on Kind.
type Node struct {
	Kind Kind

	// TERM
	Term  string
	Field string

	// NEAR, WINDOW
	Distance int

	Args []*Node

	// WAND, WSUM: Weights[i] belongs to Args[i].
	Weights   []float64
	WeightSum float64
}

// NewTerm returns a TERM leaf.
func NewTerm(term, field string) *Node {
	return &Node{Kind: KindTerm, Term: term, Field: field}
}

// NewOp returns an operator node with no arguments.
func NewOp(kind Kind) *Node {
	return &Node{Kind: kind}
}

// Add appends an unweighted argument.
func (n *Node) Add(arg *Node) {
	n.Args = append(n.Args, arg)
}

// AddWeighted appends an argument with its weight.
func (n *Node) AddWeighted(weight float64, arg *Node) {
	n.Args = append(n.Args, arg)
	n.Weights = append(n.Weights, weight)
	n.WeightSum += weight
}

// RemoveArg drops argument i and, for weighted operators, its weight.
func (n *Node) RemoveArg(i int) {
	n.Args = append(n.Args[:i], n.Args[i+1:]...)
	if n.Kind.Weighted() && i < len(n.Weights) {
		n.Weights = append(n.Weights[:i], n.Weights[i+1:]...)
		n.recomputeWeightSum()
	}
}

func (n *Node) recomputeWeightSum() {
	n.WeightSum = 0
	for _, w := range n.Weights {
		n.WeightSum += w
	}
}

// Share returns argument i's weight normalized by the weight sum.
func (n *Node) Share(i int) float64 {
	if n.WeightSum == 0 {
		return 0
	}
	return n.Weights[i] / n.WeightSum
}

// Clone returns a deep copy of the tree rooted at n.
func (n *Node) Clone() *Node {
	c := *n
	c.Args = make([]*Node, len(n.Args))
	for i, a := range n.Args {
		c.Args[i] = a.Clone()
	}
	c.Weights = append([]float64(nil), n.Weights...)
	return &c
}

// String serializes the tree in query syntax, with SCORE adapters shown as #score.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	if n.Kind == KindTerm {
		sb.WriteString(n.Term)
		sb.WriteByte('.')
		sb.WriteString(n.Field)
		return
	}
	sb.WriteString(n.Kind.String())
	if n.Kind.Proximity() {
		sb.WriteByte('/')
		sb.WriteString(strconv.Itoa(n.Distance))
	}
	sb.WriteString("(")
	for i, arg := range n.Args {
		sb.WriteByte(' ')
		if n.Kind.Weighted() {
			sb.WriteString(strconv.FormatFloat(n.Weights[i], 'g', -1, 64))
			sb.WriteByte(' ')
		}
		arg.write(sb)
	}
	sb.WriteString(" )")
}
