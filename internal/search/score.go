package search

import (
	"math"

	"harshagw/qryeval/internal/query"
)

// scoreFunc scores doc at node n.
type scoreFunc func(n *node, doc int) float64

// scorers maps (operator, model) to a scoring function. A nil entry means the
// model does not support the operator.
var scorers = [query.KindWSum + 1][numModels]scoreFunc{
	query.KindScore: {
		UnrankedBoolean: scoreMatched,
		RankedBoolean:   scoreTF,
		BM25:            scoreBM25,
		Indri:           scoreIndri,
	},
	query.KindAnd: {
		UnrankedBoolean: scoreMatched,
		RankedBoolean:   scoreMin,
		Indri:           scoreGeometricMean,
	},
	query.KindOr: {
		UnrankedBoolean: scoreMatched,
		RankedBoolean:   scoreMax,
	},
	query.KindSum: {
		BM25: scoreSum,
	},
	query.KindWAnd: {
		Indri: scoreWeighted,
	},
	query.KindWSum: {
		Indri: scoreWeighted,
	},
}

// defaults gives the score a node contributes for a document it does not match.
var defaults = [query.KindWSum + 1]scoreFunc{
	query.KindScore: defaultIndri,
	query.KindAnd:   defaultGeometricMean,
	query.KindOr:    scoreZero,
	query.KindSum:   scoreZero,
	query.KindWAnd:  defaultWeighted,
	query.KindWSum:  defaultWeighted,
}

func scoreZero(*node, int) float64 { return 0 }

func scoreMatched(*node, int) float64 { return 1 }

func scoreTF(n *node, _ int) float64 {
	return float64(n.args[0].posting().TF())
}

func scoreBM25(n *node, doc int) float64 {
	m := n.ev.model
	tf := float64(n.args[0].posting().TF())
	docLen := float64(n.ev.idx.FieldLength(n.field(), doc))

	lengthNorm := 1 - m.B
	if n.avgLen > 0 {
		lengthNorm += m.B * docLen / n.avgLen
	}
	// (k3+1)*qtf/(k3+qtf) with qtf fixed at 1.
	// TODO: weight by the query term frequency once the parser counts repeated terms.
	queryWeight := (m.K3 + 1) / (m.K3 + 1)

	return n.idf * tf / (tf + m.K1*lengthNorm) * queryWeight
}

func scoreIndri(n *node, doc int) float64 {
	return dirichlet(n, doc, float64(n.args[0].posting().TF()))
}

func defaultIndri(n *node, doc int) float64 {
	return dirichlet(n, doc, 0)
}

// dirichlet is the two-stage smoothed term probability used by the Indri model.
func dirichlet(n *node, doc int, tf float64) float64 {
	m := n.ev.model
	docLen := float64(n.ev.idx.FieldLength(n.field(), doc))
	return (1-m.Lambda)*(tf+m.Mu*n.mle)/(docLen+m.Mu) + m.Lambda*n.mle
}

func scoreMin(n *node, doc int) float64 {
	lowest := math.Inf(1)
	for _, a := range n.args {
		lowest = min(lowest, a.score(a, doc))
	}
	return lowest
}

func scoreMax(n *node, doc int) float64 {
	highest := 0.0
	for _, a := range n.args {
		if a.matches(doc) {
			highest = max(highest, a.score(a, doc))
		}
	}
	return highest
}

func scoreSum(n *node, doc int) float64 {
	total := 0.0
	for _, a := range n.args {
		if a.matches(doc) {
			total += a.score(a, doc)
		}
	}
	return total
}

// scoreOrDefault scores a matching child and falls back to its default otherwise.
func scoreOrDefault(a *node, doc int) float64 {
	if a.matches(doc) {
		return a.score(a, doc)
	}
	return a.byDefault(a, doc)
}

func scoreGeometricMean(n *node, doc int) float64 {
	product := 1.0
	for _, a := range n.args {
		product *= scoreOrDefault(a, doc)
	}
	return math.Pow(product, 1/float64(len(n.args)))
}

func defaultGeometricMean(n *node, doc int) float64 {
	product := 1.0
	for _, a := range n.args {
		product *= a.byDefault(a, doc)
	}
	return math.Pow(product, 1/float64(len(n.args)))
}

// scoreWeighted scores #wsum and #wand alike: sum of weight-normalized child scores.
func scoreWeighted(n *node, doc int) float64 {
	total := 0.0
	for i, a := range n.args {
		total += scoreOrDefault(a, doc) * n.weights[i] / n.weightSum
	}
	return total
}

func defaultWeighted(n *node, doc int) float64 {
	total := 0.0
	for i, a := range n.args {
		total += a.byDefault(a, doc) * n.weights[i] / n.weightSum
	}
	return total
}
