package search

import (
	"strings"

	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/query"
)

// ModelKind selects the retrieval model.
type ModelKind int

const (
	UnrankedBoolean ModelKind = iota
	RankedBoolean
	BM25
	Indri
	numModels
)

var modelNames = [numModels]string{
	UnrankedBoolean: "unrankedboolean",
	RankedBoolean:   "rankedboolean",
	BM25:            "bm25",
	Indri:           "indri",
}

func (k ModelKind) String() string {
	if k >= 0 && k < numModels {
		return modelNames[k]
	}
	return "unknown"
}

// ParseModelKind maps a retrievalAlgorithm value to a model kind.
func ParseModelKind(name string) (ModelKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range modelNames {
		if n == name {
			return ModelKind(k), nil
		}
	}
	return 0, errs.Configf("unknown retrieval algorithm %q", name)
}

// Model holds the retrieval model and its constants. One model governs a whole evaluation.
type Model struct {
	Kind ModelKind

	// BM25
	K1, B, K3 float64

	// Indri
	Mu, Lambda float64
}

func NewUnrankedBoolean() Model { return Model{Kind: UnrankedBoolean} }

func NewRankedBoolean() Model { return Model{Kind: RankedBoolean} }

func NewBM25(k1, b, k3 float64) Model {
	return Model{Kind: BM25, K1: k1, B: b, K3: k3}
}

func NewIndri(mu, lambda float64) Model {
	return Model{Kind: Indri, Mu: mu, Lambda: lambda}
}

// DefaultOperator is the operator wrapped around every query for this model.
func (m Model) DefaultOperator() query.Kind {
	switch m.Kind {
	case BM25:
		return query.KindSum
	case Indri:
		return query.KindAnd
	default:
		return query.KindOr
	}
}

// Validate checks the model constants are in range.
func (m Model) Validate() error {
	switch m.Kind {
	case UnrankedBoolean, RankedBoolean:
		return nil
	case BM25:
		if m.K1 < 0 || m.B < 0 || m.B > 1 || m.K3 < 0 {
			return errs.Configf("bm25 requires k_1 >= 0, 0 <= b <= 1, k_3 >= 0 (got k_1=%g b=%g k_3=%g)", m.K1, m.B, m.K3)
		}
		return nil
	case Indri:
		if m.Mu < 0 || m.Lambda < 0 || m.Lambda > 1 {
			return errs.Configf("indri requires mu >= 0 and 0 <= lambda <= 1 (got mu=%g lambda=%g)", m.Mu, m.Lambda)
		}
		return nil
	}
	return errs.Configf("unknown retrieval model %d", m.Kind)
}

func (m Model) String() string {
	switch m.Kind {
	case BM25:
		return "bm25(k_1=" + formatFloat(m.K1) + ", b=" + formatFloat(m.B) + ", k_3=" + formatFloat(m.K3) + ")"
	case Indri:
		return "indri(mu=" + formatFloat(m.Mu) + ", lambda=" + formatFloat(m.Lambda) + ")"
	}
	return m.Kind.String()
}
