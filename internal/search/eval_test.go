package search

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harshagw/qryeval/internal/analysis"
	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/query"
)

// scoringCollection has field lengths 3, 4, 2, 1, 2 (sum 12, average 2.4).
func scoringCollection() *memIndex {
	return newMemIndex(
		body("d0", "a b c"),
		body("d1", "b c d e"),
		body("d2", "c d"),
		body("d3", "d"),
		body("d4", "e e"),
	)
}

func TestRankedBoolean_AndIsMinOrIsMax(t *testing.T) {
	idx := newMemIndex(body("d0", "a a a b b b b b"), body("d1", "a"))

	and := scoresByDoc(evaluate(t, idx, NewRankedBoolean(), "#and( a b )"))
	if len(and) != 1 || and[0] != 3 {
		t.Errorf("#and scores %v, want doc0=3", and)
	}

	or := scoresByDoc(evaluate(t, idx, NewRankedBoolean(), "#or( a b )"))
	if len(or) != 2 || or[0] != 5 || or[1] != 1 {
		t.Errorf("#or scores %v, want doc0=5 doc1=1", or)
	}
}

func TestUnrankedBoolean_ScoresOne(t *testing.T) {
	idx := scoringCollection()
	got := scoresByDoc(evaluate(t, idx, NewUnrankedBoolean(), "#and( c d )"))
	want := map[int]float64{1: 1, 2: 1}
	assert.Equal(t, want, got)

	got = scoresByDoc(evaluate(t, idx, NewUnrankedBoolean(), "a e"))
	want = map[int]float64{0: 1, 1: 1, 4: 1}
	assert.Equal(t, want, got)
}

func TestRankedBoolean_DefaultOrOverTerms(t *testing.T) {
	idx := newMemIndex(body("d0", "x y apple z w pie"))
	results := evaluate(t, idx, NewRankedBoolean(), "apple pie")
	require.Equal(t, 1, results.Len())
	assert.Equal(t, 1.0, results.At(0).Score)
}

func TestBM25_Score(t *testing.T) {
	idx := scoringCollection()
	model := NewBM25(1.2, 0.75, 0)

	got := scoresByDoc(evaluate(t, idx, model, "a"))
	want := math.Log(4.5/1.5) / (1 + 1.2*(0.25+0.75*3/2.4))
	require.Len(t, got, 1)
	assert.InDelta(t, want, got[0], 1e-12)
}

func TestBM25_SumOverMatchingTerms(t *testing.T) {
	idx := scoringCollection()
	model := NewBM25(1.2, 0.75, 7)

	got := scoresByDoc(evaluate(t, idx, model, "a b"))
	idfA, idfB := math.Log(4.5/1.5), math.Log(3.5/2.5)
	normD0 := 1.2 * (0.25 + 0.75*3/2.4)
	normD1 := 1.2 * (0.25 + 0.75*4/2.4)

	require.Len(t, got, 2)
	assert.InDelta(t, idfA/(1+normD0)+idfB/(1+normD0), got[0], 1e-12)
	assert.InDelta(t, idfB/(1+normD1), got[1], 1e-12)
}

func TestBM25_IdfFloorsAtZero(t *testing.T) {
	idx := scoringCollection()
	got := scoresByDoc(evaluate(t, idx, NewBM25(1.2, 0.75, 0), "d"))
	require.Len(t, got, 3)
	for doc, s := range got {
		assert.Equal(t, 0.0, s, "doc %d", doc)
	}
}

func TestIndri_AndUsesDefaultScores(t *testing.T) {
	idx := scoringCollection()
	model := NewIndri(2, 0.4)

	mleA, mleC := 1.0/12, 3.0/12
	dirichlet := func(tf, docLen, mle float64) float64 {
		return 0.6*(tf+2*mle)/(docLen+2) + 0.4*mle
	}

	got := scoresByDoc(evaluate(t, idx, model, "a c"))
	require.Len(t, got, 3, "indri #and matches the union of its arguments")
	assert.InDelta(t, math.Sqrt(dirichlet(1, 3, mleA)*dirichlet(1, 3, mleC)), got[0], 1e-12)
	assert.InDelta(t, math.Sqrt(dirichlet(0, 4, mleA)*dirichlet(1, 4, mleC)), got[1], 1e-12)
	assert.InDelta(t, math.Sqrt(dirichlet(0, 2, mleA)*dirichlet(1, 2, mleC)), got[2], 1e-12)
}

func TestIndri_WeightedOperators(t *testing.T) {
	idx := scoringCollection()
	model := NewIndri(2, 0.4)

	wsum := scoresByDoc(evaluate(t, idx, model, "#wsum( 2 a 1 c )"))
	wand := scoresByDoc(evaluate(t, idx, model, "#wand( 2 a 1 c )"))
	require.Len(t, wsum, 3)
	for doc, s := range wsum {
		assert.InDelta(t, s, wand[doc], 1e-12, "doc %d", doc)
	}

	mleA, mleC := 1.0/12, 3.0/12
	sA := 0.6*(1+2*mleA)/5 + 0.4*mleA
	sC := 0.6*(1+2*mleC)/5 + 0.4*mleC
	assert.InDelta(t, (2*sA+sC)/3, wsum[0], 1e-12)
}

// constantScore is a SCORE node over a one-document list that always scores s.
func constantScore(s float64) *node {
	list := NewInvList("t", "body", []Posting{{DocID: 0, Positions: []int{0}}})
	return &node{
		kind:  query.KindScore,
		args:  []*node{{kind: query.KindTerm, list: list}},
		score: func(*node, int) float64 { return s },
	}
}

func TestScoreWeighted(t *testing.T) {
	n := &node{
		kind:      query.KindWSum,
		args:      []*node{constantScore(0.4), constantScore(0.8)},
		weights:   []float64{2, 1},
		weightSum: 3,
	}
	assert.InDelta(t, (0.4*2+0.8*1)/3, scoreWeighted(n, 0), 1e-12)
}

func TestEvaluate_UnsupportedOperator(t *testing.T) {
	idx := scoringCollection()
	tests := []struct {
		query string
		model Model
	}{
		{"#sum( a b )", NewRankedBoolean()},
		{"#and( a b )", NewBM25(1.2, 0.75, 0)},
		{"#or( a b )", NewIndri(2, 0.4)},
		{"#wsum( 1 a 1 b )", NewBM25(1.2, 0.75, 0)},
		{"#wand( 1 a 1 b )", NewUnrankedBoolean()},
	}

	for _, tt := range tests {
		root, err := query.Parse(tt.query, query.KindAnd, analysis.NewSimple())
		require.NoError(t, err)
		_, err = Evaluate(query.Optimize(root), idx, tt.model)
		if !errors.Is(err, errs.ErrConfig) {
			t.Errorf("%s under %s: expected config error, got %v", tt.query, tt.model.Kind, err)
		}
	}
}

func TestEvaluate_ConstructionErrors(t *testing.T) {
	idx := newMemIndex(memDoc{id: "d0", fields: map[string]string{"body": "a b", "title": "a b"}})
	model := NewRankedBoolean()

	near, err := query.Parse("#near/2( a )", query.KindOr, analysis.NewSimple())
	require.NoError(t, err)
	_, err = Evaluate(near, idx, model)
	assert.ErrorIs(t, err, errs.ErrConstruction)

	mixed, err := query.Parse("#near/2( a.title b )", query.KindOr, analysis.NewSimple())
	require.NoError(t, err)
	_, err = Evaluate(query.Optimize(mixed), idx, model)
	assert.ErrorIs(t, err, errs.ErrConstruction)

	score := &query.Node{Kind: query.KindScore, Args: []*query.Node{
		query.NewTerm("a", "body"), query.NewTerm("b", "body"),
	}}
	_, err = Evaluate(score, idx, model)
	assert.ErrorIs(t, err, errs.ErrConstruction)

	_, err = Evaluate(query.NewTerm("a", "body"), idx, model)
	assert.ErrorIs(t, err, errs.ErrConstruction)
}

func TestEvaluate_InvalidModel(t *testing.T) {
	_, err := Evaluate(query.NewOp(query.KindAnd), scoringCollection(), NewIndri(-1, 0.5))
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestEvaluate_EmptyTree(t *testing.T) {
	results := evaluate(t, scoringCollection(), NewIndri(2, 0.4), "")
	assert.Equal(t, 0, results.Len())
}

func TestEvaluate_MissingTerm(t *testing.T) {
	results := evaluate(t, scoringCollection(), NewRankedBoolean(), "zzz")
	assert.Equal(t, 0, results.Len())
}

func TestOptimize_PreservesResults(t *testing.T) {
	idx := scoringCollection()
	tests := []struct {
		query string
		model Model
	}{
		{"#and( c #or( b d ) )", NewRankedBoolean()},
		{"#or( #and( c ) e )", NewRankedBoolean()},
		{"#near/2( #syn( c ) d )", NewRankedBoolean()},
		{"#and( #or( a b ) #or( c ) )", NewUnrankedBoolean()},
		{"#sum( #sum( a ) c )", NewBM25(1.2, 0.75, 0)},
		{"#wsum( 1 a 2 #and( c ) )", NewIndri(2, 0.4)},
		{"#and( #wand( 1 b 3 #syn( d e ) ) c )", NewIndri(2, 0.4)},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			root, err := query.Parse(tt.query, tt.model.DefaultOperator(), analysis.NewSimple())
			require.NoError(t, err)
			plain, err := Evaluate(root.Clone(), idx, tt.model)
			require.NoError(t, err)
			optimized, err := Evaluate(query.Optimize(root), idx, tt.model)
			require.NoError(t, err)

			want, got := scoresByDoc(plain), scoresByDoc(optimized)
			require.Len(t, got, len(want))
			for doc, s := range want {
				assert.InDelta(t, s, got[doc], 1e-12, "doc %d", doc)
			}
		})
	}
}

func TestModel_DefaultOperator(t *testing.T) {
	assert.Equal(t, query.KindOr, NewUnrankedBoolean().DefaultOperator())
	assert.Equal(t, query.KindOr, NewRankedBoolean().DefaultOperator())
	assert.Equal(t, query.KindSum, NewBM25(1.2, 0.75, 0).DefaultOperator())
	assert.Equal(t, query.KindAnd, NewIndri(2500, 0.4).DefaultOperator())
}

func TestParseModelKind(t *testing.T) {
	k, err := ParseModelKind("BM25")
	require.NoError(t, err)
	assert.Equal(t, BM25, k)

	_, err = ParseModelKind("tfidf")
	assert.ErrorIs(t, err, errs.ErrConfig)
}
