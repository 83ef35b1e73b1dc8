package search

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harshagw/qryeval/internal/analysis"
	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/query"
)

func newTestSearcher(t *testing.T, idx Index, opts Options) *Searcher {
	t.Helper()
	opts.Analyzer = analysis.NewSimple()
	s, err := New(idx, opts)
	require.NoError(t, err)
	return s
}

func TestSearcher_Search(t *testing.T) {
	s := newTestSearcher(t, feedbackCollection(), Options{Model: NewRankedBoolean()})

	out, err := s.Search("q1", "#and( pie crust )")
	require.NoError(t, err)
	assert.Equal(t, "q1", out.QueryID)
	assert.Empty(t, out.Expansion)
	assert.Equal(t, query.KindAnd, out.Tree.Kind)
	assert.Equal(t, map[int]float64{0: 1, 1: 1}, scoresByDoc(out.Results))
}

func TestSearcher_SyntaxError(t *testing.T) {
	s := newTestSearcher(t, feedbackCollection(), Options{Model: NewRankedBoolean()})
	_, err := s.Search("q1", "#near( pie crust )")
	assert.ErrorIs(t, err, errs.ErrSyntax)
}

func TestSearcher_FeedbackFromOwnRanking(t *testing.T) {
	fb := Feedback{Docs: 1, Terms: 2, Mu: 0, OrigWeight: 0.5}
	s := newTestSearcher(t, feedbackCollection(), Options{Model: NewIndri(2, 0.4), Feedback: &fb})

	out, err := s.Search("q1", "apple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Expansion, "#wsum ( "), out.Expansion)
	assert.Equal(t, query.KindWAnd, out.Tree.Kind)
	assert.Greater(t, out.Results.Len(), 0)
}

func TestSearcher_FeedbackFromSuppliedRanking(t *testing.T) {
	fb := Feedback{Docs: 1, Terms: 1, Mu: 0, OrigWeight: 0.5}
	rankings := map[string]*ScoreList{"q7": ranking(ScoredDoc{DocID: 1, Score: 1})}
	s := newTestSearcher(t, feedbackCollection(), Options{Model: NewIndri(2, 0.4), Feedback: &fb, Rankings: rankings})

	out, err := s.Search("q7", "apple")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("#wsum ( %.4f pie )", 0.5*math.Log(3.5)), out.Expansion)
	assert.Equal(t, 1, rankings["q7"].Len(), "supplied ranking must not be modified")

	_, err = s.Search("q8", "apple")
	assert.ErrorIs(t, err, errs.ErrData)
}

func TestSearcher_FeedbackNeedsWeightedOperators(t *testing.T) {
	fb := DefaultFeedback()
	s := newTestSearcher(t, feedbackCollection(), Options{Model: NewRankedBoolean(), Feedback: &fb})
	_, err := s.Search("q1", "apple")
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestNew_RejectsBadOptions(t *testing.T) {
	_, err := New(feedbackCollection(), Options{Model: NewBM25(-1, 0.75, 0)})
	assert.ErrorIs(t, err, errs.ErrConfig)

	fb := Feedback{Docs: 0, Terms: 1}
	_, err = New(feedbackCollection(), Options{Model: NewIndri(1, 0.5), Feedback: &fb})
	assert.ErrorIs(t, err, errs.ErrConfig)
}
