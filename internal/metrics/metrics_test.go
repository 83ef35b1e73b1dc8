package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/search"
)

func outcome(n int, expansion string) *search.Outcome {
	results := search.NewScoreList()
	for i := 0; i < n; i++ {
		results.Add(i, 1)
	}
	return &search.Outcome{QueryID: "q", Results: results, Expansion: expansion}
}

func TestObserve(t *testing.T) {
	m := New()

	m.Observe(search.BM25, outcome(3, ""), nil, time.Millisecond)
	m.Observe(search.BM25, outcome(0, ""), nil, time.Millisecond)
	m.Observe(search.Indri, outcome(2, "#wsum ( 0.1000 a )"), nil, time.Millisecond)
	m.Observe(search.Indri, nil, errs.Syntaxf("bad"), time.Millisecond)
	m.Observe(search.Indri, nil, errors.New("disk"), time.Millisecond)

	bm25 := search.BM25.String()
	indri := search.Indri.String()
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"bm25 ok", testutil.ToFloat64(m.QueriesTotal.WithLabelValues(bm25, OutcomeOK)), 1},
		{"bm25 zero", testutil.ToFloat64(m.QueriesTotal.WithLabelValues(bm25, OutcomeZeroResults)), 1},
		{"indri error", testutil.ToFloat64(m.QueriesTotal.WithLabelValues(indri, OutcomeError)), 2},
		{"syntax errors", testutil.ToFloat64(m.QueryErrorsTotal.WithLabelValues("syntax")), 1},
		{"other errors", testutil.ToFloat64(m.QueryErrorsTotal.WithLabelValues("other")), 1},
		{"expansions", testutil.ToFloat64(m.ExpansionsTotal), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
	if n := testutil.CollectAndCount(m.EvaluationLatency); n != 2 {
		t.Errorf("latency series: got %d, want 2", n)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe(search.RankedBoolean, outcome(1, ""), nil, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "qryeval_queries_total") {
		t.Errorf("metrics output missing qryeval_queries_total:\n%s", rec.Body.String())
	}
}
