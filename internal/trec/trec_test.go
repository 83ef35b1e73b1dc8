package trec

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/search"
)

// ids maps "doc<N>" to N.
type ids struct{}

func (ids) InternalID(ext string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(ext, "doc%d", &n); err != nil {
		return 0, fmt.Errorf("unknown document %s", ext)
	}
	return n, nil
}

func (ids) ExternalID(doc int) (string, error) {
	return fmt.Sprintf("doc%d", doc), nil
}

func TestReadQueries(t *testing.T) {
	queries, err := ReadQueries(strings.NewReader("10:#and( a b )\n\n11: obama family:tree\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []Query{
		{ID: "10", Text: "#and( a b )"},
		{ID: "11", Text: " obama family:tree"},
	}, queries)

	_, err = ReadQueries(strings.NewReader("10:a\nno colon here\n"))
	assert.ErrorIs(t, err, errs.ErrSyntax)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadRankings(t *testing.T) {
	in := `1 Q0 doc3 1 2.5 run
1 Q0 doc1 2 1.25 run
2 Q0 doc7 1 0.5 run
`
	rankings, err := ReadRankings(strings.NewReader(in), ids{})
	require.NoError(t, err)
	require.Len(t, rankings, 2)
	assert.Equal(t, []search.ScoredDoc{{DocID: 3, Score: 2.5}, {DocID: 1, Score: 1.25}}, rankings["1"].Docs())
	assert.Equal(t, []search.ScoredDoc{{DocID: 7, Score: 0.5}}, rankings["2"].Docs())
}

func TestReadRankings_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"short line", "1 Q0 doc3 1\n"},
		{"bad score", "1 Q0 doc3 1 high run\n"},
		{"unknown document", "1 Q0 nope 1 1.0 run\n"},
		{"non-contiguous query", "1 Q0 doc1 1 1 r\n2 Q0 doc2 1 1 r\n1 Q0 doc3 2 0.5 r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRankings(strings.NewReader(tt.in), ids{})
			assert.ErrorIs(t, err, errs.ErrData)
		})
	}
}

func TestWriter_WriteResults(t *testing.T) {
	results := search.NewScoreList()
	results.Add(4, 0.25)
	results.Add(2, 1.5)
	results.Add(9, 0.25)

	var buf bytes.Buffer
	w := NewWriter(&buf, "", 2)
	require.NoError(t, w.WriteResults("7", results, ids{}))
	require.NoError(t, w.WriteResults("8", search.NewScoreList(), ids{}))
	require.NoError(t, w.Flush())

	want := "7 Q0 doc2 1 1.500000000000 ls\n" +
		"7 Q0 doc4 2 0.250000000000 ls\n" +
		"8 Q0 dummy 1 0 ls\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, 3, results.Len(), "caller's list must not be truncated")
}

func TestWriter_WriteExpansion(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, "run1", 0)
	require.NoError(t, w.WriteExpansion("12", "#wsum ( 0.1000 a )"))
	require.NoError(t, w.Flush())
	assert.Equal(t, "12: #wsum ( 0.1000 a )\n", buf.String())
}
