package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/search"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func base() map[string]any {
	return map[string]any{
		KeyIndexPath:          "/idx",
		KeyQueryFilePath:      "q.txt",
		KeyTrecEvalOutputPath: "out.teIn",
	}
}

func with(m map[string]any, kv ...any) map[string]any {
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func TestLoad_ParameterFile(t *testing.T) {
	path := writeFile(t, "params.txt", `indexPath=/data/index
queryFilePath=queries.txt
trecEvalOutputPath=out.teIn
# comment
retrievalAlgorithm=BM25
BM25:k_1=1.2
BM25:b=0.75
BM25:k_3=0
`)
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/index", p.IndexPath)
	assert.Equal(t, search.NewBM25(1.2, 0.75, 0), p.Model)
	assert.Nil(t, p.Feedback)
	assert.Equal(t, "ls", p.RunID)
	assert.Equal(t, 100, p.ResultLimit)
	assert.Equal(t, 1, p.Workers)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "params.yaml", `indexPath: /data/index
queryFilePath: queries.txt
trecEvalOutputPath: out.teIn
retrievalAlgorithm: Indri
"Indri:mu": 2500
"Indri:lambda": 0.4
fb: true
fbDocs: 5
workers: 4
`)
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, search.NewIndri(2500, 0.4), p.Model)
	require.NotNil(t, p.Feedback)
	assert.Equal(t, 5, p.Feedback.Docs)
	assert.Equal(t, 10, p.Feedback.Terms)
	assert.Equal(t, 4, p.Workers)
}

func TestLoad_MalformedLine(t *testing.T) {
	path := writeFile(t, "params.txt", "indexPath=/x\nnot a pair\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestFromMap_EnvOverride(t *testing.T) {
	t.Setenv("QRYEVAL_BM25_K_1", "2.0")
	p, err := FromMap(with(base(), KeyRetrievalAlgorithm, "bm25", KeyBM25K1, "1.2", KeyBM25B, "0.75", KeyBM25K3, "0"))
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Model.K1)
}

func TestFromMap_Feedback(t *testing.T) {
	p, err := FromMap(with(base(),
		KeyRetrievalAlgorithm, "Indri", KeyIndriMu, "2500", KeyIndriLambda, "0.4",
		KeyFeedback, "true", KeyFbDocs, "10", KeyFbTerms, "20", KeyFbMu, "0", KeyFbOrigWeight, "0.7",
		KeyInitialRanking, "init.teIn", KeyExpansionFile, "exp.qry",
	))
	require.NoError(t, err)
	assert.Equal(t, &search.Feedback{Docs: 10, Terms: 20, Mu: 0, OrigWeight: 0.7, Field: "body"}, p.Feedback)
	assert.Equal(t, "init.teIn", p.InitialRankingFile)
	assert.Equal(t, "exp.qry", p.ExpansionQueryFile)
}

func TestFromMap_Errors(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]any
	}{
		{"missing index", with(map[string]any{}, KeyRetrievalAlgorithm, "rankedboolean")},
		{"missing algorithm", base()},
		{"unknown algorithm", with(base(), KeyRetrievalAlgorithm, "tfidf")},
		{"missing bm25 constant", with(base(), KeyRetrievalAlgorithm, "bm25", KeyBM25K1, "1.2", KeyBM25B, "0.75")},
		{"missing indri constant", with(base(), KeyRetrievalAlgorithm, "indri", KeyIndriMu, "2500")},
		{"bad number", with(base(), KeyRetrievalAlgorithm, "indri", KeyIndriMu, "lots", KeyIndriLambda, "0.4")},
		{"lambda out of range", with(base(), KeyRetrievalAlgorithm, "indri", KeyIndriMu, "1", KeyIndriLambda, "2")},
		{"bad fb flag", with(base(), KeyRetrievalAlgorithm, "rankedboolean", KeyFeedback, "maybe")},
		{"fb weight out of range", with(base(), KeyRetrievalAlgorithm, "indri", KeyIndriMu, "1", KeyIndriLambda, "0.5", KeyFeedback, "true", KeyFbOrigWeight, "1.5")},
		{"zero workers", with(base(), KeyRetrievalAlgorithm, "rankedboolean", KeyWorkers, "0")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.m)
			assert.ErrorIs(t, err, errs.ErrConfig)
		})
	}
}
