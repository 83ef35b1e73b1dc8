// Package config loads evaluation parameters into typed Params.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/search"
	"harshagw/qryeval/internal/trec"
)

// Parameter keys.
const (
	KeyIndexPath          = "indexPath"
	KeyQueryFilePath      = "queryFilePath"
	KeyTrecEvalOutputPath = "trecEvalOutputPath"
	KeyRetrievalAlgorithm = "retrievalAlgorithm"
	KeyBM25K1             = "BM25:k_1"
	KeyBM25B              = "BM25:b"
	KeyBM25K3             = "BM25:k_3"
	KeyIndriMu            = "Indri:mu"
	KeyIndriLambda        = "Indri:lambda"
	KeyFeedback           = "fb"
	KeyInitialRanking     = "fbInitialRankingFile"
	KeyExpansionFile      = "fbExpansionQueryFile"
	KeyFbDocs             = "fbDocs"
	KeyFbTerms            = "fbTerms"
	KeyFbMu               = "fbMu"
	KeyFbOrigWeight       = "fbOrigWeight"
	KeyRunID              = "runId"
	KeyResultLimit        = "resultLimit"
	KeyWorkers            = "workers"
	KeyVerbosity          = "verbosity"
	KeyMetricsAddr        = "metricsAddr"
	KeyAnalyzer           = "analyzer"
)

// EnvPrefix prefixes environment overrides, e.g. QRYEVAL_BM25_K_1.
const EnvPrefix = "QRYEVAL"

// Params is a validated evaluation configuration.
type Params struct {
	IndexPath          string
	QueryFilePath      string
	TrecEvalOutputPath string

	Model search.Model
	// Feedback is nil unless fb=true.
	Feedback *search.Feedback
	// InitialRankingFile replaces the first retrieval pass of feedback when set.
	InitialRankingFile string
	ExpansionQueryFile string

	RunID       string
	ResultLimit int
	Workers     int
	Verbosity   int
	MetricsAddr string
	// Analyzer must match the analyzer recorded in the index when set.
	Analyzer string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(":", "_", ".", "_"))
	v.AutomaticEnv()

	fb := search.DefaultFeedback()
	v.SetDefault(KeyRunID, trec.DefaultRunID)
	v.SetDefault(KeyResultLimit, trec.DefaultLimit)
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyVerbosity, 1)
	v.SetDefault(KeyFeedback, false)
	v.SetDefault(KeyFbDocs, fb.Docs)
	v.SetDefault(KeyFbTerms, fb.Terms)
	v.SetDefault(KeyFbMu, fb.Mu)
	v.SetDefault(KeyFbOrigWeight, fb.OrigWeight)
	return v
}

// Load reads a parameter file. Files ending in .yaml, .yml, .json or .toml are
// read by viper; anything else is treated as key=value lines.
func Load(path string) (*Params, error) {
	v := newViper()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Configf("reading %s: %v", path, err)
		}
	default:
		m, err := readParameterFile(path)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(m); err != nil {
			return nil, errs.Configf("merging %s: %v", path, err)
		}
	}
	return fromViper(v)
}

// FromMap builds Params from an already parsed parameter map.
func FromMap(m map[string]any) (*Params, error) {
	v := newViper()
	if err := v.MergeConfigMap(m); err != nil {
		return nil, errs.Configf("merging parameters: %v", err)
	}
	return fromViper(v)
}

// readParameterFile splits key=value lines at the first '='. Blank lines and
// lines starting with '#' are ignored.
func readParameterFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Configf("opening parameter file: %v", err)
	}
	defer f.Close()

	m := make(map[string]any)
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, errs.Configf("%s:%d: expected key=value, got %q", path, line, text)
		}
		m[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}
	return m, nil
}

func fromViper(v *viper.Viper) (*Params, error) {
	p := &Params{
		IndexPath:          v.GetString(KeyIndexPath),
		QueryFilePath:      v.GetString(KeyQueryFilePath),
		TrecEvalOutputPath: v.GetString(KeyTrecEvalOutputPath),
		InitialRankingFile: v.GetString(KeyInitialRanking),
		ExpansionQueryFile: v.GetString(KeyExpansionFile),
		RunID:              v.GetString(KeyRunID),
		MetricsAddr:        v.GetString(KeyMetricsAddr),
		Analyzer:           v.GetString(KeyAnalyzer),
	}
	for key, value := range map[string]string{
		KeyIndexPath:          p.IndexPath,
		KeyQueryFilePath:      p.QueryFilePath,
		KeyTrecEvalOutputPath: p.TrecEvalOutputPath,
	} {
		if value == "" {
			return nil, errs.Configf("missing required parameter %s", key)
		}
	}

	r := reader{v: v}
	p.ResultLimit = r.int(KeyResultLimit)
	p.Workers = r.int(KeyWorkers)
	p.Verbosity = r.int(KeyVerbosity)
	if r.err != nil {
		return nil, r.err
	}
	if p.ResultLimit <= 0 || p.Workers <= 0 {
		return nil, errs.Configf("%s and %s must be positive", KeyResultLimit, KeyWorkers)
	}

	model, err := modelFrom(&r)
	if err != nil {
		return nil, err
	}
	p.Model = model

	enabled, err := cast.ToBoolE(v.Get(KeyFeedback))
	if err != nil {
		return nil, errs.Configf("parameter %s: %v", KeyFeedback, err)
	}
	if enabled {
		fb := search.Feedback{
			Docs:       r.int(KeyFbDocs),
			Terms:      r.int(KeyFbTerms),
			Mu:         r.float(KeyFbMu),
			OrigWeight: r.float(KeyFbOrigWeight),
			Field:      search.DefaultFeedback().Field,
		}
		if r.err != nil {
			return nil, r.err
		}
		if err := fb.Validate(); err != nil {
			return nil, err
		}
		p.Feedback = &fb
	}
	return p, nil
}

func modelFrom(r *reader) (search.Model, error) {
	name := r.v.GetString(KeyRetrievalAlgorithm)
	if name == "" {
		return search.Model{}, errs.Configf("missing required parameter %s", KeyRetrievalAlgorithm)
	}
	kind, err := search.ParseModelKind(name)
	if err != nil {
		return search.Model{}, err
	}

	var m search.Model
	switch kind {
	case search.UnrankedBoolean:
		m = search.NewUnrankedBoolean()
	case search.RankedBoolean:
		m = search.NewRankedBoolean()
	case search.BM25:
		m = search.NewBM25(r.required(KeyBM25K1), r.required(KeyBM25B), r.required(KeyBM25K3))
	case search.Indri:
		m = search.NewIndri(r.required(KeyIndriMu), r.required(KeyIndriLambda))
	}
	if r.err != nil {
		return search.Model{}, r.err
	}
	return m, m.Validate()
}

// reader converts parameter values and keeps the first error.
type reader struct {
	v   *viper.Viper
	err error
}

func (r *reader) float(key string) float64 {
	f, err := cast.ToFloat64E(r.v.Get(key))
	if err != nil && r.err == nil {
		r.err = errs.Configf("parameter %s: %v", key, err)
	}
	return f
}

func (r *reader) int(key string) int {
	n, err := cast.ToIntE(r.v.Get(key))
	if err != nil && r.err == nil {
		r.err = errs.Configf("parameter %s: %v", key, err)
	}
	return n
}

func (r *reader) required(key string) float64 {
	if !r.v.IsSet(key) {
		if r.err == nil {
			r.err = errs.Configf("missing required parameter %s", key)
		}
		return 0
	}
	return r.float(key)
}
