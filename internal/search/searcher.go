package search

import (
	"fmt"

	log "github.com/cihub/seelog"

	"harshagw/qryeval/internal/analysis"
	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/query"
)

// Options configures a Searcher.
type Options struct {
	Model    Model
	Analyzer analysis.Analyzer
	// Feedback enables query expansion when non-nil.
	Feedback *Feedback
	// Rankings supplies initial rankings for feedback by query id. When nil
	// the initial ranking is computed by evaluating the query.
	Rankings map[string]*ScoreList
}

// Outcome is the result of evaluating one query.
type Outcome struct {
	QueryID string
	// Tree is the optimized tree that produced Results.
	Tree    *query.Node
	Results *ScoreList
	// Expansion is the feedback fragment, empty without feedback.
	Expansion string
}

// Searcher evaluates structured queries against an index. It holds no
// per-query state and may be shared by concurrent callers.
type Searcher struct {
	idx  Index
	opts Options
}

// New creates a searcher after validating the model and feedback settings.
func New(idx Index, opts Options) (*Searcher, error) {
	if err := opts.Model.Validate(); err != nil {
		return nil, err
	}
	if opts.Feedback != nil {
		if err := opts.Feedback.Validate(); err != nil {
			return nil, err
		}
	}
	if opts.Analyzer == nil {
		opts.Analyzer = analysis.NewEnglish()
	}
	return &Searcher{idx: idx, opts: opts}, nil
}

// Model returns the retrieval model.
func (s *Searcher) Model() Model {
	return s.opts.Model
}

// Parse parses text under the model's default operator without optimizing.
func (s *Searcher) Parse(text string) (*query.Node, error) {
	return query.Parse(text, s.opts.Model.DefaultOperator(), s.opts.Analyzer)
}

// Prepare parses and optimizes text.
func (s *Searcher) Prepare(text string) (*query.Node, error) {
	root, err := s.Parse(text)
	if err != nil {
		return nil, err
	}
	return query.Optimize(root), nil
}

// Run evaluates a prepared tree.
func (s *Searcher) Run(root *query.Node) (*ScoreList, error) {
	return Evaluate(root, s.idx, s.opts.Model)
}

// Search evaluates text, expanding it first when feedback is enabled.
func (s *Searcher) Search(qid, text string) (*Outcome, error) {
	root, err := s.Prepare(text)
	if err != nil {
		return nil, err
	}
	log.Debugf("query %s: %s", qid, root)

	if s.opts.Feedback == nil {
		results, err := s.Run(root)
		if err != nil {
			return nil, err
		}
		return &Outcome{QueryID: qid, Tree: root, Results: results}, nil
	}

	initial, err := s.initialRanking(qid, root)
	if err != nil {
		return nil, err
	}
	expansion, err := NewExpander(s.idx, *s.opts.Feedback).Expand(initial)
	if err != nil {
		return nil, fmt.Errorf("expanding query %s: %w", qid, err)
	}

	combined := CombinedQuery(text, s.opts.Model.DefaultOperator(), s.opts.Feedback.OrigWeight, expansion)
	expanded, err := s.Prepare(combined)
	if err != nil {
		return nil, fmt.Errorf("parsing expanded query %s: %w", qid, err)
	}
	log.Debugf("query %s expanded: %s", qid, expanded)

	results, err := s.Run(expanded)
	if err != nil {
		return nil, err
	}
	return &Outcome{QueryID: qid, Tree: expanded, Results: results, Expansion: expansion}, nil
}

func (s *Searcher) initialRanking(qid string, root *query.Node) (*ScoreList, error) {
	if s.opts.Rankings == nil {
		return s.Run(root)
	}
	ranking, ok := s.opts.Rankings[qid]
	if !ok {
		return nil, errs.Dataf("no initial ranking for query %s", qid)
	}
	return ranking.Clone(), nil
}
