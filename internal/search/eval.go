package search

import (
	log "github.com/cihub/seelog"

	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/query"
)

// Evaluate scores every document matching root under model.
// The tree must be rooted at a scoring operator; an operator with no
// arguments matches nothing.
func Evaluate(root *query.Node, idx Index, model Model) (*ScoreList, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if root.Kind.Family() != query.FamilyScore {
		return nil, errs.Constructionf("query root must be a scoring operator, got %s", root.Kind)
	}

	ev := &evaluation{idx: idx, model: model, numDocs: idx.NumDocs()}
	n, err := compile(root, ev)
	if err != nil {
		return nil, err
	}

	results := NewScoreList()
	if len(root.Args) == 0 {
		return results, nil
	}
	if err := n.initialize(); err != nil {
		return nil, err
	}

	for n.hasMatch() {
		doc := n.match()
		results.Add(doc, n.score(n, doc))
		n.advancePast(doc)
	}
	log.Debugf("evaluated %s under %s: %d matches", root, model, results.Len())
	return results, nil
}
