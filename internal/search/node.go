package search

import (
	"math"

	log "github.com/cihub/seelog"

	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/query"
)

// evaluation is the state shared by every node of one query evaluation.
type evaluation struct {
	idx     Index
	model   Model
	numDocs int
}

// node is a compiled query operator. Inverted-list operators materialize
// their list during initialize and iterate it with cur; scoring operators
// iterate their children.
type node struct {
	kind query.Kind
	q    *query.Node
	ev   *evaluation
	args []*node

	// inverted-list operators
	list *InvList
	cur  int

	// scoring operators
	all       bool
	weights   []float64
	weightSum float64
	score     scoreFunc
	byDefault scoreFunc

	// SCORE statistics, fixed at initialization
	idf    float64
	avgLen float64
	mle    float64
}

// compile checks q against the model and builds the node tree.
func compile(q *query.Node, ev *evaluation) (*node, error) {
	n := &node{kind: q.Kind, q: q, ev: ev}

	if q.Kind.Family() == query.FamilyScore {
		n.score = scorers[q.Kind][ev.model.Kind]
		if n.score == nil {
			return nil, errs.Configf("the %s model does not support the %s operator", ev.model.Kind, q.Kind)
		}
		n.byDefault = defaults[q.Kind]
		n.all = q.Kind == query.KindAnd && ev.model.Kind != Indri
		if q.Kind.Weighted() {
			if len(q.Weights) != len(q.Args) {
				return nil, errs.Constructionf("%s has %d arguments but %d weights", q.Kind, len(q.Args), len(q.Weights))
			}
			n.weights = q.Weights
			n.weightSum = q.WeightSum
		}
	}

	switch {
	case q.Kind == query.KindScore:
		if len(q.Args) != 1 || q.Args[0].Kind.Family() != query.FamilyInvList {
			return nil, errs.Constructionf("%s requires exactly one inverted-list argument, got %d arguments", q.Kind, len(q.Args))
		}
	case q.Kind.Proximity():
		if len(q.Args) < 2 {
			return nil, errs.Constructionf("%s/%d requires at least 2 arguments, got %d", q.Kind, q.Distance, len(q.Args))
		}
	}

	for _, a := range q.Args {
		if q.Kind != query.KindScore && a.Kind.Family() != q.Kind.Family() {
			return nil, errs.Constructionf("%s cannot take %s argument %s", q.Kind, a.Kind.Family(), a.Kind)
		}
		child, err := compile(a, ev)
		if err != nil {
			return nil, err
		}
		n.args = append(n.args, child)
	}
	return n, nil
}

func (n *node) isInvList() bool {
	return n.kind.Family() == query.FamilyInvList
}

// initialize materializes inverted lists bottom-up and fixes SCORE statistics.
func (n *node) initialize() error {
	for _, a := range n.args {
		if err := a.initialize(); err != nil {
			return err
		}
	}

	switch n.kind {
	case query.KindTerm:
		list, err := n.ev.idx.Postings(n.q.Term, n.q.Field)
		if err != nil {
			return err
		}
		if list == nil {
			list = NewInvList(n.q.Term, n.q.Field, nil)
		}
		n.list = list
	case query.KindSyn:
		field, err := n.commonField()
		if err != nil {
			return err
		}
		n.list = NewInvList(n.q.String(), field, unionPostings(n.args))
	case query.KindNear, query.KindWindow:
		field, err := n.commonField()
		if err != nil {
			return err
		}
		merge := nearPositions
		if n.kind == query.KindWindow {
			merge = windowPositions
		}
		n.list = NewInvList(n.q.String(), field, proximityPostings(n.args, n.q.Distance, merge))
	case query.KindScore:
		n.initStatistics()
	}

	if n.list != nil {
		n.cur = 0
		log.Tracef("initialized %s: df=%d ctf=%d", n.list.Term, n.list.DF, n.list.CTF)
	}
	return nil
}

// commonField returns the field shared by all arguments.
func (n *node) commonField() (string, error) {
	field := ""
	for i, a := range n.args {
		if i == 0 {
			field = a.list.Field
			continue
		}
		if a.list.Field != field {
			return "", errs.Constructionf("%s mixes fields %q and %q", n.kind, field, a.list.Field)
		}
	}
	return field, nil
}

func (n *node) initStatistics() {
	list := n.args[0].list
	idx := n.ev.idx

	df := float64(list.DF)
	n.idf = math.Max(0, math.Log((float64(n.ev.numDocs)-df+0.5)/(df+0.5)))

	if count := idx.DocCount(list.Field); count > 0 {
		n.avgLen = float64(idx.SumOfFieldLengths(list.Field)) / float64(count)
	}
	if collectionLen := idx.SumOfFieldLengths(list.Field); collectionLen > 0 {
		n.mle = float64(list.CTF) / float64(collectionLen)
	}
}

// field returns the field a SCORE node's list was built from.
func (n *node) field() string {
	return n.args[0].list.Field
}

// posting returns the posting under an inverted-list node's cursor.
func (n *node) posting() Posting {
	return n.list.Postings[n.cur]
}

// hasMatch reports whether the node is positioned on a matching document.
func (n *node) hasMatch() bool {
	switch {
	case n.isInvList():
		return n.cur < len(n.list.Postings)
	case n.kind == query.KindScore:
		return n.args[0].hasMatch()
	case n.all:
		_, ok := alignAll(n.args)
		return ok
	}
	found := false
	for _, a := range n.args {
		if a.hasMatch() {
			found = true
		}
	}
	return found
}

// match returns the current document. Valid only after hasMatch returned true.
func (n *node) match() int {
	switch {
	case n.isInvList():
		return n.posting().DocID
	case n.kind == query.KindScore, n.all:
		return n.args[0].match()
	}
	doc := math.MaxInt
	for _, a := range n.args {
		if a.hasMatch() {
			doc = min(doc, a.match())
		}
	}
	return doc
}

// matches reports whether n is positioned on doc.
func (n *node) matches(doc int) bool {
	return n.hasMatch() && n.match() == doc
}

// advancePast moves every cursor strictly beyond doc.
func (n *node) advancePast(doc int) {
	if n.isInvList() {
		for n.cur < len(n.list.Postings) && n.list.Postings[n.cur].DocID <= doc {
			n.cur++
		}
		return
	}
	for _, a := range n.args {
		a.advancePast(doc)
	}
}

// advanceTo moves every cursor to the first document >= doc.
func (n *node) advanceTo(doc int) {
	if n.isInvList() {
		for n.cur < len(n.list.Postings) && n.list.Postings[n.cur].DocID < doc {
			n.cur++
		}
		return
	}
	for _, a := range n.args {
		a.advanceTo(doc)
	}
}

// alignAll advances args until all sit on the same document.
func alignAll(args []*node) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	for {
		target := -1
		for _, a := range args {
			if !a.hasMatch() {
				return 0, false
			}
			target = max(target, a.match())
		}
		aligned := true
		for _, a := range args {
			if a.match() != target {
				a.advanceTo(target)
				aligned = false
			}
		}
		if aligned {
			return target, true
		}
	}
}
