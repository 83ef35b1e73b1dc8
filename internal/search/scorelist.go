package search

// ScoreList accumulates (document, score) pairs. Order is insertion order until Sort.
type ScoreList struct {
	docs []ScoredDoc
}

// NewScoreList creates an empty list.
func NewScoreList() *ScoreList {
	return &ScoreList{}
}

func (l *ScoreList) Add(doc int, score float64) {
	l.docs = append(l.docs, ScoredDoc{DocID: doc, Score: score})
}

func (l *ScoreList) Len() int {
	return len(l.docs)
}

// At returns entry i.
func (l *ScoreList) At(i int) ScoredDoc {
	return l.docs[i]
}

// Docs returns the entries. The slice is shared with the list.
func (l *ScoreList) Docs() []ScoredDoc {
	return l.docs
}

// Sort orders by descending score, then ascending document id.
func (l *ScoreList) Sort() {
	sortByScore(l.docs)
}

// Truncate keeps the first k entries.
func (l *ScoreList) Truncate(k int) {
	if k >= 0 && k < len(l.docs) {
		l.docs = l.docs[:k]
	}
}

// Clone returns an independent copy.
func (l *ScoreList) Clone() *ScoreList {
	return &ScoreList{docs: append([]ScoredDoc(nil), l.docs...)}
}
