package search

// Posting is one document's positions for a term or derived list.
// Positions are strictly ascending.
type Posting struct {
	DocID     int
	Positions []int
}

// TF returns the term frequency in the document.
func (p Posting) TF() int {
	return len(p.Positions)
}

// InvList is an inverted list ordered by ascending document id.
type InvList struct {
	Term     string
	Field    string
	DF       int
	CTF      int64
	Postings []Posting
}

// NewInvList builds a list and derives its document and collection frequencies.
func NewInvList(term, field string, postings []Posting) *InvList {
	l := &InvList{Term: term, Field: field, Postings: postings}
	l.DF = len(postings)
	for _, p := range postings {
		l.CTF += int64(p.TF())
	}
	return l
}

// TermStat is one stem of a document's term vector.
type TermStat struct {
	Stem string
	TF   int
	CTF  int64
}

// TermVector lists the stems of one document field.
type TermVector struct {
	DocID int
	Field string
	Terms []TermStat
}

// Index is the read-only collection view the evaluator runs against.
// Implementations must be safe for concurrent readers.
type Index interface {
	NumDocs() int
	DocCount(field string) int
	FieldLength(field string, doc int) int
	SumOfFieldLengths(field string) int64
	Postings(term, field string) (*InvList, error)
	TermVector(doc int, field string) (*TermVector, error)
	InternalID(externalID string) (int, error)
	ExternalID(doc int) (string, error)
}
