package segment

import (
	"slices"

	"github.com/RoaringBitmap/roaring"

	"harshagw/qryeval/internal/analysis"
)

// IDField indexes each document's external id so a segment can map ids back to docNums.
const IDField = "_id"

// FieldStats summarises one field over the live documents of a segment.
type FieldStats struct {
	DocCount    uint64 // documents with at least one token in the field
	TotalTokens uint64
}

// Builder accumulates documents in memory until they are written as a segment.
// DocNums are assigned in insertion order and never reused.
type Builder struct {
	fields   map[string]map[string][]Posting // field -> term -> postings
	lengths  map[string][]uint64             // field -> docNum -> token count
	docs     []map[string]any
	docIDs   []string
	live     map[string]uint64 // external id -> docNum of its live copy
	deleted  *roaring.Bitmap
	analyzer analysis.Analyzer
}

func NewBuilder(analyzer analysis.Analyzer) *Builder {
	return &Builder{
		fields:   make(map[string]map[string][]Posting),
		lengths:  make(map[string][]uint64),
		live:     make(map[string]uint64),
		deleted:  roaring.New(),
		analyzer: analyzer,
	}
}

// Add analyzes every string field of doc and returns its docNum. A live
// document with the same external id is deleted first.
func (b *Builder) Add(externalID string, doc map[string]any) uint64 {
	b.Delete(externalID)

	docNum := uint64(len(b.docs))
	b.docs = append(b.docs, doc)
	b.docIDs = append(b.docIDs, externalID)
	b.live[externalID] = docNum

	for field, value := range doc {
		text, ok := value.(string)
		if !ok || field == IDField {
			continue
		}
		tokens := b.analyzer.Analyze(text)

		lengths := b.lengths[field]
		for uint64(len(lengths)) <= docNum {
			lengths = append(lengths, 0)
		}
		lengths[docNum] = uint64(len(tokens))
		b.lengths[field] = lengths

		if len(tokens) == 0 {
			continue
		}
		terms := b.fields[field]
		if terms == nil {
			terms = make(map[string][]Posting)
			b.fields[field] = terms
		}
		positions := make(map[string][]uint64)
		for _, tp := range tokens {
			positions[tp.Token] = append(positions[tp.Token], tp.Position)
		}
		for term, pos := range positions {
			terms[term] = append(terms[term], Posting{DocNum: docNum, Positions: pos})
		}
	}
	return docNum
}

// Delete marks the live copy of externalID deleted and reports whether there was one.
func (b *Builder) Delete(externalID string) bool {
	docNum, ok := b.live[externalID]
	if !ok {
		return false
	}
	delete(b.live, externalID)
	b.deleted.Add(uint32(docNum))
	return true
}

func (b *Builder) IsDeleted(docNum uint64) bool {
	return b.deleted.Contains(uint32(docNum))
}

// Deleted returns the deleted docNums. Callers must not modify it.
func (b *Builder) Deleted() *roaring.Bitmap { return b.deleted }

// NumDocs returns the number of live documents.
func (b *Builder) NumDocs() uint64 { return uint64(len(b.live)) }

// TotalDocs returns the number of docNums assigned, deleted ones included.
func (b *Builder) TotalDocs() uint64 { return uint64(len(b.docs)) }

// DocIDs returns external ids by docNum.
func (b *Builder) DocIDs() []string { return b.docIDs }

func (b *Builder) ExternalID(docNum uint64) (string, bool) {
	if docNum >= uint64(len(b.docIDs)) {
		return "", false
	}
	return b.docIDs[docNum], true
}

// DocNum returns the docNum of the live copy of externalID.
func (b *Builder) DocNum(externalID string) (uint64, bool) {
	docNum, ok := b.live[externalID]
	return docNum, ok
}

// Doc returns the stored fields of a document.
func (b *Builder) Doc(docNum uint64) (map[string]any, bool) {
	if docNum >= uint64(len(b.docs)) {
		return nil, false
	}
	return b.docs[docNum], true
}

func (b *Builder) FieldLength(field string, docNum uint64) uint64 {
	if lengths, ok := b.lengths[field]; ok && docNum < uint64(len(lengths)) {
		return lengths[docNum]
	}
	return 0
}

// FieldStats sums a field's lengths over live documents.
func (b *Builder) FieldStats(field string) FieldStats {
	var fs FieldStats
	for docNum, l := range b.lengths[field] {
		if l > 0 && !b.IsDeleted(uint64(docNum)) {
			fs.TotalTokens += l
			fs.DocCount++
		}
	}
	return fs
}

// Postings returns the live postings of term in field, ascending by docNum.
func (b *Builder) Postings(term, field string) []Posting {
	all := b.fields[field][term]
	out := make([]Posting, 0, len(all))
	for _, p := range all {
		if !b.IsDeleted(p.DocNum) {
			out = append(out, p)
		}
	}
	return out
}

// Fields returns the indexed field names in sorted order.
func (b *Builder) Fields() []string {
	names := make([]string, 0, len(b.fields))
	for name := range b.fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
