package index

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring"

	"harshagw/qryeval/internal/analysis"
	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/search"
	"harshagw/qryeval/internal/segment"
	"harshagw/qryeval/internal/store"
)

// SegmentSnapshot is a segment with the deletions visible to one snapshot.
// Its documents occupy internal ids base .. base+NumDocs-1.
type SegmentSnapshot struct {
	seg     *segment.Segment
	deleted *roaring.Bitmap
	base    uint64
}

func (s *SegmentSnapshot) ID() string { return s.seg.ID() }

// Snapshot is a read-only view of the index that implements search.Index.
// Internal ids number the segments' docNums in segment order followed by the
// builder's, so postings gathered segment by segment stay ascending.
// It shares the live builder with the index: concurrent evaluation is safe,
// indexing while a snapshot is being read is not.
type Snapshot struct {
	segments       []*SegmentSnapshot
	builder        *segment.Builder
	builderBase    uint64
	builderDocs    uint64
	builderDeleted *roaring.Bitmap
	numDocs        int

	analyzer analysis.Analyzer
	meta     *store.Metadata
	epoch    uint64
}

var _ search.Index = (*Snapshot)(nil)

func (s *Snapshot) Analyzer() analysis.Analyzer { return s.analyzer }

// Epoch returns the index epoch the snapshot was taken at.
func (s *Snapshot) Epoch() uint64 { return s.epoch }

// NumDocs returns the number of live documents.
func (s *Snapshot) NumDocs() int { return s.numDocs }

// location resolves an internal id; seg is nil for builder documents.
type location struct {
	seg    *SegmentSnapshot
	docNum uint64
}

func (s *Snapshot) locate(doc int) (location, bool) {
	if doc < 0 {
		return location{}, false
	}
	id := uint64(doc)
	if id >= s.builderBase {
		docNum := id - s.builderBase
		if docNum >= s.builderDocs || s.builderDeleted.Contains(uint32(docNum)) {
			return location{}, false
		}
		return location{docNum: docNum}, true
	}
	i, found := slices.BinarySearchFunc(s.segments, id, func(ss *SegmentSnapshot, id uint64) int {
		switch {
		case ss.base > id:
			return 1
		case ss.base+ss.seg.NumDocs() <= id:
			return -1
		}
		return 0
	})
	if !found {
		return location{}, false
	}
	ss := s.segments[i]
	docNum := id - ss.base
	if ss.deleted.Contains(uint32(docNum)) {
		return location{}, false
	}
	return location{seg: ss, docNum: docNum}, true
}

func (s *Snapshot) DocCount(field string) int {
	var n uint64
	for _, ss := range s.segments {
		n += ss.seg.FieldStats(field, ss.deleted).DocCount
	}
	return int(n + s.builderStats(field).DocCount)
}

func (s *Snapshot) SumOfFieldLengths(field string) int64 {
	var n uint64
	for _, ss := range s.segments {
		n += ss.seg.FieldStats(field, ss.deleted).TotalTokens
	}
	return int64(n + s.builderStats(field).TotalTokens)
}

func (s *Snapshot) builderStats(field string) segment.FieldStats {
	var fs segment.FieldStats
	for docNum := uint64(0); docNum < s.builderDocs; docNum++ {
		if s.builderDeleted.Contains(uint32(docNum)) {
			continue
		}
		if l := s.builder.FieldLength(field, docNum); l > 0 {
			fs.TotalTokens += l
			fs.DocCount++
		}
	}
	return fs
}

// FieldLength returns 0 for deleted or unknown documents.
func (s *Snapshot) FieldLength(field string, doc int) int {
	loc, ok := s.locate(doc)
	if !ok {
		return 0
	}
	if loc.seg == nil {
		return int(s.builder.FieldLength(field, loc.docNum))
	}
	return int(loc.seg.seg.FieldLength(field, loc.docNum))
}

// Postings gathers the live postings of an analyzed term across segments and the builder.
func (s *Snapshot) Postings(term, field string) (*search.InvList, error) {
	var postings []search.Posting
	for _, ss := range s.segments {
		segPostings, err := ss.seg.Postings(term, field, ss.deleted)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", ss.ID(), err)
		}
		postings = appendPostings(postings, segPostings, ss.base, nil)
	}
	if s.builderDocs > 0 {
		postings = appendPostings(postings, s.builder.Postings(term, field), s.builderBase, func(docNum uint64) bool {
			return docNum < s.builderDocs && !s.builderDeleted.Contains(uint32(docNum))
		})
	}
	return search.NewInvList(term, field, postings), nil
}

func appendPostings(dst []search.Posting, src []segment.Posting, base uint64, keep func(uint64) bool) []search.Posting {
	for _, p := range src {
		if keep != nil && !keep(p.DocNum) {
			continue
		}
		positions := make([]int, len(p.Positions))
		for i, pos := range p.Positions {
			positions[i] = int(pos)
		}
		dst = append(dst, search.Posting{DocID: int(base + p.DocNum), Positions: positions})
	}
	return dst
}

// LoadDoc returns the stored fields of a live document.
func (s *Snapshot) LoadDoc(doc int) (map[string]any, error) {
	loc, ok := s.locate(doc)
	if !ok {
		return nil, errs.Dataf("no live document with internal id %d", doc)
	}
	if loc.seg == nil {
		stored, _ := s.builder.Doc(loc.docNum)
		return stored, nil
	}
	return loc.seg.seg.LoadDoc(loc.docNum)
}

// TermVector re-analyzes the stored field text and looks up each stem's
// collection frequency.
func (s *Snapshot) TermVector(doc int, field string) (*search.TermVector, error) {
	stored, err := s.LoadDoc(doc)
	if err != nil {
		return nil, err
	}
	tv := &search.TermVector{DocID: doc, Field: field}
	text, ok := stored[field].(string)
	if !ok {
		return tv, nil
	}

	tf := make(map[string]int)
	for _, tp := range s.analyzer.Analyze(text) {
		tf[tp.Token]++
	}
	stems := make([]string, 0, len(tf))
	for stem := range tf {
		stems = append(stems, stem)
	}
	slices.Sort(stems)

	tv.Terms = make([]search.TermStat, 0, len(stems))
	for _, stem := range stems {
		list, err := s.Postings(stem, field)
		if err != nil {
			return nil, err
		}
		tv.Terms = append(tv.Terms, search.TermStat{Stem: stem, TF: tf[stem], CTF: list.CTF})
	}
	return tv, nil
}

// InternalID maps an external id to the internal id of its live copy.
func (s *Snapshot) InternalID(externalID string) (int, error) {
	if docNum, ok := s.builder.DocNum(externalID); ok && docNum < s.builderDocs && !s.builderDeleted.Contains(uint32(docNum)) {
		return int(s.builderBase + docNum), nil
	}

	mapping, found, err := s.meta.GetDocMapping(externalID)
	if err != nil {
		return 0, err
	}
	if found {
		for _, ss := range s.segments {
			if ss.ID() == mapping.SegmentID && !ss.deleted.Contains(uint32(mapping.DocNum)) {
				return int(ss.base + mapping.DocNum), nil
			}
		}
	}
	return 0, errs.Dataf("unknown external document id %q", externalID)
}

func (s *Snapshot) ExternalID(doc int) (string, error) {
	loc, ok := s.locate(doc)
	if !ok {
		return "", errs.Dataf("no live document with internal id %d", doc)
	}
	var id string
	if loc.seg == nil {
		id, _ = s.builder.ExternalID(loc.docNum)
	} else {
		id, _ = loc.seg.seg.ExternalID(loc.docNum)
	}
	return id, nil
}
