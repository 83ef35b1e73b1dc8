package segment

import (
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/couchbase/vellum"
)

// getFST returns a field's dictionary, loading it on first use.
func (s *Segment) getFST(field string) (*vellum.FST, error) {
	s.fstsMu.RLock()
	fst, ok := s.fsts[field]
	s.fstsMu.RUnlock()
	if ok {
		return fst, nil
	}

	s.fstsMu.Lock()
	defer s.fstsMu.Unlock()

	if fst, ok := s.fsts[field]; ok {
		return fst, nil
	}
	if s.fsts == nil {
		return nil, fmt.Errorf("segment %s is closed", s.id)
	}

	meta := s.fieldMetaByName[field]
	if meta == nil {
		return nil, fmt.Errorf("field not found: %s", field)
	}

	size := binary.BigEndian.Uint64(s.data[meta.DictOffset:])
	start := meta.DictOffset + 8
	fst, err := vellum.Load(s.data[start : start+size])
	if err != nil {
		return nil, fmt.Errorf("failed to load FST for field %s: %w", field, err)
	}
	s.fsts[field] = fst
	return fst, nil
}

// HasField reports whether the segment indexed field.
func (s *Segment) HasField(field string) bool {
	_, ok := s.fieldMetaByName[field]
	return ok
}

// Postings returns the postings of term in field, skipping deleted docNums.
// A field the segment never indexed has no postings.
func (s *Segment) Postings(term, field string, deleted *roaring.Bitmap) ([]Posting, error) {
	if field == IDField {
		return nil, fmt.Errorf("field %s has no postings", IDField)
	}
	if !s.HasField(field) {
		return nil, nil
	}
	fst, err := s.getFST(field)
	if err != nil {
		return nil, err
	}

	val, exists, err := fst.Get([]byte(term))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	meta := s.fieldMetaByName[field]
	if val >= meta.PostingsSize {
		return nil, fmt.Errorf("postings offset %d for %s:%s out of range", val, field, term)
	}
	start := meta.PostingsOffset + val
	postings, err := DecodePostings(s.data[start : meta.PostingsOffset+meta.PostingsSize])
	if err != nil {
		return nil, fmt.Errorf("decoding postings for %s:%s: %w", field, term, err)
	}

	if deleted == nil || deleted.IsEmpty() {
		return postings, nil
	}
	live := postings[:0]
	for _, p := range postings {
		if !deleted.Contains(uint32(p.DocNum)) {
			live = append(live, p)
		}
	}
	return live, nil
}

// Terms returns the terms of field that start with prefix, in sorted order.
func (s *Segment) Terms(field, prefix string) ([]string, error) {
	fst, err := s.getFST(field)
	if err != nil {
		return nil, err
	}

	start := []byte(prefix)
	iter, err := fst.Iterator(start, prefixSuccessor(start))
	var terms []string
	for err == nil {
		key, _ := iter.Current()
		terms = append(terms, string(key))
		err = iter.Next()
	}
	if err != vellum.ErrIteratorDone {
		return nil, fmt.Errorf("iterating terms of %s: %w", field, err)
	}
	return terms, nil
}
