package index

import (
	"fmt"
	"os"
	"slices"

	"github.com/RoaringBitmap/roaring"
	log "github.com/cihub/seelog"

	"harshagw/qryeval/internal/segment"
	"harshagw/qryeval/internal/store"
)

func (idx *Index) getDeletions(segID string) (*roaring.Bitmap, error) {
	persisted, err := idx.meta.GetDeletions(segID)
	if err != nil {
		return nil, err
	}
	if pending := idx.pendingDeletions[segID]; pending != nil {
		persisted.Or(pending)
	}
	return persisted, nil
}

// Flush writes buffered documents as a new segment and persists pending deletions.
func (idx *Index) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("index is closed")
	}
	return idx.flushInternal()
}

func (idx *Index) flushInternal() error {
	hasDocs := idx.builder.NumDocs() > 0
	if !hasDocs && len(idx.pendingDeletions) == 0 && len(idx.removed) == 0 {
		return nil
	}

	var segmentID, segPath string
	if hasDocs {
		segmentID = fmt.Sprintf("%012d", idx.epoch+1)
		var err error
		if segPath, err = idx.builder.Build(idx.dir, segmentID); err != nil {
			return err
		}
	}

	var epoch uint64
	err := idx.meta.Update(func(tx *store.Tx) error {
		var err error
		if epoch, err = tx.IncrementEpoch(); err != nil {
			return err
		}
		if err := idx.persistDeletions(tx); err != nil {
			return err
		}
		for id := range idx.removed {
			if err := tx.DeleteDocMapping(id); err != nil {
				return err
			}
		}
		if !hasDocs {
			return nil
		}

		if deleted := idx.builder.Deleted(); !deleted.IsEmpty() {
			if err := tx.SetDeletions(segmentID, deleted); err != nil {
				return err
			}
		}
		for docNum, id := range idx.builder.DocIDs() {
			if idx.builder.IsDeleted(uint64(docNum)) {
				continue
			}
			if err := tx.SetDocMapping(id, segmentID, uint64(docNum)); err != nil {
				return err
			}
		}
		segIDs, err := tx.GetSegments()
		if err != nil {
			return err
		}
		return tx.SetSegments(append(segIDs, segmentID))
	})
	if err != nil {
		if segPath != "" {
			os.Remove(segPath)
		}
		return err
	}

	if hasDocs {
		seg, err := segment.Open(segPath, segmentID)
		if err != nil {
			return err
		}
		idx.segments = append(idx.segments, seg)
		log.Debugf("flushed segment %s with %d documents", segmentID, idx.builder.NumDocs())
	}
	idx.epoch = epoch
	idx.pendingDeletions = make(map[string]*roaring.Bitmap)
	idx.removed = make(map[string]struct{})
	idx.builder = segment.NewBuilder(idx.analyzer)
	return nil
}

func (idx *Index) persistDeletions(tx *store.Tx) error {
	for segID, pending := range idx.pendingDeletions {
		if pending == nil || pending.IsEmpty() {
			continue
		}
		existing, err := tx.GetDeletions(segID)
		if err != nil {
			return err
		}
		existing.Or(pending)
		if err := tx.SetDeletions(segID, existing); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a point-in-time view for evaluation. Documents added to
// the builder after the snapshot is taken are not visible through it.
func (idx *Index) Snapshot() (*Snapshot, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, fmt.Errorf("index is closed")
	}

	snap := &Snapshot{
		segments: make([]*SegmentSnapshot, len(idx.segments)),
		analyzer: idx.analyzer,
		meta:     idx.meta,
		epoch:    idx.epoch,
	}
	var base uint64
	for i, seg := range idx.segments {
		deleted, err := idx.getDeletions(seg.ID())
		if err != nil {
			return nil, err
		}
		snap.segments[i] = &SegmentSnapshot{seg: seg, deleted: deleted, base: base}
		snap.numDocs += int(seg.NumDocs() - deleted.GetCardinality())
		base += seg.NumDocs()
	}

	snap.builder = idx.builder
	snap.builderBase = base
	snap.builderDocs = idx.builder.TotalDocs()
	snap.builderDeleted = idx.builder.Deleted().Clone()
	snap.numDocs += int(idx.builder.NumDocs())
	return snap, nil
}

func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true
	idx.pendingDeletions = nil
	idx.builder = nil
	idx.closeSegments()
	if idx.meta != nil {
		return idx.meta.Close()
	}
	return nil
}

func (idx *Index) closeSegments() {
	for _, seg := range idx.segments {
		seg.Close()
	}
	idx.segments = nil
}

// NumSegments returns the number of persisted segments.
func (idx *Index) NumSegments() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.segments)
}

// SegmentInfo describes a persisted segment.
type SegmentInfo struct {
	ID         string
	Path       string
	NumDocs    uint64
	NumDeleted uint64
	Fields     []string
}

// Segments describes every persisted segment, pending deletions included.
func (idx *Index) Segments() ([]SegmentInfo, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	info := make([]SegmentInfo, len(idx.segments))
	for i, seg := range idx.segments {
		deleted, err := idx.getDeletions(seg.ID())
		if err != nil {
			return nil, err
		}
		info[i] = SegmentInfo{
			ID:         seg.ID(),
			Path:       seg.Path(),
			NumDocs:    seg.NumDocs(),
			NumDeleted: deleted.GetCardinality(),
			Fields:     seg.Fields(),
		}
	}
	return info, nil
}

// LoadDoc loads a document from a segment by docNum.
func (idx *Index) LoadDoc(segID string, docNum uint64) (map[string]any, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, seg := range idx.segments {
		if seg.ID() == segID {
			return seg.LoadDoc(docNum)
		}
	}
	return nil, fmt.Errorf("segment not found: %s", segID)
}

type PostingEntry struct {
	SegmentID string
	DocNum    uint64
	Positions []uint64
}

// DumpPostings returns the raw postings of field:term in every segment, deleted documents included.
func (idx *Index) DumpPostings(field, term string) ([]PostingEntry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var results []PostingEntry
	for _, seg := range idx.segments {
		postings, err := seg.Postings(term, field, nil)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", seg.ID(), err)
		}
		for _, p := range postings {
			results = append(results, PostingEntry{SegmentID: seg.ID(), DocNum: p.DocNum, Positions: p.Positions})
		}
	}
	return results, nil
}

// DumpDeletions returns the deleted docNums of a segment.
func (idx *Index) DumpDeletions(segID string) ([]uint32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	deleted, err := idx.getDeletions(segID)
	if err != nil {
		return nil, err
	}
	return deleted.ToArray(), nil
}

// ForceMerge merges all segments into one.
func (idx *Index) ForceMerge() error {
	idx.mu.RLock()
	segmentIDs := make([]string, len(idx.segments))
	for i, seg := range idx.segments {
		segmentIDs[i] = seg.ID()
	}
	idx.mu.RUnlock()

	if len(segmentIDs) < 2 {
		return nil
	}
	return idx.Merge(segmentIDs)
}

// Terms returns the distinct terms of field starting with prefix across all
// persisted segments, in sorted order.
func (idx *Index) Terms(field, prefix string) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var terms []string
	for _, seg := range idx.segments {
		if !seg.HasField(field) {
			continue
		}
		segTerms, err := seg.Terms(field, prefix)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", seg.ID(), err)
		}
		terms = append(terms, segTerms...)
	}
	slices.Sort(terms)
	return slices.Compact(terms), nil
}
