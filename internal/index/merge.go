package index

import (
	"fmt"
	"os"
	"slices"

	log "github.com/cihub/seelog"

	"harshagw/qryeval/internal/segment"
	"harshagw/qryeval/internal/store"
)

// Merge rewrites the live documents of the given segments into one new segment.
// Internal document ids of a later snapshot change; external ids do not.
// Snapshots taken before the merge must not be used after it.
func (idx *Index) Merge(segmentIDs []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("index is closed")
	}
	if len(segmentIDs) < 2 {
		return fmt.Errorf("need at least 2 segments to merge")
	}

	var merging []*SegmentSnapshot
	for _, seg := range idx.segments {
		if !slices.Contains(segmentIDs, seg.ID()) {
			continue
		}
		deleted, err := idx.getDeletions(seg.ID())
		if err != nil {
			return err
		}
		merging = append(merging, &SegmentSnapshot{seg: seg, deleted: deleted})
	}
	if len(merging) != len(segmentIDs) {
		return fmt.Errorf("some segments not found")
	}

	builder := segment.NewBuilder(idx.analyzer)
	for _, ss := range merging {
		for docNum := uint64(0); docNum < ss.seg.NumDocs(); docNum++ {
			if ss.deleted.Contains(uint32(docNum)) {
				continue
			}
			doc, err := ss.seg.LoadDoc(docNum)
			if err != nil {
				return fmt.Errorf("segment %s doc %d: %w", ss.seg.ID(), docNum, err)
			}
			extID, _ := ss.seg.ExternalID(docNum)
			builder.Add(extID, doc)
		}
	}

	newSegmentID := fmt.Sprintf("%012d", idx.epoch+1)
	segPath, err := builder.Build(idx.dir, newSegmentID)
	if err != nil {
		return err
	}
	newSeg, err := segment.Open(segPath, newSegmentID)
	if err != nil {
		os.Remove(segPath)
		return err
	}

	// The merged segment takes the position of the first merged segment so
	// that surviving segments keep their relative order.
	newSegments := make([]*segment.Segment, 0, len(idx.segments)-len(segmentIDs)+1)
	var removed []*segment.Segment
	for _, seg := range idx.segments {
		if !slices.Contains(segmentIDs, seg.ID()) {
			newSegments = append(newSegments, seg)
			continue
		}
		if len(removed) == 0 {
			newSegments = append(newSegments, newSeg)
		}
		removed = append(removed, seg)
	}

	var epoch uint64
	err = idx.meta.Update(func(tx *store.Tx) error {
		var err error
		if epoch, err = tx.IncrementEpoch(); err != nil {
			return err
		}
		for docNum, externalID := range builder.DocIDs() {
			if err := tx.SetDocMapping(externalID, newSegmentID, uint64(docNum)); err != nil {
				return err
			}
		}
		for _, segID := range segmentIDs {
			if err := tx.DeleteDeletions(segID); err != nil {
				return err
			}
		}
		ids := make([]string, len(newSegments))
		for i, seg := range newSegments {
			ids[i] = seg.ID()
		}
		return tx.SetSegments(ids)
	})
	if err != nil {
		newSeg.Close()
		os.Remove(segPath)
		return err
	}

	idx.segments = newSegments
	idx.epoch = epoch
	for _, seg := range removed {
		delete(idx.pendingDeletions, seg.ID())
		seg.Close()
		os.Remove(seg.Path())
	}
	log.Debugf("merged %d segments into %s with %d documents", len(removed), newSegmentID, builder.NumDocs())
	return nil
}
