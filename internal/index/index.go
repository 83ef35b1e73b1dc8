package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RoaringBitmap/roaring"
	log "github.com/cihub/seelog"

	"harshagw/qryeval/internal/analysis"
	"harshagw/qryeval/internal/errs"
	"harshagw/qryeval/internal/segment"
	"harshagw/qryeval/internal/store"
)

// Index is a segmented positional index stored in one directory.
// Documents are buffered in a builder and written as immutable segments on flush.
type Index struct {
	mu sync.RWMutex

	dir              string
	meta             *store.Metadata
	segments         []*segment.Segment
	builder          *segment.Builder
	epoch            uint64
	pendingDeletions map[string]*roaring.Bitmap
	// removed holds ids deleted since the last flush.
	removed map[string]struct{}

	analyzer       analysis.Analyzer
	analyzerName   string
	flushThreshold int

	closed bool
}

type Config struct {
	Dir            string
	FlushThreshold int
	// Analyzer names the document analyzer. Empty means the one the index was
	// created with, or English for a new index.
	Analyzer string
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		FlushThreshold: 1000,
	}
}

// Open creates or opens the index at config.Dir.
func Open(config Config) (*Index, error) {
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	meta, err := store.NewMetadata(config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	name, err := resolveAnalyzer(meta, config.Analyzer)
	if err != nil {
		meta.Close()
		return nil, err
	}
	analyzer, err := analysis.ByName(name)
	if err != nil {
		meta.Close()
		return nil, err
	}

	threshold := config.FlushThreshold
	if threshold <= 0 {
		threshold = DefaultConfig(config.Dir).FlushThreshold
	}

	idx := &Index{
		dir:              config.Dir,
		meta:             meta,
		pendingDeletions: make(map[string]*roaring.Bitmap),
		removed:          make(map[string]struct{}),
		analyzer:         analyzer,
		analyzerName:     name,
		flushThreshold:   threshold,
	}
	idx.builder = segment.NewBuilder(idx.analyzer)

	if err := idx.loadSegments(); err != nil {
		idx.closeSegments()
		meta.Close()
		return nil, fmt.Errorf("failed to load segments: %w", err)
	}
	if idx.epoch, err = meta.GetEpoch(); err != nil {
		idx.closeSegments()
		meta.Close()
		return nil, err
	}

	log.Debugf("opened index %s: %d segments, analyzer %s, epoch %d", idx.dir, len(idx.segments), name, idx.epoch)
	return idx, nil
}

// resolveAnalyzer reconciles the requested analyzer with the one recorded in meta.
func resolveAnalyzer(meta *store.Metadata, requested string) (string, error) {
	stored, err := meta.Analyzer()
	if err != nil {
		return "", err
	}
	switch {
	case stored == "" && requested == "":
		requested = analysis.NameEnglish
	case stored == "":
	case requested == "" || requested == stored:
		return stored, nil
	default:
		return "", errs.Configf("index was built with analyzer %q, not %q", stored, requested)
	}
	if _, err := analysis.ByName(requested); err != nil {
		return "", err
	}
	return requested, meta.Update(func(tx *store.Tx) error {
		return tx.SetAnalyzer(requested)
	})
}

func (idx *Index) loadSegments() error {
	segmentIDs, err := idx.meta.GetSegments()
	if err != nil {
		return err
	}
	for _, segID := range segmentIDs {
		seg, err := segment.Open(idx.segmentPath(segID), segID)
		if err != nil {
			return fmt.Errorf("failed to open segment %s: %w", segID, err)
		}
		idx.segments = append(idx.segments, seg)
	}
	return nil
}

func (idx *Index) segmentPath(segID string) string {
	return filepath.Join(idx.dir, segID+".seg")
}

// Analyzer returns the document analyzer; queries must be analyzed the same way.
func (idx *Index) Analyzer() analysis.Analyzer { return idx.analyzer }

// AnalyzerName returns the name under which the analyzer is recorded.
func (idx *Index) AnalyzerName() string { return idx.analyzerName }

// Index adds or replaces a document. String fields are analyzed and stored;
// other values are stored only.
func (idx *Index) Index(docID string, doc map[string]any) error {
	if docID == "" {
		return errs.Dataf("document id must not be empty")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("index is closed")
	}

	idx.markObsoletes([]string{docID})
	idx.builder.Add(docID, doc)
	delete(idx.removed, docID)

	if idx.builder.NumDocs() >= uint64(idx.flushThreshold) {
		return idx.flushInternal()
	}
	return nil
}

// Delete removes a document if present.
func (idx *Index) Delete(docID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("index is closed")
	}

	idx.builder.Delete(docID)
	idx.markObsoletes([]string{docID})
	idx.removed[docID] = struct{}{}
	return nil
}

// markObsoletes records deletions for copies of docIDs in persisted segments.
func (idx *Index) markObsoletes(docIDs []string) {
	for _, seg := range idx.segments {
		obsoletes := seg.DocNumbers(docIDs)
		if obsoletes.IsEmpty() {
			continue
		}
		segID := seg.ID()
		if idx.pendingDeletions[segID] == nil {
			idx.pendingDeletions[segID] = roaring.New()
		}
		idx.pendingDeletions[segID].Or(obsoletes)
	}
}
