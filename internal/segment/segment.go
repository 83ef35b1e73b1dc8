package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/couchbase/vellum"
	"github.com/edsrzf/mmap-go"
	"github.com/golang/snappy"
)

const headerSize = len(SegmentMagic) + 4 + 8

// Segment is an immutable, memory-mapped segment file.
type Segment struct {
	id     string
	path   string
	file   *os.File
	data   mmap.MMap
	footer Footer

	fieldMetaByName map[string]*FieldMeta

	fsts   map[string]*vellum.FST
	fstsMu sync.RWMutex
}

// Open maps the segment file at path.
func Open(path, segmentID string) (*Segment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if stat.Size() < int64(headerSize+16) {
		file.Close()
		return nil, fmt.Errorf("segment file too small: %s", path)
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap segment %s: %w", path, err)
	}

	fail := func(format string, args ...any) (*Segment, error) {
		data.Unmap()
		file.Close()
		return nil, fmt.Errorf(format, args...)
	}

	if string(data[:len(SegmentMagic)]) != SegmentMagic {
		return fail("invalid segment magic: %s", path)
	}
	if v := binary.BigEndian.Uint32(data[len(SegmentMagic):]); v != SegmentVersion {
		return fail("segment %s has version %d, want %d", path, v, SegmentVersion)
	}

	size := uint64(len(data))
	footerOffset := binary.BigEndian.Uint64(data[size-16 : size-8])
	footerSize := binary.BigEndian.Uint64(data[size-8:])
	if footerOffset+footerSize > size-16 {
		return fail("segment %s has a truncated footer", path)
	}

	var footer Footer
	if err := json.Unmarshal(data[footerOffset:footerOffset+footerSize], &footer); err != nil {
		return fail("failed to parse segment footer: %w", err)
	}
	if uint64(len(footer.DocIDs)) != footer.NumDocs {
		return fail("segment %s lists %d ids for %d documents", path, len(footer.DocIDs), footer.NumDocs)
	}

	fieldMetaByName := make(map[string]*FieldMeta, len(footer.FieldsMeta))
	for i := range footer.FieldsMeta {
		fieldMetaByName[footer.FieldsMeta[i].Name] = &footer.FieldsMeta[i]
	}

	return &Segment{
		id:              segmentID,
		path:            path,
		file:            file,
		data:            data,
		footer:          footer,
		fieldMetaByName: fieldMetaByName,
		fsts:            make(map[string]*vellum.FST),
	}, nil
}

func (s *Segment) ID() string { return s.id }

func (s *Segment) Path() string { return s.path }

// NumDocs returns the number of docNums in the segment, deleted ones included.
func (s *Segment) NumDocs() uint64 { return s.footer.NumDocs }

func (s *Segment) ExternalID(docNum uint64) (string, bool) {
	if docNum >= s.footer.NumDocs {
		return "", false
	}
	return s.footer.DocIDs[docNum], true
}

// DocNumbers returns the docNums of the given external ids that occur in the segment.
func (s *Segment) DocNumbers(externalIDs []string) *roaring.Bitmap {
	bm := roaring.New()

	fst, err := s.getFST(IDField)
	if err != nil {
		return bm
	}
	for _, id := range externalIDs {
		val, exists, err := fst.Get([]byte(id))
		if err != nil || !exists || !IsOneHit(val) {
			continue
		}
		bm.Add(uint32(DecodeOneHit(val)))
	}
	return bm
}

// Fields returns the indexed field names, excluding the id field.
func (s *Segment) Fields() []string {
	fields := make([]string, 0, len(s.footer.FieldsMeta))
	for _, fm := range s.footer.FieldsMeta {
		if fm.Name != IDField {
			fields = append(fields, fm.Name)
		}
	}
	return fields
}

func (s *Segment) FieldLength(field string, docNum uint64) uint64 {
	if lengths, ok := s.footer.FieldLengths[field]; ok && docNum < uint64(len(lengths)) {
		return lengths[docNum]
	}
	return 0
}

// FieldStats returns a field's statistics excluding the deleted docNums.
func (s *Segment) FieldStats(field string, deleted *roaring.Bitmap) FieldStats {
	meta, ok := s.fieldMetaByName[field]
	if !ok {
		return FieldStats{}
	}
	fs := FieldStats{DocCount: meta.DocCount, TotalTokens: meta.TotalTokens}
	if deleted == nil {
		return fs
	}
	it := deleted.Iterator()
	for it.HasNext() {
		if l := s.FieldLength(field, uint64(it.Next())); l > 0 {
			fs.TotalTokens -= l
			fs.DocCount--
		}
	}
	return fs
}

// LoadDoc decompresses the chunk holding docNum and returns its stored fields.
func (s *Segment) LoadDoc(docNum uint64) (map[string]any, error) {
	if docNum >= s.footer.NumDocs {
		return nil, fmt.Errorf("docNum %d out of range", docNum)
	}

	chunkIdx := docNum / ChunkSize
	if chunkIdx >= uint64(len(s.footer.ChunkOffsets)) {
		return nil, fmt.Errorf("chunk %d out of range", chunkIdx)
	}
	offset := s.footer.ChunkOffsets[chunkIdx]
	chunkLen := uint64(binary.BigEndian.Uint32(s.data[offset:]))
	compressed := s.data[offset+4 : offset+4+chunkLen]

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress chunk: %w", err)
	}
	var chunk []map[string]any
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, fmt.Errorf("failed to parse chunk: %w", err)
	}

	i := docNum % ChunkSize
	if i >= uint64(len(chunk)) {
		return nil, fmt.Errorf("docNum %d missing from chunk %d", docNum, chunkIdx)
	}
	return chunk[i], nil
}

func (s *Segment) Close() error {
	s.fstsMu.Lock()
	defer s.fstsMu.Unlock()

	for _, fst := range s.fsts {
		fst.Close()
	}
	s.fsts = nil

	if s.data != nil {
		s.data.Unmap()
		s.data = nil
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
