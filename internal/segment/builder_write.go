package segment

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchbase/vellum"
	"github.com/golang/snappy"
)

// offsetWriter tracks the file offset of a buffered writer.
type offsetWriter struct {
	w   *bufio.Writer
	off uint64
}

func (o *offsetWriter) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	o.off += uint64(n)
	return n, err
}

func (o *offsetWriter) writeUint64(v uint64) error {
	return binary.Write(o, binary.BigEndian, v)
}

// Build writes the builder's documents to dir/<segmentID>.seg and returns the path.
// The file is written under a temporary name and renamed once synced.
func (b *Builder) Build(dir, segmentID string) (string, error) {
	segPath := filepath.Join(dir, segmentID+".seg")
	tmpPath := segPath + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return "", err
	}
	if err := b.writeTo(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing segment %s: %w", segmentID, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, segPath); err != nil {
		return "", err
	}
	return segPath, nil
}

func (b *Builder) writeTo(file *os.File) error {
	w := &offsetWriter{w: bufio.NewWriter(file)}

	if _, err := w.Write([]byte(SegmentMagic)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, SegmentVersion); err != nil {
		return err
	}
	if err := w.writeUint64(b.TotalDocs()); err != nil {
		return err
	}

	chunkOffsets, err := b.writeStoredFields(w)
	if err != nil {
		return err
	}

	var fieldsMeta []FieldMeta
	for _, field := range b.Fields() {
		meta, err := b.writeField(w, field)
		if err != nil {
			return fmt.Errorf("field %s: %w", field, err)
		}
		fieldsMeta = append(fieldsMeta, meta)
	}
	idMeta, err := b.writeIDField(w)
	if err != nil {
		return err
	}
	fieldsMeta = append(fieldsMeta, idMeta)

	footerOffset := w.off
	footer := Footer{
		ChunkOffsets: chunkOffsets,
		FieldsMeta:   fieldsMeta,
		DocIDs:       b.docIDs,
		NumDocs:      b.TotalDocs(),
		FieldLengths: b.lengths,
	}
	footerData, err := json.Marshal(footer)
	if err != nil {
		return err
	}
	if _, err := w.Write(footerData); err != nil {
		return err
	}
	if err := w.writeUint64(footerOffset); err != nil {
		return err
	}
	if err := w.writeUint64(uint64(len(footerData))); err != nil {
		return err
	}
	return w.w.Flush()
}

// writeStoredFields writes documents as length-prefixed snappy chunks of JSON.
func (b *Builder) writeStoredFields(w *offsetWriter) ([]uint64, error) {
	var offsets []uint64
	for start := 0; start < len(b.docs); start += ChunkSize {
		chunk := b.docs[start:min(start+ChunkSize, len(b.docs))]
		raw, err := json.Marshal(chunk)
		if err != nil {
			return nil, err
		}
		compressed := snappy.Encode(nil, raw)

		offsets = append(offsets, w.off)
		if err := binary.Write(w, binary.BigEndian, uint32(len(compressed))); err != nil {
			return nil, err
		}
		if _, err := w.Write(compressed); err != nil {
			return nil, err
		}
	}
	return offsets, nil
}

// writeField writes a field's postings followed by its FST dictionary, which
// maps each term to the offset of its postings relative to PostingsOffset.
func (b *Builder) writeField(w *offsetWriter, field string) (FieldMeta, error) {
	terms := b.fields[field]
	names := make([]string, 0, len(terms))
	for term := range terms {
		names = append(names, term)
	}
	slices.Sort(names)

	stats := b.allFieldStats(field)
	meta := FieldMeta{
		Name:           field,
		PostingsOffset: w.off,
		NumTerms:       uint64(len(names)),
		TotalTokens:    stats.TotalTokens,
		DocCount:       stats.DocCount,
	}

	offsets := make([]uint64, len(names))
	for i, term := range names {
		offsets[i] = w.off - meta.PostingsOffset
		if _, err := w.Write(EncodePostings(terms[term])); err != nil {
			return meta, err
		}
	}
	meta.PostingsSize = w.off - meta.PostingsOffset

	var err error
	meta.DictOffset, err = writeFST(w, names, func(i int) uint64 { return offsets[i] })
	return meta, err
}

// writeIDField writes the external id dictionary with one-hit values.
func (b *Builder) writeIDField(w *offsetWriter) (FieldMeta, error) {
	ids := make([]string, len(b.docIDs))
	copy(ids, b.docIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	// A re-added id keeps only its newest docNum.
	newest := make(map[string]uint64, len(ids))
	for docNum, id := range b.docIDs {
		newest[id] = uint64(docNum)
	}

	meta := FieldMeta{Name: IDField, PostingsOffset: w.off, NumTerms: uint64(len(ids))}
	var err error
	meta.DictOffset, err = writeFST(w, ids, func(i int) uint64 { return EncodeOneHit(newest[ids[i]]) })
	return meta, err
}

// writeFST writes a size-prefixed vellum FST over sorted keys and returns its offset.
func writeFST(w *offsetWriter, keys []string, value func(int) uint64) (uint64, error) {
	var buf bytes.Buffer
	fb, err := vellum.New(&buf, nil)
	if err != nil {
		return 0, err
	}
	for i, key := range keys {
		if err := fb.Insert([]byte(key), value(i)); err != nil {
			return 0, err
		}
	}
	if err := fb.Close(); err != nil {
		return 0, err
	}

	offset := w.off
	if err := w.writeUint64(uint64(buf.Len())); err != nil {
		return 0, err
	}
	_, err = w.Write(buf.Bytes())
	return offset, err
}

// allFieldStats counts every written document, deleted ones included.
func (b *Builder) allFieldStats(field string) FieldStats {
	var fs FieldStats
	for _, l := range b.lengths[field] {
		if l > 0 {
			fs.TotalTokens += l
			fs.DocCount++
		}
	}
	return fs
}
