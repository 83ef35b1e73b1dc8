package segment

import (
	"encoding/binary"
	"fmt"
)

// Segment file layout.
const (
	SegmentMagic   = "QEV\x00"
	SegmentVersion = uint32(2)
	ChunkSize      = 256 // stored documents per compressed chunk
)

// OneHitFlag marks a dictionary value that holds a docNum instead of a postings offset.
// Only the _id field is written this way, since it never needs positions.
const OneHitFlag = uint64(1 << 63)

func IsOneHit(val uint64) bool {
	return val&OneHitFlag != 0
}

func EncodeOneHit(docNum uint64) uint64 {
	return OneHitFlag | docNum
}

func DecodeOneHit(val uint64) uint64 {
	return val &^ OneHitFlag
}

// Posting is one document's occurrences of a term. Positions are ascending
// token offsets; the term frequency is len(Positions).
type Posting struct {
	DocNum    uint64
	Positions []uint64
}

// TF returns the term frequency.
func (p Posting) TF() int { return len(p.Positions) }

// Footer is the JSON trailer of a segment file.
type Footer struct {
	ChunkOffsets []uint64            `json:"chunks"`
	FieldsMeta   []FieldMeta         `json:"fields"`
	DocIDs       []string            `json:"doc_ids"`
	NumDocs      uint64              `json:"num_docs"`
	FieldLengths map[string][]uint64 `json:"field_lengths,omitempty"`
}

// FieldMeta locates a field's dictionary and postings. TotalTokens and
// DocCount cover every document written, deleted or not.
type FieldMeta struct {
	Name           string `json:"name"`
	DictOffset     uint64 `json:"dict_offset"`
	PostingsOffset uint64 `json:"postings_offset"`
	PostingsSize   uint64 `json:"postings_size"`
	NumTerms       uint64 `json:"num_terms"`
	TotalTokens    uint64 `json:"total_tokens,omitempty"`
	DocCount       uint64 `json:"doc_count,omitempty"`
}

// EncodePostings writes the posting count, docNum deltas, then each
// posting's position count and position deltas.
func EncodePostings(postings []Posting) []byte {
	buf := make([]byte, 0, len(postings)*16)
	buf = binary.AppendUvarint(buf, uint64(len(postings)))

	var prev uint64
	for _, p := range postings {
		buf = binary.AppendUvarint(buf, p.DocNum-prev)
		prev = p.DocNum
	}

	for _, p := range postings {
		buf = binary.AppendUvarint(buf, uint64(len(p.Positions)))
		var prevPos uint64
		for _, pos := range p.Positions {
			buf = binary.AppendUvarint(buf, pos-prevPos)
			prevPos = pos
		}
	}
	return buf
}

// DecodePostings reads a list written by EncodePostings.
func DecodePostings(data []byte) ([]Posting, error) {
	r := newByteReader(data)

	count, err := r.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("posting count: %w", err)
	}
	if count > uint64(len(data)) {
		return nil, fmt.Errorf("posting count %d exceeds encoded size %d", count, len(data))
	}

	postings := make([]Posting, count)
	var prev uint64
	for i := range postings {
		delta, err := r.ReadUvarint()
		if err != nil {
			return nil, fmt.Errorf("docNum %d: %w", i, err)
		}
		postings[i].DocNum = prev + delta
		prev = postings[i].DocNum
	}

	for i := range postings {
		n, err := r.ReadUvarint()
		if err != nil {
			return nil, fmt.Errorf("position count %d: %w", i, err)
		}
		positions := make([]uint64, n)
		var prevPos uint64
		for j := range positions {
			delta, err := r.ReadUvarint()
			if err != nil {
				return nil, fmt.Errorf("position %d of posting %d: %w", j, i, err)
			}
			positions[j] = prevPos + delta
			prevPos = positions[j]
		}
		postings[i].Positions = positions
	}
	return postings, nil
}
