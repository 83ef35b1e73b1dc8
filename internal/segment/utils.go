package segment

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var errShortBuffer = errors.New("unexpected end of postings")

// prefixSuccessor returns the smallest key greater than every key with the
// given prefix, or nil when no such key exists.
func prefixSuccessor(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	succ := bytes.Clone(prefix)
	for i := len(succ) - 1; i >= 0; i-- {
		if succ[i] < 0xff {
			succ[i]++
			return succ[:i+1]
		}
	}
	return nil
}

// byteReader decodes consecutive uvarints from a slice without copying.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (r *byteReader) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, errShortBuffer
	}
	r.pos += n
	return v, nil
}
