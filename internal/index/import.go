package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"harshagw/qryeval/internal/errs"
)

// IDKey is the JSON member holding a document's external id in import files.
const IDKey = "id"

// ImportJSONL indexes one JSON object per line, taking the external id from
// IDKey, and flushes at the end. It returns the number of documents indexed.
func (idx *Index) ImportJSONL(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	n := 0
	for line := 1; sc.Scan(); line++ {
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return n, errs.Dataf("line %d: %v", line, err)
		}
		id, ok := doc[IDKey].(string)
		if !ok || id == "" {
			return n, errs.Dataf("line %d: missing string %q member", line, IDKey)
		}
		delete(doc, IDKey)
		if err := idx.Index(id, doc); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, err
	}
	return n, idx.Flush()
}
