package index

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"harshagw/qryeval/internal/errs"
)

func TestImportJSONL(t *testing.T) {
	idx := openTestIndex(t, t.TempDir(), "simple")
	in := `{"id": "a", "body": "red apple", "title": "fruit"}

{"id": "b", "body": "green apple pie"}
`
	n, err := idx.ImportJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ImportJSONL: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d documents, want 2", n)
	}
	if idx.NumSegments() != 1 {
		t.Errorf("NumSegments: got %d, want 1", idx.NumSegments())
	}
	if got := matches(t, idx, "apple"); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("apple: got %v", got)
	}
	terms, err := idx.Terms("body", "")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"apple", "green", "pie", "red"}; !slices.Equal(terms, want) {
		t.Errorf("Terms: got %v, want %v", terms, want)
	}
}

func TestImportJSONL_Errors(t *testing.T) {
	for _, in := range []string{
		`{"body": "no id"}`,
		`{"id": 7, "body": "numeric id"}`,
		`not json`,
	} {
		idx := openTestIndex(t, t.TempDir(), "simple")
		if _, err := idx.ImportJSONL(strings.NewReader(in)); !errors.Is(err, errs.ErrData) {
			t.Errorf("ImportJSONL(%q): got %v, want ErrData", in, err)
		}
	}
}
