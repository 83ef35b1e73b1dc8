package segment

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"harshagw/qryeval/internal/analysis"
)

func TestBuilder_Add_ReturnsDocNum(t *testing.T) {
	b := NewBuilder(analysis.NewSimple())

	docNum0 := b.Add("doc1", map[string]any{"title": "first"})
	docNum1 := b.Add("doc2", map[string]any{"title": "second"})

	if docNum0 != 0 || docNum1 != 1 {
		t.Errorf("expected docNums 0,1 got %d,%d", docNum0, docNum1)
	}
	if b.NumDocs() != 2 {
		t.Errorf("expected 2 docs, got %d", b.NumDocs())
	}
}

func TestBuilder_Add_TracksPositions(t *testing.T) {
	b := NewBuilder(analysis.NewSimple())
	b.Add("doc1", map[string]any{"title": "go is go and go"})

	postings := b.Postings("go", "title")
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}
	if !reflect.DeepEqual(postings[0].Positions, []uint64{0, 2, 4}) {
		t.Errorf("positions: got %v, want [0 2 4]", postings[0].Positions)
	}
}

func TestBuilder_Add_StopWordsLeavePositionGaps(t *testing.T) {
	b := NewBuilder(analysis.NewEnglish())
	b.Add("doc1", map[string]any{"body": "the cat and the hat"})

	if got := b.Postings("hat", "body"); len(got) != 1 || got[0].Positions[0] != 4 {
		t.Errorf("hat postings: got %v, want position 4", got)
	}
	if l := b.FieldLength("body", 0); l != 2 {
		t.Errorf("FieldLength: got %d, want 2", l)
	}
}

func TestBuilder_Add_ReplacesLiveCopy(t *testing.T) {
	b := NewBuilder(analysis.NewSimple())
	b.Add("doc1", map[string]any{"title": "old"})
	b.Add("doc1", map[string]any{"title": "new"})

	if b.NumDocs() != 1 || b.TotalDocs() != 2 {
		t.Errorf("NumDocs/TotalDocs: got %d/%d, want 1/2", b.NumDocs(), b.TotalDocs())
	}
	if got := b.Postings("old", "title"); len(got) != 0 {
		t.Errorf("replaced document still matches: %v", got)
	}
	if docNum, ok := b.DocNum("doc1"); !ok || docNum != 1 {
		t.Errorf("DocNum: got %d, %v", docNum, ok)
	}
}

func TestBuilder_Delete(t *testing.T) {
	b := NewBuilder(analysis.NewSimple())
	b.Add("doc1", map[string]any{"title": "hello"})
	b.Add("doc2", map[string]any{"title": "hello"})

	if !b.Delete("doc1") {
		t.Fatal("Delete returned false for existing doc")
	}
	if b.Delete("doc1") {
		t.Error("second Delete should return false")
	}
	if b.Delete("nope") {
		t.Error("Delete of unknown id should return false")
	}
	if !b.IsDeleted(0) || b.IsDeleted(1) {
		t.Error("unexpected deletion state")
	}
	if got := b.Postings("hello", "title"); len(got) != 1 || got[0].DocNum != 1 {
		t.Errorf("postings after delete: %v", got)
	}
}

func TestBuilder_FieldStats_ExcludesDeleted(t *testing.T) {
	b := NewBuilder(analysis.NewSimple())
	b.Add("doc1", map[string]any{"title": "a b"})
	b.Add("doc2", map[string]any{"title": "a b c d"})
	b.Add("doc3", map[string]any{"body": "x"})
	b.Delete("doc2")

	want := FieldStats{DocCount: 1, TotalTokens: 2}
	if got := b.FieldStats("title"); got != want {
		t.Errorf("FieldStats: got %+v, want %+v", got, want)
	}
	if l := b.FieldLength("title", 2); l != 0 {
		t.Errorf("FieldLength of missing field: got %d", l)
	}
}

func TestBuilder_IgnoresNonStringFields(t *testing.T) {
	b := NewBuilder(analysis.NewSimple())
	b.Add("doc1", map[string]any{"title": "hello", "count": 42, "flag": true})

	if !reflect.DeepEqual(b.Fields(), []string{"title"}) {
		t.Errorf("Fields: got %v, want [title]", b.Fields())
	}
}

func TestBuilder_Build_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder(analysis.NewSimple())
	b.Add("doc1", map[string]any{"title": "hello"})

	segPath, err := b.Build(dir, "seg001")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if segPath != filepath.Join(dir, "seg001.seg") {
		t.Errorf("path: got %s", segPath)
	}
	if _, err := os.Stat(segPath); err != nil {
		t.Errorf("segment file missing: %v", err)
	}
	if _, err := os.Stat(segPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}
