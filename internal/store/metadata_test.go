package store

import (
	"errors"
	"testing"

	"github.com/RoaringBitmap/roaring"
)

func openTest(t *testing.T) (*Metadata, string) {
	t.Helper()
	dir := t.TempDir()
	m, err := NewMetadata(dir)
	if err != nil {
		t.Fatalf("NewMetadata: %v", err)
	}
	return m, dir
}

func TestMetadata_EmptyStore(t *testing.T) {
	m, _ := openTest(t)
	defer m.Close()

	segs, err := m.GetSegments()
	if err != nil || len(segs) != 0 {
		t.Errorf("GetSegments: got %v, %v", segs, err)
	}
	if epoch, _ := m.GetEpoch(); epoch != 0 {
		t.Errorf("epoch: got %d, want 0", epoch)
	}
	bm, err := m.GetDeletions("s1")
	if err != nil || !bm.IsEmpty() {
		t.Errorf("GetDeletions: got %v, %v", bm, err)
	}
	if _, found, _ := m.GetDocMapping("x"); found {
		t.Error("unexpected doc mapping")
	}
}

func TestMetadata_UpdatePersists(t *testing.T) {
	m, dir := openTest(t)

	err := m.Update(func(tx *Tx) error {
		if _, err := tx.IncrementEpoch(); err != nil {
			return err
		}
		if err := tx.SetSegments([]string{"s1", "s2"}); err != nil {
			return err
		}
		if err := tx.SetDeletions("s1", roaring.BitmapOf(3, 7)); err != nil {
			return err
		}
		if err := tx.SetDocMapping("doc-a", "s2", 4); err != nil {
			return err
		}
		return tx.SetAnalyzer("english")
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	m.Close()

	m, err = NewMetadata(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer m.Close()

	if segs, _ := m.GetSegments(); len(segs) != 2 || segs[1] != "s2" {
		t.Errorf("segments: got %v", segs)
	}
	if epoch, _ := m.GetEpoch(); epoch != 1 {
		t.Errorf("epoch: got %d, want 1", epoch)
	}
	if bm, _ := m.GetDeletions("s1"); !bm.Equals(roaring.BitmapOf(3, 7)) {
		t.Errorf("deletions: got %v", bm.ToArray())
	}
	mapping, found, err := m.GetDocMapping("doc-a")
	if err != nil || !found || mapping != (DocMapping{SegmentID: "s2", DocNum: 4}) {
		t.Errorf("mapping: got %+v, %v, %v", mapping, found, err)
	}
	if name, _ := m.Analyzer(); name != "english" {
		t.Errorf("analyzer: got %q", name)
	}
}

func TestMetadata_DeleteEntries(t *testing.T) {
	m, _ := openTest(t)
	defer m.Close()

	m.Update(func(tx *Tx) error {
		tx.SetDocMapping("doc-a", "s1", 0)
		return tx.SetDeletions("s1", roaring.BitmapOf(1))
	})
	err := m.Update(func(tx *Tx) error {
		if err := tx.DeleteDocMapping("doc-a"); err != nil {
			return err
		}
		return tx.DeleteDeletions("s1")
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, found, _ := m.GetDocMapping("doc-a"); found {
		t.Error("mapping not deleted")
	}
	if bm, _ := m.GetDeletions("s1"); !bm.IsEmpty() {
		t.Error("deletions not removed")
	}
}

func TestMetadata_UpdateRollsBackOnError(t *testing.T) {
	m, _ := openTest(t)
	defer m.Close()

	m.Update(func(tx *Tx) error {
		tx.SetSegments([]string{"s1"})
		return errors.New("rollback")
	})
	if segs, _ := m.GetSegments(); len(segs) != 0 {
		t.Errorf("rolled back update persisted: %v", segs)
	}
}
