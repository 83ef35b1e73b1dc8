package segment

import (
	"reflect"
	"testing"

	"github.com/RoaringBitmap/roaring"
)

func TestEncodeDecodePostings(t *testing.T) {
	tests := []struct {
		name     string
		postings []Posting
	}{
		{"empty", []Posting{}},
		{"large doc gaps", []Posting{
			{DocNum: 1000, Positions: []uint64{0}},
			{DocNum: 1001, Positions: []uint64{3}},
			{DocNum: 2000, Positions: []uint64{7}},
		}},
		{"several positions", []Posting{
			{DocNum: 0, Positions: []uint64{0, 5, 10}},
			{DocNum: 4, Positions: []uint64{2, 3}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodePostings(EncodePostings(tt.postings))
			if err != nil {
				t.Fatalf("DecodePostings: %v", err)
			}
			if !reflect.DeepEqual(decoded, tt.postings) {
				t.Errorf("got %v, want %v", decoded, tt.postings)
			}
		})
	}
}

func TestDecodePostings_Truncated(t *testing.T) {
	encoded := EncodePostings([]Posting{{DocNum: 3, Positions: []uint64{1, 200, 40000}}})
	if _, err := DecodePostings(encoded[:len(encoded)-1]); err == nil {
		t.Error("expected error for truncated postings")
	}
}

func TestPosting_TF(t *testing.T) {
	if tf := (Posting{Positions: []uint64{1, 4, 9}}).TF(); tf != 3 {
		t.Errorf("TF: got %d, want 3", tf)
	}
}

func TestOneHit(t *testing.T) {
	v := EncodeOneHit(42)
	if !IsOneHit(v) {
		t.Fatal("expected one-hit value")
	}
	if DecodeOneHit(v) != 42 {
		t.Errorf("DecodeOneHit: got %d, want 42", DecodeOneHit(v))
	}
	if IsOneHit(42) {
		t.Error("plain offset reported as one-hit")
	}
}

func TestPrefixSuccessor(t *testing.T) {
	tests := []struct {
		prefix string
		want   []byte
	}{
		{"", nil},
		{"ab", []byte("ac")},
		{"a\xff", []byte("b")},
		{"\xff\xff", nil},
	}
	for _, tt := range tests {
		if got := prefixSuccessor([]byte(tt.prefix)); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("prefixSuccessor(%q): got %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func newTestBitmap(vals ...uint32) *roaring.Bitmap {
	bm := roaring.New()
	for _, v := range vals {
		bm.Add(v)
	}
	return bm
}
