package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/RoaringBitmap/roaring"
	"github.com/boltdb/bolt"
)

var (
	bucketSegments  = []byte("segments")
	bucketDeletions = []byte("deletions")
	bucketDocIDs    = []byte("docids")
	bucketMeta      = []byte("meta")
	keySegmentList  = []byte("list")
	keyEpoch        = []byte("epoch")
	keyAnalyzer     = []byte("analyzer")
)

// DocMapping locates the live copy of an external document id.
type DocMapping struct {
	SegmentID string `json:"s"`
	DocNum    uint64 `json:"d"`
}

// Metadata is the bolt-backed catalogue of an index directory.
type Metadata struct {
	db *bolt.DB
}

// NewMetadata opens or creates dir/meta.db.
func NewMetadata(dir string) (*Metadata, error) {
	db, err := bolt.Open(filepath.Join(dir, "meta.db"), 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSegments, bucketDeletions, bucketDocIDs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Metadata{db: db}, nil
}

func (m *Metadata) Close() error {
	return m.db.Close()
}

// View runs fn within a read-only transaction.
func (m *Metadata) View(fn func(*Tx) error) error {
	return m.db.View(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// Update runs fn within a write transaction.
func (m *Metadata) Update(fn func(*Tx) error) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// GetSegments returns the segment ids in creation order.
func (m *Metadata) GetSegments() (segments []string, err error) {
	err = m.View(func(tx *Tx) error {
		segments, err = tx.GetSegments()
		return err
	})
	return segments, err
}

// GetDeletions returns the deletion bitmap for a segment; it is empty when none was stored.
func (m *Metadata) GetDeletions(segmentID string) (bm *roaring.Bitmap, err error) {
	err = m.View(func(tx *Tx) error {
		bm, err = tx.GetDeletions(segmentID)
		return err
	})
	return bm, err
}

// GetDocMapping returns where the live copy of externalID is stored.
func (m *Metadata) GetDocMapping(externalID string) (mapping DocMapping, found bool, err error) {
	err = m.View(func(tx *Tx) error {
		data := tx.tx.Bucket(bucketDocIDs).Get([]byte(externalID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &mapping)
	})
	return mapping, found, err
}

// GetEpoch returns the number of committed index changes.
func (m *Metadata) GetEpoch() (uint64, error) {
	var epoch uint64
	err := m.View(func(tx *Tx) error {
		if data := tx.tx.Bucket(bucketMeta).Get(keyEpoch); data != nil {
			epoch = binary.BigEndian.Uint64(data)
		}
		return nil
	})
	return epoch, err
}

// Analyzer returns the analyzer name recorded when the index was created, or "".
func (m *Metadata) Analyzer() (string, error) {
	var name string
	err := m.View(func(tx *Tx) error {
		name = string(tx.tx.Bucket(bucketMeta).Get(keyAnalyzer))
		return nil
	})
	return name, err
}

// Tx wraps a bolt transaction with catalogue operations.
type Tx struct {
	tx *bolt.Tx
}

func (t *Tx) GetSegments() ([]string, error) {
	var segments []string
	data := t.tx.Bucket(bucketSegments).Get(keySegmentList)
	if data == nil {
		return nil, nil
	}
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("decoding segment list: %w", err)
	}
	return segments, nil
}

func (t *Tx) SetSegments(segmentIDs []string) error {
	data, err := json.Marshal(segmentIDs)
	if err != nil {
		return err
	}
	return t.tx.Bucket(bucketSegments).Put(keySegmentList, data)
}

func (t *Tx) GetDeletions(segmentID string) (*roaring.Bitmap, error) {
	bm := roaring.New()
	data := t.tx.Bucket(bucketDeletions).Get([]byte(segmentID))
	if data == nil {
		return bm, nil
	}
	if _, err := bm.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decoding deletions of segment %s: %w", segmentID, err)
	}
	return bm, nil
}

func (t *Tx) SetDeletions(segmentID string, bm *roaring.Bitmap) error {
	var buf bytes.Buffer
	if _, err := bm.WriteTo(&buf); err != nil {
		return err
	}
	return t.tx.Bucket(bucketDeletions).Put([]byte(segmentID), buf.Bytes())
}

func (t *Tx) DeleteDeletions(segmentID string) error {
	return t.tx.Bucket(bucketDeletions).Delete([]byte(segmentID))
}

func (t *Tx) SetDocMapping(externalID, segmentID string, docNum uint64) error {
	data, err := json.Marshal(DocMapping{SegmentID: segmentID, DocNum: docNum})
	if err != nil {
		return err
	}
	return t.tx.Bucket(bucketDocIDs).Put([]byte(externalID), data)
}

func (t *Tx) DeleteDocMapping(externalID string) error {
	return t.tx.Bucket(bucketDocIDs).Delete([]byte(externalID))
}

// IncrementEpoch increments and returns the epoch.
func (t *Tx) IncrementEpoch() (uint64, error) {
	b := t.tx.Bucket(bucketMeta)
	var epoch uint64
	if data := b.Get(keyEpoch); data != nil {
		epoch = binary.BigEndian.Uint64(data)
	}
	epoch++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, epoch)
	return epoch, b.Put(keyEpoch, buf)
}

func (t *Tx) SetAnalyzer(name string) error {
	return t.tx.Bucket(bucketMeta).Put(keyAnalyzer, []byte(name))
}
