package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"paperchat/internal/domain"
)

var (
	bucketPapers  = []byte("papers")
	bucketVectors = []byte("vectors")
	bucketMeta    = []byte("meta")
)

// BoltStore owns the index file: the paper registry, the vector records and
// the schema info all live in one bbolt database.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the index at path. Only one process may hold
// the file; a second opener fails with ErrIndexUnavailable after timeout.
func NewBoltStore(path string, timeout time.Duration) (*BoltStore, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open bolt db %s: %v", domain.ErrIndexUnavailable, path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketPapers, bucketVectors, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) PutPaper(paper domain.Paper) error {
	data, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("failed to marshal paper: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPapers).Put([]byte(paper.ID), data)
	})
}

func (s *BoltStore) GetPaper(id string) (domain.Paper, error) {
	var paper domain.Paper
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPapers).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", domain.ErrPaperNotFound, id)
		}
		return json.Unmarshal(data, &paper)
	})
	return paper, err
}

// ListPapers returns every registered paper, most recently ingested first.
func (s *BoltStore) ListPapers() ([]domain.Paper, error) {
	var papers []domain.Paper
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPapers).ForEach(func(k, v []byte) error {
			var p domain.Paper
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("corrupt paper record %s: %w", k, err)
			}
			papers = append(papers, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].IngestedAt.After(papers[j].IngestedAt)
	})
	return papers, nil
}

func (s *BoltStore) DeletePaper(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPapers)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", domain.ErrPaperNotFound, id)
		}
		return b.Delete([]byte(id))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
