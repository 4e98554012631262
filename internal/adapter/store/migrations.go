package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"paperchat/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemaInfo = []byte("schema_info")

// SchemaInfo records the storage format and the embedding model whose vectors
// the index holds.
type SchemaInfo struct {
	Version           int    `json:"version"`
	EmbeddingProvider string `json:"embedding_provider"`
	EmbeddingModel    string `json:"embedding_model"`
	Dimension         int    `json:"dimension"`
}

// GetSchemaInfo returns the stored schema info; a fresh index yields the zero value.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchemaInfo)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &info)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read schema info: %w", err)
	}
	return &info, nil
}

func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keySchemaInfo, data)
	})
}

// EnsureEmbeddingModel pins the index to one embedding model. The first caller
// records want; later callers must match it or get ErrEmbeddingModelMismatch,
// because vectors from different models are not comparable.
func (s *BoltStore) EnsureEmbeddingModel(want SchemaInfo) error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}

	if info.Version > CurrentSchemaVersion {
		return fmt.Errorf("%w: index created by newer version (v%d > v%d)",
			domain.ErrIndexUnavailable, info.Version, CurrentSchemaVersion)
	}

	if info.EmbeddingModel == "" {
		want.Version = CurrentSchemaVersion
		return s.SetSchemaInfo(&want)
	}

	if info.EmbeddingProvider != want.EmbeddingProvider ||
		info.EmbeddingModel != want.EmbeddingModel ||
		info.Dimension != want.Dimension {
		return fmt.Errorf("%w: index built with %s/%s (dim %d), configured %s/%s (dim %d)",
			domain.ErrEmbeddingModelMismatch,
			info.EmbeddingProvider, info.EmbeddingModel, info.Dimension,
			want.EmbeddingProvider, want.EmbeddingModel, want.Dimension)
	}

	if info.Version < CurrentSchemaVersion {
		info.Version = CurrentSchemaVersion
		return s.SetSchemaInfo(info)
	}
	return nil
}

// Clear removes all papers, vectors and the pinned model so the index can be
// rebuilt with a different embedding model.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketPapers, bucketVectors, bucketMeta} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}
