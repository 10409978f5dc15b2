package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/feichai0017/invoice-aggregator/config"
	"github.com/feichai0017/invoice-aggregator/internal/models"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
	"github.com/feichai0017/invoice-aggregator/pkg/storage/bolt"
	"github.com/feichai0017/invoice-aggregator/pkg/storage/local"
	"github.com/feichai0017/invoice-aggregator/pkg/storage/memory"
	"github.com/feichai0017/invoice-aggregator/pkg/storage/minio"
	"github.com/feichai0017/invoice-aggregator/pkg/storage/redis"
	"github.com/feichai0017/invoice-aggregator/pkg/storage/s3"
)

// StorageType names a backend.
type StorageType string

const (
	StorageTypeMemory StorageType = "memory"
	StorageTypeBolt   StorageType = "bolt"
	StorageTypeRedis  StorageType = "redis"
	StorageTypeS3     StorageType = "s3"
	StorageTypeMinio  StorageType = "minio"
	StorageTypeLocal  StorageType = "local"
)

// Store is a key/value blob store holding pipeline state.
type Store interface {
	// Get returns the value under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Put creates or replaces the value under key.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every key starting with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// Source lists and downloads invoice documents.
type Source interface {
	// List returns one page of the entries under location. An empty token starts
	// the listing; the returned page carries the token of the next page, if any.
	List(ctx context.Context, location, token string) (*models.SourcePage, error)
	// Download returns the full content of a document.
	Download(ctx context.Context, id string) ([]byte, error)
}

// NewStore builds the state store selected by cfg.State.Backend.
func NewStore(ctx context.Context, cfg *config.Config, log logger.Logger) (Store, error) {
	switch StorageType(cfg.State.Backend) {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeBolt:
		return bolt.Open(cfg.Bolt.Path, log)
	case StorageTypeRedis:
		return redis.New(ctx, cfg.Redis, log)
	case StorageTypeS3:
		return s3.New(ctx, cfg.S3, cfg.State.Bucket, log)
	case StorageTypeMinio:
		return minio.New(ctx, cfg.Minio, cfg.State.Bucket, log)
	default:
		return nil, fmt.Errorf("unsupported state backend: %s", cfg.State.Backend)
	}
}

// NewSource builds the document source selected by cfg.Source.Backend.
func NewSource(ctx context.Context, cfg *config.Config, log logger.Logger) (Source, error) {
	switch StorageType(cfg.Source.Backend) {
	case StorageTypeS3:
		st, err := s3.New(ctx, cfg.S3, cfg.Source.Bucket, log)
		if err != nil {
			return nil, err
		}
		return st.WithPageSize(cfg.Source.PageSize), nil
	case StorageTypeMinio:
		st, err := minio.New(ctx, cfg.Minio, cfg.Source.Bucket, log)
		if err != nil {
			return nil, err
		}
		return st.WithPageSize(cfg.Source.PageSize), nil
	case StorageTypeLocal:
		return local.New(cfg.Source.Bucket, cfg.Source.PageSize, log), nil
	default:
		return nil, fmt.Errorf("unsupported source backend: %s", cfg.Source.Backend)
	}
}

// GetJSON decodes the value under key into v. It reports false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}
