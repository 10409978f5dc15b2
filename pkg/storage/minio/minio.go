package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	cfg "github.com/feichai0017/invoice-aggregator/config"
	"github.com/feichai0017/invoice-aggregator/internal/models"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

const defaultPageSize = 1000

type MinioStorage struct {
	client     *minio.Client
	bucketName string
	pageSize   int
	logger     logger.Logger
}

// New connects to MinIO and creates bucket when it does not exist yet.
func New(ctx context.Context, minioConfig cfg.MinioConfig, bucket string, log logger.Logger) (*MinioStorage, error) {
	client, err := minio.New(minioConfig.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(minioConfig.AccessKey, minioConfig.SecretKey, ""),
		Secure: minioConfig.UseSSL,
		Region: minioConfig.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{
			Region: minioConfig.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info("Created MinIO bucket", logger.String("bucket", bucket))
	}

	return &MinioStorage{
		client:     client,
		bucketName: bucket,
		pageSize:   defaultPageSize,
		logger:     log,
	}, nil
}

// WithPageSize caps the number of keys returned per List call.
func (m *MinioStorage) WithPageSize(n int) *MinioStorage {
	if n > 0 {
		m.pageSize = n
	}
	return m
}

// List returns one page of the objects directly under location. The page token is
// the last key of the previous page, passed to MinIO as StartAfter.
func (m *MinioStorage) List(ctx context.Context, location, token string) (*models.SourcePage, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objectCh := m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{
		Prefix:     folderPrefix(location),
		StartAfter: token,
	})

	page := &models.SourcePage{Entries: make([]models.SourceEntry, 0)}
	var lastKey string
	for obj := range objectCh {
		if obj.Err != nil {
			m.logger.Error("Error listing objects",
				logger.String("bucket", m.bucketName),
				logger.String("location", location),
				logger.Error(obj.Err),
			)
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		if len(page.Entries) == m.pageSize {
			page.NextToken = lastKey
			break
		}
		lastKey = obj.Key
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		page.Entries = append(page.Entries, models.SourceEntry{
			ID:         obj.Key,
			Name:       path.Base(obj.Key),
			ModifiedAt: obj.LastModified,
		})
	}
	return page, nil
}

// Download reads the whole object.
func (m *MinioStorage) Download(ctx context.Context, id string) ([]byte, error) {
	data, ok, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("object %s not found", id)
	}
	return data, nil
}

func (m *MinioStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, m.getError(key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, m.getError(key, err)
	}
	return data, true, nil
}

func (m *MinioStorage) getError(key string, err error) error {
	m.logger.Error("Failed to get file from MinIO",
		logger.String("bucket", m.bucketName),
		logger.String("key", key),
		logger.Error(err),
	)
	return fmt.Errorf("failed to get file: %w", err)
}

func (m *MinioStorage) Put(ctx context.Context, key string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		m.logger.Error("Failed to store file to MinIO",
			logger.String("bucket", m.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}

func (m *MinioStorage) Delete(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		m.logger.Error("Failed to delete file from MinIO",
			logger.String("bucket", m.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// DeleteByPrefix streams the listing of prefix into RemoveObjects.
func (m *MinioStorage) DeleteByPrefix(ctx context.Context, prefix string) error {
	objectsCh := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)

	go func() {
		defer close(objectsCh)
		for obj := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				listErr <- obj.Err
				return
			}
			select {
			case objectsCh <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	var firstErr error
	for rErr := range m.client.RemoveObjects(ctx, m.bucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to delete %s: %w", rErr.ObjectName, rErr.Err)
		}
	}
	if firstErr != nil {
		return firstErr
	}

	select {
	case err := <-listErr:
		return fmt.Errorf("failed to list objects: %w", err)
	default:
		return nil
	}
}

func (m *MinioStorage) Close() error { return nil }

func folderPrefix(location string) string {
	location = strings.Trim(location, "/")
	if location == "" {
		return ""
	}
	return location + "/"
}
