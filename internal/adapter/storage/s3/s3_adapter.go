package s3

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/classifly/ad-service/internal/app/config"
	"github.com/classifly/ad-service/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageStorage uploads ad images and returns their public URLs. Everything
// downstream treats images as opaque URL strings.
type ImageStorage interface {
	Upload(ctx context.Context, originalFileName string, data []byte) (string, error)
}

type s3Storage struct {
	client *minio.Client
	bucket string
	log    logger.Logger
}

func NewImageStorage(ctx context.Context, cfg config.ImageStoreConfig, log logger.Logger) (ImageStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, errBucketExists := client.BucketExists(ctx, cfg.Bucket)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("failed to make/verify bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &s3Storage{client: client, bucket: cfg.Bucket, log: log}, nil
}

func (s *s3Storage) Upload(ctx context.Context, originalFileName string, data []byte) (string, error) {
	ext := filepath.Ext(originalFileName)
	objectKey := fmt.Sprintf("images/%s%s", uuid.New().String(), ext)

	info, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		s.log.Errorf("Failed to upload image %s to bucket %s: %v", objectKey, s.bucket, err)
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", objectKey, s.bucket, err)
	}

	fileURL := fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, info.Key)
	s.log.Infof("Uploaded image %s (%d bytes)", fileURL, info.Size)
	return fileURL, nil
}
