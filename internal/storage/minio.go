package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/nurpe/waste-dispatch/internal/config"
)

// ImageStore keeps report photos in a public-read MinIO bucket.
type ImageStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewImageStore connects to MinIO, creating the bucket and its read policy when missing.
func NewImageStore(ctx context.Context, cfg config.MinIOConfig, log zerolog.Logger) (*ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("created image bucket")
	}

	if err := client.SetBucketPolicy(ctx, cfg.Bucket, readPolicy(cfg.Bucket)); err != nil {
		log.Warn().Err(err).Str("bucket", cfg.Bucket).Msg("failed to set bucket policy")
	}

	return &ImageStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicBase(cfg),
	}, nil
}

func (s *ImageStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return ObjectURL(s.publicURL, s.bucket, name), nil
}

func (s *ImageStore) Remove(ctx context.Context, name string) error {
	return s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
}

// ObjectURL builds the durable URL of an object in a public bucket.
func ObjectURL(base, bucket, name string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.TrimLeft(name, "/")
}

func publicBase(cfg config.MinIOConfig) string {
	if cfg.PublicURL != "" {
		return cfg.PublicURL
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint
}

func readPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    []string{"s3:GetObject"},
				"Resource":  []string{"arn:aws:s3:::" + bucket + "/*"},
			},
		},
	}
	policyJSON, _ := json.Marshal(policy)
	return string(policyJSON)
}
