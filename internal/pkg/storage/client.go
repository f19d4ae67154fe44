package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// objectAPI is the subset of *s3.Client used by Store.
type objectAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store keeps uploaded 3D models in an S3-compatible bucket.
type Store struct {
	api objectAPI
	cfg Config
}

// UploadResult contains the result of a successful upload
type UploadResult struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// NewStore creates an S3 client and checks that the bucket is reachable.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// MinIO, R2 and B2 need path-style addressing
			o.UsePathStyle = true
		}
	})

	store := newStore(client, cfg)
	if err := store.Ping(ctx); err != nil {
		return nil, err
	}
	log.Infof("[Storage] Initialized S3 client for bucket: %s", cfg.BucketName)
	return store, nil
}

func newStore(api objectAPI, cfg Config) *Store {
	return &Store{api: api, cfg: cfg}
}

// Ping checks that the bucket is accessible.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.BucketName)}); err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.cfg.BucketName, err)
	}
	return nil
}

// Upload streams body to the bucket under key.
func (s *Store) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*UploadResult, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.BucketName),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		Metadata: map[string]string{
			"upload-source": "foodar",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	log.Infof("[Storage] Uploaded s3://%s/%s (%d bytes)", s.cfg.BucketName, key, size)
	return &UploadResult{
		Key:         key,
		URL:         s.cfg.PublicURL(key),
		Size:        size,
		ContentType: contentType,
	}, nil
}

// Delete removes an object. Deleting a missing key is not an error on S3.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	log.Infof("[Storage] Deleted s3://%s/%s", s.cfg.BucketName, key)
	return nil
}

func (s *Store) PublicURL(key string) string {
	return s.cfg.PublicURL(key)
}
