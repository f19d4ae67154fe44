package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foodar/foodar/internal/pkg/env"
)

// Config holds S3-compatible object storage configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string // Optional CDN or bucket website URL
}

// LoadConfig loads storage configuration from environment variables
func LoadConfig() (Config, error) {
	cfg := Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("S3_PUBLIC_BASE_URL", ""),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.AccessKeyID == "" {
		return errors.New("S3_ACCESS_KEY_ID is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("S3_SECRET_ACCESS_KEY is required")
	}
	if c.BucketName == "" {
		return errors.New("S3_BUCKET_NAME is required")
	}
	return nil
}

// PublicURL returns the URL under which an object is served.
func (c Config) PublicURL(key string) string {
	key = strings.TrimLeft(key, "/")
	if c.PublicBaseURL != "" {
		return strings.TrimRight(c.PublicBaseURL, "/") + "/" + key
	}
	if c.EndpointURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.EndpointURL, "/"), c.BucketName, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.BucketName, c.Region, key)
}

// ModelObjectKey generates the object key of an uploaded 3D model.
// Format: models/<restaurant>/<model><ext>
func ModelObjectKey(restaurantID, modelID, ext string) string {
	return fmt.Sprintf("models/%s/%s%s", restaurantID, modelID, strings.ToLower(ext))
}
