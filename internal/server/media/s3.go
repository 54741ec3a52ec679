package media

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	sc "github.com/dmitrijs2005/notekeeper/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in)
	}
)

// S3Uploader stores media in an S3-compatible bucket (MinIO in development).
type S3Uploader struct {
	bucket       string
	baseEndpoint string
	client       *s3.Client
}

// NewS3Uploader builds an S3 client from server config and returns an
// Uploader bound to the configured bucket.
func NewS3Uploader(ctx context.Context, c *sc.Config) (*S3Uploader, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,     // MINIO_ROOT_USER
			c.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Uploader{
		bucket:       c.S3Bucket,
		baseEndpoint: c.S3BaseEndpoint,
		client:       client,
	}, nil
}

// randomStorageKey buckets uploads by date so objects stay browsable.
func randomStorageKey(ext string) string {
	d := time.Now()
	return fmt.Sprintf("uploads/%d/%d/%d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

// Upload stores the file at localPath under a random date-bucketed key.
// The local temp file is removed before returning, on every path.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (*Object, error) {
	defer os.Remove(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	key := randomStorageKey(filepath.Ext(localPath))

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = putObject(u.client, ctx, &s3.PutObjectInput{
		Bucket:      &u.bucket,
		Key:         &key,
		Body:        f,
		ContentType: &contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &Object{URL: u.objectURL(key), Key: key}, nil
}

// Delete removes the object stored under key.
func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	_, err := deleteObject(u.client, ctx, &s3.DeleteObjectInput{
		Bucket: &u.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (u *S3Uploader) objectURL(key string) string {
	// keys are generated from dates and UUIDs, no escaping needed
	base := strings.TrimSuffix(u.baseEndpoint, "/")
	return base + "/" + u.bucket + "/" + key
}
