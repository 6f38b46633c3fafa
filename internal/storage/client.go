// Package storage archives transcoded featured images in an S3-compatible
// bucket (MinIO).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/config"
)

// Archiver stores a copy of a processed image and returns its object key.
type Archiver interface {
	Archive(ctx context.Context, postID int64, filename string, data []byte, contentType string) (string, error)
}

type Client struct {
	minio  *minio.Client
	bucket string
	now    func() time.Time
}

func NewClient(cfg config.StorageConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	return &Client{
		minio:  mc,
		bucket: cfg.Bucket,
		now:    time.Now,
	}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minio.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.minio.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		exists, checkErr := c.minio.BucketExists(ctx, c.bucket)
		if checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}

	return nil
}

// Ping reports whether the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.minio.BucketExists(ctx, c.bucket)
	return err
}

// Archive writes data under ObjectKey and returns the key.
func (c *Client) Archive(ctx context.Context, postID int64, filename string, data []byte, contentType string) (string, error) {
	key := ObjectKey(c.now(), postID, filename)
	if err := c.WriteObject(ctx, key, data, contentType); err != nil {
		return "", err
	}
	return key, nil
}

func (c *Client) ReadObject(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := c.minio.GetObject(ctx, c.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", objectKey, err)
	}
	return data, nil
}

func (c *Client) WriteObject(ctx context.Context, objectKey string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)
	_, err := c.minio.PutObject(
		ctx,
		c.bucket,
		objectKey,
		reader,
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("put object %s: %w", objectKey, err)
	}
	return nil
}

// ObjectKey lays archived images out by month and post:
// featured/2026/10/1234/attic-insulation-sprayfoam.jpg.
func ObjectKey(at time.Time, postID int64, filename string) string {
	at = at.UTC()
	return path.Join("featured", at.Format("2006"), at.Format("01"), fmt.Sprintf("%d", postID), path.Base(filename))
}

var _ Archiver = (*Client)(nil)
