package images

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bowerhall/monumentd/internal/logger"
)

// BucketConfig holds MinIO connection settings
type BucketConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Bucket stores images as <id>.jpg objects in a MinIO bucket
type Bucket struct {
	mc     *minio.Client
	bucket string
}

func NewBucket(cfg BucketConfig) (*Bucket, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &Bucket{mc: mc, bucket: cfg.Bucket}, nil
}

// Init creates the bucket if it doesn't exist
func (b *Bucket) Init(ctx context.Context) error {
	exists, err := b.mc.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", b.bucket, err)
	}

	if !exists {
		if err := b.mc.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", b.bucket, err)
		}
		logger.Info("bucket created", "bucket", b.bucket)
	}

	return nil
}

func (b *Bucket) Exists(ctx context.Context, id int) (bool, error) {
	_, err := b.mc.StatObject(ctx, b.bucket, blobName(id), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s/%s: %w", b.bucket, blobName(id), err)
	}
	return true, nil
}

func (b *Bucket) Read(ctx context.Context, id int) ([]byte, error) {
	obj, err := b.mc.GetObject(ctx, b.bucket, blobName(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", b.bucket, blobName(id), err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s/%s: %w", b.bucket, blobName(id), err)
	}

	return data, nil
}

func (b *Bucket) Write(ctx context.Context, id int, data []byte) error {
	_, err := b.mc.PutObject(ctx, b.bucket, blobName(id), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", b.bucket, blobName(id), err)
	}

	logger.Debug("image uploaded", "bucket", b.bucket, "id", id, "size", len(data))
	return nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
