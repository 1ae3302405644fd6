// Package blob stores ticket attachment payloads outside the database.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	DriverFS = "fs"
	DriverS3 = "s3"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrExists     = errors.New("blob already exists")
	ErrInvalidKey = errors.New("invalid blob key")
)

var Module = fx.Module("blob",
	fx.Provide(New),
)

type Info struct {
	Key         string
	Size        int64
	ContentType string
	ETag        string
}

type PutOptions struct {
	ContentType string
}

// Store is create-only: Put never overwrites an existing key.
type Store interface {
	Driver() string
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New selects the driver named by BLOB_DRIVER.
func New(cfg config.Config, log *zap.Logger) (Store, error) {
	log = log.Named("blob")
	switch strings.ToLower(strings.TrimSpace(cfg.Blob.Driver)) {
	case "", DriverFS:
		log.Info("using filesystem blob store", zap.String("root", cfg.Blob.FSRoot))
		return NewFS(cfg.Blob.FSRoot)
	case DriverS3:
		log.Info("using s3 blob store", zap.String("bucket", cfg.Blob.S3Bucket))
		return NewS3(context.Background(), S3Config{
			Bucket:    cfg.Blob.S3Bucket,
			Region:    cfg.Blob.S3Region,
			Endpoint:  cfg.Blob.S3Endpoint,
			PathStyle: cfg.Blob.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Blob.Driver)
	}
}

// sanitizeKey rejects keys that could escape the store root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	return key, nil
}
