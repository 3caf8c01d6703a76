package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/zeebo/errs"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
)

// Error is the error class for S3-compatible object storage.
var Error = errs.Class("object store")

// MinioConfig holds the connection settings for an S3-compatible endpoint.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewMinioClient connects to an S3-compatible endpoint.
func NewMinioClient(cfg MinioConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return client, nil
}

// MinioStore is the asset store on one bucket.
type MinioStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

var _ contracts.AssetStore = (*MinioStore)(nil)

// NewMinioStore binds a store to bucket. Locators are built as
// <publicBase>/<bucket>/<object path>.
func NewMinioStore(client *minio.Client, bucket, publicBase string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, publicBase: publicBase}
}

// NewMinioEnumerator lists the legacy bucket. It only ever reads.
func NewMinioEnumerator(client *minio.Client, bucket, publicBase string) contracts.Enumerator {
	return NewMinioStore(client, bucket, publicBase)
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return Error.New("failed to check bucket %s: %v", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return Error.New("failed to create bucket %s: %v", s.bucket, err)
	}
	return nil
}

// Put uploads body under path.
func (s *MinioStore) Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) (domain.RawAsset, error) {
	path = strings.TrimLeft(path, "/")
	info, err := s.client.PutObject(ctx, s.bucket, path, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return domain.RawAsset{}, Error.Wrap(fmt.Errorf("failed to put %s: %w", path, err))
	}

	return domain.RawAsset{
		Name:      path[strings.LastIndexByte(path, '/')+1:],
		SizeBytes: info.Size,
		Locator:   publicURL(s.publicBase, s.bucket, path),
	}, nil
}

// Delete removes the object behind locator. S3 deletes are idempotent, so
// existence is checked first to report whether anything was removed.
func (s *MinioStore) Delete(ctx context.Context, locator string) (bool, error) {
	key, err := objectPath(s.publicBase, s.bucket, locator)
	if err != nil {
		return false, err
	}

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, Error.Wrap(fmt.Errorf("failed to stat %s: %w", key, err))
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return false, Error.Wrap(fmt.Errorf("failed to remove %s: %w", key, err))
	}
	return true, nil
}

// List returns every object under prefix. Any listing error aborts the
// whole listing.
func (s *MinioStore) List(ctx context.Context, prefix string) ([]domain.RawAsset, error) {
	p := listPrefix(prefix)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []domain.RawAsset
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: p, Recursive: true}) {
		if obj.Err != nil {
			return nil, Error.Wrap(fmt.Errorf("failed to list %s/%s: %w", s.bucket, p, obj.Err))
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		out = append(out, domain.RawAsset{
			Name:      rawName(p, obj.Key),
			SizeBytes: obj.Size,
			Locator:   publicURL(s.publicBase, s.bucket, obj.Key),
		})
	}
	return out, nil
}
