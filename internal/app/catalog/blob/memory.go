package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
)

// MemoryStore keeps objects in a map. It serves as both the asset store and
// the legacy enumerator in local runs and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	objects    map[string][]byte
	bucket     string
	publicBase string
}

var (
	_ contracts.AssetStore = (*MemoryStore)(nil)
	_ contracts.Enumerator = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store whose locators look like
// <publicBase>/<bucket>/<path>.
func NewMemoryStore(bucket, publicBase string) *MemoryStore {
	return &MemoryStore{
		objects:    make(map[string][]byte),
		bucket:     bucket,
		publicBase: publicBase,
	}
}

// Put stores body under path.
func (s *MemoryStore) Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) (domain.RawAsset, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawAsset{}, err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return domain.RawAsset{}, fmt.Errorf("failed to read upload body: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return domain.RawAsset{}, fmt.Errorf("upload size mismatch: declared %d, got %d", size, len(data))
	}

	path = strings.TrimLeft(path, "/")
	s.mu.Lock()
	s.objects[path] = data
	s.mu.Unlock()

	return domain.RawAsset{
		Name:      path[strings.LastIndexByte(path, '/')+1:],
		SizeBytes: int64(len(data)),
		Locator:   publicURL(s.publicBase, s.bucket, path),
	}, nil
}

// Delete removes the object behind locator.
func (s *MemoryStore) Delete(ctx context.Context, locator string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key, err := objectPath(s.publicBase, s.bucket, locator)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

// List returns every object under prefix, sorted by path.
func (s *MemoryStore) List(ctx context.Context, prefix string) ([]domain.RawAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := listPrefix(prefix)

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]domain.RawAsset, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.RawAsset{
			Name:      rawName(p, k),
			SizeBytes: int64(len(s.objects[k])),
			Locator:   publicURL(s.publicBase, s.bucket, k),
		})
	}
	return out, nil
}

// Seed stores data under path. It is a convenience for fixtures.
func (s *MemoryStore) Seed(path string, data []byte) domain.RawAsset {
	asset, _ := s.Put(context.Background(), path, bytes.NewReader(data), int64(len(data)), "application/octet-stream")
	return asset
}
