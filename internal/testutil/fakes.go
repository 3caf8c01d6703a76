package testutil

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
)

// FlakyMetadataStore wraps a MetadataStore and fails chosen calls.
type FlakyMetadataStore struct {
	contracts.MetadataStore

	mu        sync.Mutex
	getErrs   map[string]error
	deleteErr error
	setErr    error
	scanErr   error

	gets atomic.Int64
}

// NewFlakyMetadataStore wraps inner.
func NewFlakyMetadataStore(inner contracts.MetadataStore) *FlakyMetadataStore {
	return &FlakyMetadataStore{MetadataStore: inner, getErrs: make(map[string]error)}
}

// FailGet makes Get(key) return err. A nil err clears the failure.
func (s *FlakyMetadataStore) FailGet(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.getErrs, key)
		return
	}
	s.getErrs[key] = err
}

// FailDelete makes every Delete return err.
func (s *FlakyMetadataStore) FailDelete(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = err
}

// FailSet makes every Set return err.
func (s *FlakyMetadataStore) FailSet(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr = err
}

// FailScan makes every Scan return err.
func (s *FlakyMetadataStore) FailScan(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanErr = err
}

// Gets returns how many lookups were issued.
func (s *FlakyMetadataStore) Gets() int64 { return s.gets.Load() }

func (s *FlakyMetadataStore) Get(ctx context.Context, key string) (*domain.MetadataRecord, error) {
	s.gets.Add(1)
	s.mu.Lock()
	err := s.getErrs[key]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MetadataStore.Get(ctx, key)
}

func (s *FlakyMetadataStore) Set(ctx context.Context, key string, patch domain.MetadataPatch) (*domain.MetadataRecord, error) {
	s.mu.Lock()
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MetadataStore.Set(ctx, key, patch)
}

func (s *FlakyMetadataStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MetadataStore.Delete(ctx, key)
}

func (s *FlakyMetadataStore) Scan(ctx context.Context) ([]*domain.MetadataRecord, error) {
	s.mu.Lock()
	err := s.scanErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MetadataStore.Scan(ctx)
}

// AssetBackend is what the in-memory blob store offers.
type AssetBackend interface {
	contracts.AssetStore
	contracts.Enumerator
}

// FlakyAssetStore wraps an asset store and fails chosen calls.
type FlakyAssetStore struct {
	AssetBackend

	mu        sync.Mutex
	listErr   error
	deleteErr error
	putErr    error
}

// NewFlakyAssetStore wraps inner.
func NewFlakyAssetStore(inner AssetBackend) *FlakyAssetStore {
	return &FlakyAssetStore{AssetBackend: inner}
}

// FailList makes every List return err.
func (s *FlakyAssetStore) FailList(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

// FailDelete makes every Delete return err.
func (s *FlakyAssetStore) FailDelete(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = err
}

// FailPut makes every Put return err.
func (s *FlakyAssetStore) FailPut(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

func (s *FlakyAssetStore) List(ctx context.Context, prefix string) ([]domain.RawAsset, error) {
	s.mu.Lock()
	err := s.listErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.AssetBackend.List(ctx, prefix)
}

func (s *FlakyAssetStore) Delete(ctx context.Context, locator string) (bool, error) {
	s.mu.Lock()
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	return s.AssetBackend.Delete(ctx, locator)
}

func (s *FlakyAssetStore) Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) (domain.RawAsset, error) {
	s.mu.Lock()
	err := s.putErr
	s.mu.Unlock()
	if err != nil {
		return domain.RawAsset{}, err
	}
	return s.AssetBackend.Put(ctx, path, body, size, contentType)
}

// RecordingInvalidator counts the signals a mutation emits.
type RecordingInvalidator struct {
	mu        sync.Mutex
	immediate int
	delays    []time.Duration
	slots     int
}

func (r *RecordingInvalidator) NotifyChanged() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.immediate++
}

func (r *RecordingInvalidator) NotifyAfter(d time.Duration) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return func() {}
}

func (r *RecordingInvalidator) InvokeSlots() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots++
}

// Immediate returns how many NotifyChanged calls were made.
func (r *RecordingInvalidator) Immediate() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.immediate
}

// Delays returns the delays passed to NotifyAfter, in call order.
func (r *RecordingInvalidator) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// SlotCalls returns how many InvokeSlots calls were made.
func (r *RecordingInvalidator) SlotCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots
}

// Signals returns the total number of announcements of any kind.
func (r *RecordingInvalidator) Signals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.immediate + len(r.delays)
}
