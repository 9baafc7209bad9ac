package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solentra/storefront/internal/domain/product"
)

// --- Mock implementations ---

type fakeStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	getHits int
	setHits int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	s.getHits++
	if s.getErr != nil {
		return nil, s.getErr
	}
	raw, ok := s.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return raw, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte) error {
	s.setHits++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

type stubProductRepo struct {
	featured []product.Product
	listErr  error
	calls    int
}

func (r *stubProductRepo) ListFeatured(_ context.Context) ([]product.Product, error) {
	r.calls++
	return r.featured, r.listErr
}

// --- Helpers ---

func featuredProducts() []product.Product {
	return []product.Product{
		{ID: "p1", Name: "Lamp", Price: decimal.RequireFromString("49.99"), IsFeatured: true},
		{ID: "p2", Name: "Rug", Price: decimal.RequireFromString("120.00"), IsFeatured: true},
	}
}

func equalProducts(t *testing.T, want, got []product.Product) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.True(t, want[i].Price.Equal(got[i].Price))
	}
}

// --- Tests ---

func TestGetFeatured_CacheHit(t *testing.T) {
	store := newFakeStore()
	raw, err := json.Marshal(featuredProducts())
	require.NoError(t, err)
	store.data[FeaturedKey] = raw

	repo := &stubProductRepo{}
	c := NewFeaturedCache(store, repo, zap.NewNop())

	got, err := c.GetFeatured(context.Background())

	require.NoError(t, err)
	equalProducts(t, featuredProducts(), got)
	// The persistent store is not touched on a hit.
	assert.Zero(t, repo.calls)
}

func TestGetFeatured_MissFallsBackAndWritesThrough(t *testing.T) {
	store := newFakeStore()
	repo := &stubProductRepo{featured: featuredProducts()}
	c := NewFeaturedCache(store, repo, zap.NewNop())

	got, err := c.GetFeatured(context.Background())

	require.NoError(t, err)
	equalProducts(t, featuredProducts(), got)
	assert.Equal(t, 1, repo.calls)
	assert.Contains(t, store.data, FeaturedKey)
}

func TestGetFeatured_StoreErrorIsSoft(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	repo := &stubProductRepo{featured: featuredProducts()}
	c := NewFeaturedCache(store, repo, zap.NewNop())

	got, err := c.GetFeatured(context.Background())

	require.NoError(t, err)
	equalProducts(t, featuredProducts(), got)
}

func TestGetFeatured_WriteBackErrorIsSoft(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("read-only replica")
	repo := &stubProductRepo{featured: featuredProducts()}
	c := NewFeaturedCache(store, repo, zap.NewNop())

	got, err := c.GetFeatured(context.Background())

	require.NoError(t, err)
	equalProducts(t, featuredProducts(), got)
}

func TestGetFeatured_CorruptEntryFallsBack(t *testing.T) {
	store := newFakeStore()
	store.data[FeaturedKey] = []byte("{not json")
	repo := &stubProductRepo{featured: featuredProducts()}
	c := NewFeaturedCache(store, repo, zap.NewNop())

	got, err := c.GetFeatured(context.Background())

	require.NoError(t, err)
	equalProducts(t, featuredProducts(), got)
	// The corrupt entry was replaced by the write-back.
	var cached []product.Product
	require.NoError(t, json.Unmarshal(store.data[FeaturedKey], &cached))
	assert.Len(t, cached, 2)
}

func TestGetFeatured_RepositoryErrorPropagates(t *testing.T) {
	store := newFakeStore()
	repo := &stubProductRepo{listErr: errors.New("db down")}
	c := NewFeaturedCache(store, repo, zap.NewNop())

	_, err := c.GetFeatured(context.Background())
	require.Error(t, err)
}

func TestRefresh_OverwritesUnconditionally(t *testing.T) {
	store := newFakeStore()
	store.data[FeaturedKey] = []byte(`[{"id":"stale"}]`)
	repo := &stubProductRepo{featured: featuredProducts()}
	c := NewFeaturedCache(store, repo, zap.NewNop())

	require.NoError(t, c.Refresh(context.Background()))

	var cached []product.Product
	require.NoError(t, json.Unmarshal(store.data[FeaturedKey], &cached))
	require.Len(t, cached, 2)
	assert.Equal(t, "p1", cached[0].ID)
}

func TestRefresh_CacheWriteErrorIsSoft(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("oom")
	repo := &stubProductRepo{featured: featuredProducts()}
	c := NewFeaturedCache(store, repo, zap.NewNop())

	assert.NoError(t, c.Refresh(context.Background()))
}
