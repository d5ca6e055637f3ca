package product

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maloune/storefront/internal/config"
	"github.com/maloune/storefront/internal/domain/supplier"
	"github.com/maloune/storefront/internal/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore keeps products and categories in maps
type memoryStore struct {
	mu         sync.Mutex
	categories map[string]*Category
	products   []*Product
	createErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{categories: make(map[string]*Category)}
}

func (s *memoryStore) EnsureCategory(_ context.Context, slug, name string, locales []string) (*Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.categories[slug]; ok {
		return c, nil
	}
	c := &Category{ID: uint(len(s.categories) + 1), Slug: slug, Name: name, IsActive: true}
	for _, locale := range locales {
		c.Translations = append(c.Translations, CategoryTranslation{CategoryID: c.ID, Locale: locale, Name: name})
	}
	s.categories[slug] = c
	return c, nil
}

func (s *memoryStore) ExternalIDExists(_ context.Context, externalID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.ExternalID != nil && *p.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) CreateProduct(_ context.Context, product *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	for _, p := range s.products {
		if product.ExternalID != nil && p.ExternalID != nil && *p.ExternalID == *product.ExternalID {
			return ErrAlreadyImported
		}
	}
	product.ID = uint(len(s.products) + 1)
	s.products = append(s.products, product)
	return nil
}

func (s *memoryStore) FindActiveProduct(_ context.Context, id uint) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.ID == id && p.IsActive {
			return p, nil
		}
	}
	return nil, ErrProductNotFound
}

type stubSearcher struct {
	result *supplier.SearchResult
	err    error
	query  string
}

func (s *stubSearcher) SearchProducts(_ context.Context, query string, _, _ int) (*supplier.SearchResult, error) {
	s.query = query
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testImporter(store Store, searcher Searcher) *Importer {
	cfg := &config.Config{Catalog: config.CatalogConfig{
		MarginMultiplier:  decimal.RequireFromString("2.5"),
		CompareMultiplier: decimal.RequireFromString("1.5"),
		Locales:           []string{"fr", "en", "ht"},
		DefaultCategory:   "General",
		ImportStock:       999,
	}}

	importer := NewImporter(store, searcher, cfg, logger.Discard())
	importer.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return importer
}

func projector() supplier.Record {
	return supplier.Record{
		ExternalID: "04A22450-67F0-4617-A132-E7AE7F8963B0",
		Name:       "Galaxy Star Projector",
		ImageURL:   "https://img.example.com/p1.jpg",
		Price:      decimal.NullDecimal{Decimal: decimal.RequireFromString("10.00"), Valid: true},
		Category:   "Home Décor",
	}
}

func TestImporter_Import(t *testing.T) {
	store := newMemoryStore()
	importer := testImporter(store, nil)

	product, err := importer.Import(context.Background(), projector())
	require.NoError(t, err)

	assert.Equal(t, "CJ-04A22450-67F", product.SKU)
	assert.Equal(t, "galaxy-star-projector-loyw3v28", product.Slug)
	assert.Equal(t, "25.00", product.Price.StringFixed(2))
	assert.Equal(t, "37.50", product.ComparePrice.StringFixed(2))
	assert.Equal(t, "10.00", product.CostPrice.StringFixed(2))
	assert.Equal(t, "Galaxy Star Projector", product.Description)
	assert.Equal(t, 999, product.StockQuantity)
	assert.True(t, product.IsActive)
	require.NotNil(t, product.ExternalID)
	assert.Equal(t, "04A22450-67F0-4617-A132-E7AE7F8963B0", *product.ExternalID)

	category := store.categories["home-decor"]
	require.NotNil(t, category)
	assert.Equal(t, category.ID, product.CategoryID)
	assert.Len(t, category.Translations, 3)
	assert.Equal(t, "Home Décor", category.NameFor("ht"))
}

func TestImporter_ImportSkipsExisting(t *testing.T) {
	store := newMemoryStore()
	importer := testImporter(store, nil)

	_, err := importer.Import(context.Background(), projector())
	require.NoError(t, err)

	_, err = importer.Import(context.Background(), projector())
	assert.ErrorIs(t, err, ErrAlreadyImported)
	assert.Len(t, store.products, 1)
}

func TestImporter_ImportDefaultsCategory(t *testing.T) {
	store := newMemoryStore()
	importer := testImporter(store, nil)

	record := projector()
	record.Category = ""
	_, err := importer.Import(context.Background(), record)
	require.NoError(t, err)

	assert.Contains(t, store.categories, "general")
}

func TestImporter_ImportWithoutExternalID(t *testing.T) {
	store := newMemoryStore()
	importer := testImporter(store, nil)

	record := projector()
	record.ExternalID = ""
	product, err := importer.Import(context.Background(), record)
	require.NoError(t, err)

	assert.Nil(t, product.ExternalID)
	assert.True(t, strings.HasPrefix(product.SKU, "CJ-"))
	assert.Equal(t, "CJ-loyw3v28", product.SKU)
}

func TestImporter_ImportMany(t *testing.T) {
	store := newMemoryStore()
	importer := testImporter(store, nil)

	broken := projector()
	broken.ExternalID = "P-BROKEN"
	broken.Price = decimal.NullDecimal{}

	summary := importer.ImportMany(context.Background(), []supplier.Record{projector(), projector(), broken})

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Invalid)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, StatusImported, summary.Results[0].Status)
	assert.Equal(t, uint(1), summary.Results[0].ProductID)
	assert.Equal(t, StatusSkipped, summary.Results[1].Status)
	assert.Equal(t, StatusInvalid, summary.Results[2].Status)
	assert.Equal(t, "imported=1 skipped=1 invalid=1 failed=0", summary.String())
}

func TestImporter_ImportManyStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.createErr = errors.New("connection refused")
	importer := testImporter(store, nil)

	summary := importer.ImportMany(context.Background(), []supplier.Record{projector()})
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Results[0].Error, "connection refused")
}

func TestImporter_ImportManyCancelled(t *testing.T) {
	importer := testImporter(newMemoryStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := importer.ImportMany(ctx, []supplier.Record{projector()})
	assert.Equal(t, 1, summary.Failed)
}

func TestImporter_SearchAndImport(t *testing.T) {
	second := projector()
	second.ExternalID = "P2"
	second.Name = "Ring Light"

	searcher := &stubSearcher{result: &supplier.SearchResult{
		Records: []supplier.Record{projector(), second},
		Total:   2,
	}}
	store := newMemoryStore()
	importer := testImporter(store, searcher)

	summary, err := importer.SearchAndImport(context.Background(), "projector", 1, 20, 1)
	require.NoError(t, err)

	assert.Equal(t, "projector", searcher.query)
	assert.Equal(t, 1, summary.Imported)
	assert.Len(t, store.products, 1)
}

func TestImporter_SearchAndImportSupplierDown(t *testing.T) {
	searcher := &stubSearcher{err: supplier.ErrSupplierUnavailable}
	importer := testImporter(newMemoryStore(), searcher)

	_, err := importer.SearchAndImport(context.Background(), "projector", 1, 20, 10)
	assert.ErrorIs(t, err, supplier.ErrSupplierUnavailable)
}

func TestImporter_Search(t *testing.T) {
	invalid := projector()
	invalid.ExternalID = "P2"
	invalid.Name = ""

	searcher := &stubSearcher{result: &supplier.SearchResult{
		Records: []supplier.Record{projector(), invalid},
		Total:   42,
	}}
	store := newMemoryStore()
	importer := testImporter(store, searcher)

	_, err := importer.Import(context.Background(), projector())
	require.NoError(t, err)

	previews, total, err := importer.Search(context.Background(), "projector", 1, 20)
	require.NoError(t, err)

	assert.Equal(t, 42, total)
	require.Len(t, previews, 2)
	assert.True(t, previews[0].AlreadyImported)
	require.NotNil(t, previews[0].Product)
	assert.Equal(t, "25.00", previews[0].Product.SellPrice.StringFixed(2))
	assert.False(t, previews[1].AlreadyImported)
	assert.Nil(t, previews[1].Product)
	assert.NotEmpty(t, previews[1].Error)
}
