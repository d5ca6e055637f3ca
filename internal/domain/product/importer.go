// internal/domain/product/importer.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/maloune/storefront/internal/config"
	"github.com/maloune/storefront/internal/domain/supplier"
	"github.com/maloune/storefront/internal/pkg/slug"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	skuPrefix       = "CJ-"
	skuIDLength     = 12
	defaultStock    = 999
	maxImportsPerOp = 100
)

// Import statuses reported per record
const (
	StatusImported = "imported"
	StatusSkipped  = "skipped"
	StatusInvalid  = "invalid"
	StatusFailed   = "failed"
)

var defaultMargin = decimal.RequireFromString("2.5")

// Searcher finds supplier products
type Searcher interface {
	SearchProducts(ctx context.Context, query string, page, pageSize int) (*supplier.SearchResult, error)
}

// ImportResult is the outcome for one supplier record
type ImportResult struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	ProductID  uint   `json:"product_id,omitempty"`
	Slug       string `json:"slug,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ImportSummary aggregates a batch import
type ImportSummary struct {
	Imported int            `json:"imported"`
	Skipped  int            `json:"skipped"`
	Invalid  int            `json:"invalid"`
	Failed   int            `json:"failed"`
	Results  []ImportResult `json:"results"`
}

func (s *ImportSummary) add(result ImportResult) {
	switch result.Status {
	case StatusImported:
		s.Imported++
	case StatusSkipped:
		s.Skipped++
	case StatusInvalid:
		s.Invalid++
	default:
		s.Failed++
	}
	s.Results = append(s.Results, result)
}

// Preview is a supplier record with the prices it would be imported at
type Preview struct {
	supplier.Record
	Product         *NormalizedProduct `json:"normalized,omitempty"`
	AlreadyImported bool               `json:"already_imported"`
	Error           string             `json:"error,omitempty"`
}

// Importer turns supplier records into catalog products
type Importer struct {
	store    Store
	searcher Searcher
	margin   decimal.Decimal
	options  NormalizeOptions
	locales  []string
	stock    int
	logger   *logrus.Logger
	now      func() time.Time
}

// NewImporter creates a new product importer
func NewImporter(store Store, searcher Searcher, cfg *config.Config, logger *logrus.Logger) *Importer {
	margin := cfg.Catalog.MarginMultiplier
	if !margin.IsPositive() {
		margin = defaultMargin
	}

	stock := cfg.Catalog.ImportStock
	if stock <= 0 {
		stock = defaultStock
	}

	return &Importer{
		store:    store,
		searcher: searcher,
		margin:   margin,
		options: NormalizeOptions{
			CompareMultiplier: cfg.Catalog.CompareMultiplier,
			DefaultCategory:   cfg.Catalog.DefaultCategory,
		},
		locales: cfg.Catalog.Locales,
		stock:   stock,
		logger:  logger,
		now:     time.Now,
	}
}

// Import normalizes and persists one supplier record
func (i *Importer) Import(ctx context.Context, record supplier.Record) (*Product, error) {
	normalized, err := NormalizeWith(record, i.margin, i.options)
	if err != nil {
		return nil, err
	}

	if normalized.ExternalID != "" {
		exists, err := i.store.ExternalIDExists(ctx, normalized.ExternalID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrAlreadyImported
		}
	}

	categorySlug := slug.Make(normalized.Category, slug.MaxLength)
	if categorySlug == "" {
		categorySlug = slug.Make(DefaultCategory, slug.MaxLength)
	}
	category, err := i.store.EnsureCategory(ctx, categorySlug, normalized.Category, i.locales)
	if err != nil {
		return nil, err
	}

	now := i.now()
	product := &Product{
		SKU:           i.sku(normalized.ExternalID, now),
		Name:          normalized.Name,
		Slug:          slug.WithToken(slug.Make(normalized.Name, slug.MaxLength), now),
		Description:   normalized.Description,
		Image:         normalized.Image,
		CostPrice:     normalized.CostPrice,
		Price:         normalized.SellPrice,
		ComparePrice:  normalized.CompareAtPrice,
		CategoryID:    category.ID,
		Weight:        normalized.Weight,
		IsActive:      true,
		StockQuantity: i.stock,
	}
	if normalized.ExternalID != "" {
		externalID := normalized.ExternalID
		product.ExternalID = &externalID
	}

	if err := i.store.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	i.logger.WithFields(logrus.Fields{
		"product_id":  product.ID,
		"external_id": normalized.ExternalID,
		"sku":         product.SKU,
		"price":       product.Price.StringFixed(2),
		"category":    category.Slug,
	}).Info("Supplier product imported")

	return product, nil
}

// ImportMany imports records one by one; a failing record does not stop the batch
func (i *Importer) ImportMany(ctx context.Context, records []supplier.Record) *ImportSummary {
	summary := &ImportSummary{Results: make([]ImportResult, 0, len(records))}

	for _, record := range records {
		if ctx.Err() != nil {
			summary.add(ImportResult{
				ExternalID: record.ExternalID,
				Name:       record.Name,
				Status:     StatusFailed,
				Error:      ctx.Err().Error(),
			})
			continue
		}
		summary.add(i.importOne(ctx, record))
	}

	i.logger.WithFields(logrus.Fields{
		"imported": summary.Imported,
		"skipped":  summary.Skipped,
		"invalid":  summary.Invalid,
		"failed":   summary.Failed,
	}).Info("Supplier import batch finished")

	return summary
}

// SearchAndImport searches the supplier and imports up to limit results
func (i *Importer) SearchAndImport(ctx context.Context, query string, page, pageSize, limit int) (*ImportSummary, error) {
	result, err := i.searcher.SearchProducts(ctx, query, page, pageSize)
	if err != nil {
		return nil, err
	}

	records := result.Records
	if limit <= 0 || limit > maxImportsPerOp {
		limit = maxImportsPerOp
	}
	if len(records) > limit {
		records = records[:limit]
	}

	return i.ImportMany(ctx, records), nil
}

// Search returns supplier results priced the way they would be imported
func (i *Importer) Search(ctx context.Context, query string, page, pageSize int) ([]Preview, int, error) {
	result, err := i.searcher.SearchProducts(ctx, query, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	previews := make([]Preview, 0, len(result.Records))
	for _, record := range result.Records {
		preview := Preview{Record: record}

		normalized, err := NormalizeWith(record, i.margin, i.options)
		if err != nil {
			preview.Error = err.Error()
		} else {
			preview.Product = normalized
		}

		if record.ExternalID != "" {
			exists, err := i.store.ExternalIDExists(ctx, record.ExternalID)
			if err != nil {
				return nil, 0, err
			}
			preview.AlreadyImported = exists
		}

		previews = append(previews, preview)
	}

	return previews, result.Total, nil
}

func (i *Importer) importOne(ctx context.Context, record supplier.Record) ImportResult {
	result := ImportResult{ExternalID: record.ExternalID, Name: record.Name}

	product, err := i.Import(ctx, record)
	var validationErr *ValidationError
	switch {
	case err == nil:
		result.Status = StatusImported
		result.ProductID = product.ID
		result.Slug = product.Slug
	case errors.Is(err, ErrAlreadyImported):
		result.Status = StatusSkipped
		result.Error = err.Error()
	case errors.As(err, &validationErr):
		result.Status = StatusInvalid
		result.Error = err.Error()
	default:
		result.Status = StatusFailed
		result.Error = err.Error()
		i.logger.WithError(err).WithField("external_id", record.ExternalID).Error("Failed to import supplier product")
	}

	return result
}

func (i *Importer) sku(externalID string, now time.Time) string {
	if externalID == "" {
		return skuPrefix + strconv.FormatInt(now.UnixMilli(), 36)
	}
	if len(externalID) > skuIDLength {
		externalID = externalID[:skuIDLength]
	}
	return skuPrefix + externalID
}

// String renders a summary for logs and CLI output
func (s *ImportSummary) String() string {
	return fmt.Sprintf("imported=%d skipped=%d invalid=%d failed=%d", s.Imported, s.Skipped, s.Invalid, s.Failed)
}
