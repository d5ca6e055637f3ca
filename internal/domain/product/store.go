// internal/domain/product/store.go
package product

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrAlreadyImported = errors.New("product already imported")
)

// Store persists imported products and their categories
type Store interface {
	// EnsureCategory returns the category with slug, creating it with one
	// translation per locale when it does not exist
	EnsureCategory(ctx context.Context, slug, name string, locales []string) (*Category, error)
	ExternalIDExists(ctx context.Context, externalID string) (bool, error)
	// CreateProduct returns ErrAlreadyImported when a product with the same
	// external id exists
	CreateProduct(ctx context.Context, product *Product) error
	FindActiveProduct(ctx context.Context, id uint) (*Product, error)
}

// GormStore is the Postgres-backed product store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new product store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// EnsureCategory resolves a category by slug. Concurrent imports of the same
// category converge on one row through ON CONFLICT DO NOTHING.
func (s *GormStore) EnsureCategory(ctx context.Context, slug, name string, locales []string) (*Category, error) {
	var category Category

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("slug = ?", slug).First(&category).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to find category: %w", err)
		}

		category = Category{Slug: slug, Name: name, IsActive: true}
		result := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoNothing: true,
			}).
			Create(&category)
		if result.Error != nil {
			return fmt.Errorf("failed to create category: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Lost the race to another import
			category = Category{}
			if err := tx.Where("slug = ?", slug).First(&category).Error; err != nil {
				return fmt.Errorf("failed to reload category: %w", err)
			}
			return nil
		}

		if len(locales) == 0 {
			return nil
		}

		translations := make([]CategoryTranslation, 0, len(locales))
		for _, locale := range locales {
			translations = append(translations, CategoryTranslation{
				CategoryID: category.ID,
				Locale:     locale,
				Name:       name,
			})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&translations).Error; err != nil {
			return fmt.Errorf("failed to create category translations: %w", err)
		}
		category.Translations = translations

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &category, nil
}

// ExternalIDExists reports whether a supplier product was already imported.
// Soft-deleted products still count, they keep the unique index.
func (s *GormStore) ExternalIDExists(ctx context.Context, externalID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Unscoped().
		Model(&Product{}).
		Where("external_id = ?", externalID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check external id: %w", err)
	}
	return count > 0, nil
}

// CreateProduct inserts a product, ignoring a conflicting external id
func (s *GormStore) CreateProduct(ctx context.Context, product *Product) error {
	query := s.db.WithContext(ctx).Omit(clause.Associations)
	if product.ExternalID != nil {
		query = query.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		})
	}

	result := query.Create(product)
	if result.Error != nil {
		return fmt.Errorf("failed to create product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyImported
	}
	return nil
}

// FindActiveProduct returns an active, non-deleted product
func (s *GormStore) FindActiveProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}
