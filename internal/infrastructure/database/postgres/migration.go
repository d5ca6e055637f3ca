// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/maloune/storefront/internal/domain/order"
	"github.com/maloune/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	// Dependency order
	models := []interface{}{
		// Catalog
		&product.Category{},
		&product.CategoryTranslation{},
		&product.Product{},

		// Orders
		&order.Order{},
		&order.Payment{},
	}

	for _, model := range models {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the query indexes AutoMigrate does not derive from tags
func (m *Migration) CreateIndexes() error {
	m.logger.Info("Creating additional database indexes")

	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Category indexes
		"CREATE INDEX IF NOT EXISTS idx_categories_active ON categories(is_active)",
		"CREATE INDEX IF NOT EXISTS idx_category_translations_locale ON category_translations(locale)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(email)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Payment indexes
		"CREATE INDEX IF NOT EXISTS idx_payments_provider_reference ON payments(provider, provider_reference)",
		"CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)",
	}

	failed := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).WithField("sql", indexSQL).Warn("Failed to create index")
			failed++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": len(indexes) - failed,
		"failed":  failed,
	}).Info("Database indexes created")

	if failed == len(indexes) {
		return errors.New("no index could be created")
	}
	return nil
}

type seedCategory struct {
	slug         string
	name         string
	translations map[string]string
}

var seedCategories = []seedCategory{
	{
		slug: "general",
		name: "General",
		translations: map[string]string{
			"fr": "Général",
			"en": "General",
			"ht": "Jeneral",
			"es": "General",
		},
	},
	{
		slug: "home-decor",
		name: "Home Decor",
		translations: map[string]string{
			"fr": "Décoration",
			"en": "Home Decor",
			"ht": "Dekorasyon",
			"es": "Decoración",
		},
	},
	{
		slug: "beauty",
		name: "Beauty",
		translations: map[string]string{
			"fr": "Beauté",
			"en": "Beauty",
			"ht": "Bote",
			"es": "Belleza",
		},
	},
}

// SeedInitialData inserts development catalog data
func (m *Migration) SeedInitialData(locales []string) error {
	m.logger.Info("Seeding initial data")

	categoryIDs := make(map[string]uint, len(seedCategories))
	for _, seed := range seedCategories {
		id, err := m.seedCategory(seed, locales)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", seed.slug, err)
		}
		categoryIDs[seed.slug] = id
	}

	if err := m.seedProducts(categoryIDs); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	m.logger.Info("Initial data seeded")
	return nil
}

func (m *Migration) seedCategory(seed seedCategory, locales []string) (uint, error) {
	var existing product.Category
	err := m.db.Where("slug = ?", seed.slug).First(&existing).Error
	if err == nil {
		m.logger.WithField("slug", seed.slug).Debug("Category already exists")
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	category := product.Category{Slug: seed.slug, Name: seed.name, IsActive: true}
	for _, locale := range locales {
		name, ok := seed.translations[locale]
		if !ok {
			name = seed.name
		}
		category.Translations = append(category.Translations, product.CategoryTranslation{Locale: locale, Name: name})
	}

	if err := m.db.Create(&category).Error; err != nil {
		return 0, err
	}

	m.logger.WithField("slug", seed.slug).Info("Created category")
	return category.ID, nil
}

func (m *Migration) seedProducts(categoryIDs map[string]uint) error {
	var count int64
	if err := m.db.Model(&product.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		m.logger.Debug("Products already exist, skipping product seed")
		return nil
	}

	products := []product.Product{
		{
			SKU:           "DEMO-PROJECTOR",
			Name:          "Galaxy Star Projector",
			Slug:          "galaxy-star-projector",
			Description:   "Projects a rotating galaxy onto any ceiling.",
			Image:         "https://images.example.com/demo/projector.jpg",
			CostPrice:     decimal.RequireFromString("8.00"),
			Price:         decimal.RequireFromString("19.99"),
			ComparePrice:  decimal.RequireFromString("29.99"),
			CategoryID:    categoryIDs["home-decor"],
			Weight:        decimal.RequireFromString("350"),
			IsActive:      true,
			StockQuantity: 50,
		},
		{
			SKU:           "DEMO-RINGLIGHT",
			Name:          "Ring Light",
			Slug:          "ring-light",
			Description:   "Dimmable LED ring light with phone holder.",
			Image:         "https://images.example.com/demo/ring-light.jpg",
			CostPrice:     decimal.RequireFromString("6.00"),
			Price:         decimal.RequireFromString("15.00"),
			ComparePrice:  decimal.RequireFromString("22.50"),
			CategoryID:    categoryIDs["beauty"],
			Weight:        decimal.RequireFromString("420"),
			IsActive:      true,
			StockQuantity: 4,
		},
	}

	if err := m.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&products).Error; err != nil {
		return err
	}

	m.logger.WithField("count", len(products)).Info("Created demo products")
	return nil
}

// DropAllTables drops every table owned by this service
func (m *Migration) DropAllTables() error {
	m.logger.Warn("Dropping all database tables")

	// Reverse dependency order
	tables := []string{
		"payments",
		"orders",
		"products",
		"category_translations",
		"categories",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
		m.logger.WithField("table", table).Info("Dropped table")
	}

	return nil
}

// GetTableInfo logs row counts per table
func (m *Migration) GetTableInfo() error {
	var tables []string
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	total := int64(0)
	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			m.logger.WithError(err).WithField("table", table).Warn("Failed to count rows")
			continue
		}
		total += count
		m.logger.WithFields(logrus.Fields{"table": table, "rows": count}).Info("Table info")
	}

	m.logger.WithFields(logrus.Fields{"tables": len(tables), "rows": total}).Info("Database summary")
	return nil
}
