// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a catalog product
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SKU           string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name          string          `gorm:"not null;size:255" json:"name"`
	Slug          string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description   string          `gorm:"type:text" json:"description"`
	Image         string          `gorm:"size:1000" json:"image"`
	CostPrice     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"cost_price"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	ComparePrice  decimal.Decimal `gorm:"type:numeric(12,2)" json:"compare_price"`
	CategoryID    uint            `gorm:"not null;index" json:"category_id"`
	Weight        decimal.Decimal `gorm:"type:numeric(10,2);default:0" json:"weight"` // grams
	ExternalID    *string         `gorm:"uniqueIndex;size:100" json:"external_id,omitempty"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
	StockQuantity int             `gorm:"default:0" json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
}

// Category represents product categories
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Translations []CategoryTranslation `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"translations,omitempty"`
}

// CategoryTranslation is a category's display name in one locale
type CategoryTranslation struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	CategoryID uint   `gorm:"not null;uniqueIndex:idx_category_locale" json:"category_id"`
	Locale     string `gorm:"not null;size:10;uniqueIndex:idx_category_locale" json:"locale"`
	Name       string `gorm:"not null;size:255" json:"name"`
}

// NameFor returns the translated name, falling back to the category name
func (c *Category) NameFor(locale string) string {
	for _, t := range c.Translations {
		if t.Locale == locale && t.Name != "" {
			return t.Name
		}
	}
	return c.Name
}

// TableName overrides
func (Product) TableName() string             { return "products" }
func (Category) TableName() string            { return "categories" }
func (CategoryTranslation) TableName() string { return "category_translations" }
