// internal/domain/supplier/record.go
package supplier

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Record is one supplier product as returned by search
type Record struct {
	ExternalID  string              `json:"external_id"`
	Name        string              `json:"name"`
	ImageURL    string              `json:"image_url"`
	Price       decimal.NullDecimal `json:"price"`
	Category    string              `json:"category"`
	Weight      decimal.NullDecimal `json:"weight"`
	Description string              `json:"description"`
}

// SearchResult is one page of supplier search results
type SearchResult struct {
	Records  []Record `json:"records"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}

// rawProduct mirrors the supplier's product list entry
type rawProduct struct {
	PID           string     `json:"pid"`
	ProductNameEn string     `json:"productNameEn"`
	ProductName   string     `json:"productName"`
	ProductImage  string     `json:"productImage"`
	SellPrice     flexNumber `json:"sellPrice"`
	CategoryName  string     `json:"categoryName"`
	ProductWeight flexNumber `json:"productWeight"`
	Description   string     `json:"description"`
}

type rawProductPage struct {
	PageNum  flexNumber   `json:"pageNum"`
	PageSize flexNumber   `json:"pageSize"`
	Total    flexNumber   `json:"total"`
	List     []rawProduct `json:"list"`
}

func (p rawProduct) record() Record {
	name := strings.TrimSpace(p.ProductNameEn)
	if name == "" {
		name = strings.TrimSpace(p.ProductName)
	}

	return Record{
		ExternalID:  p.PID,
		Name:        name,
		ImageURL:    firstImage(p.ProductImage),
		Price:       p.SellPrice.NullDecimal,
		Category:    strings.TrimSpace(p.CategoryName),
		Weight:      p.ProductWeight.NullDecimal,
		Description: strings.TrimSpace(p.Description),
	}
}

// firstImage handles image fields that hold a JSON array of URLs
func firstImage(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") {
		return raw
	}

	var images []string
	if err := json.Unmarshal([]byte(raw), &images); err != nil || len(images) == 0 {
		return ""
	}
	return images[0]
}

// flexNumber accepts a JSON number, a numeric string or a price range
// such as "1.20 -- 3.40", in which case the lower bound is kept.
// Anything unparseable leaves it invalid rather than failing the page.
type flexNumber struct {
	decimal.NullDecimal
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	n.NullDecimal = decimal.NullDecimal{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return nil
		}
	}

	if low, _, ok := strings.Cut(text, "--"); ok {
		text = low
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	value, err := decimal.NewFromString(text)
	if err != nil {
		return nil
	}

	n.NullDecimal = decimal.NullDecimal{Decimal: value, Valid: true}
	return nil
}

func (n flexNumber) intOr(fallback int) int {
	if !n.Valid {
		return fallback
	}
	return int(n.Decimal.IntPart())
}
