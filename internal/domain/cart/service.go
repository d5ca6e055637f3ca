// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/maloune/storefront/internal/config"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrSessionRequired    = errors.New("cart session ID required")
	ErrProductUnavailable = errors.New("product not found or inactive")
)

// CatalogEntry is the catalog's current view of a purchasable product
type CatalogEntry struct {
	ProductID    string
	VariantID    string
	Name         string
	Price        decimal.Decimal
	ComparePrice *decimal.Decimal
	Image        string
	MaxQuantity  int
}

// Catalog resolves products for the cart. Implementations return
// ErrProductUnavailable for unknown or inactive products.
type Catalog interface {
	LookupProduct(ctx context.Context, productID, variantID string) (*CatalogEntry, error)
}

// Service handles cart business logic for shopper sessions
type Service struct {
	storage    Storage
	catalog    Catalog
	logger     *logrus.Logger
	defaultMax int
}

// NewService creates a new cart service
func NewService(storage Storage, catalog Catalog, cfg *config.Config, logger *logrus.Logger) *Service {
	defaultMax := DefaultMaxQuantity
	if cfg != nil && cfg.Cart.DefaultMaxQuantity > 0 {
		defaultMax = cfg.Cart.DefaultMaxQuantity
	}

	return &Service{
		storage:    storage,
		catalog:    catalog,
		logger:     logger,
		defaultMax: defaultMax,
	}
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateQuantityRequest represents update cart item request
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the current cart for a session
func (s *Service) GetCart(ctx context.Context, sessionID string) (*Snapshot, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	items, err := s.storage.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}

	snap := NewStore(items).Snapshot()
	return &snap, nil
}

// AddItem adds a catalog product to the cart. Price, name and quantity bound
// always come from the catalog, never from the request.
func (s *Service) AddItem(ctx context.Context, sessionID string, req *AddItemRequest) (*Snapshot, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	entry, err := s.catalog.LookupProduct(ctx, req.ProductID, req.VariantID)
	if err != nil {
		return nil, err
	}

	maxQuantity := entry.MaxQuantity
	if maxQuantity < 1 || maxQuantity > s.defaultMax {
		maxQuantity = s.defaultMax
	}

	item := CartItem{
		ID:           ItemKey(entry.ProductID, entry.VariantID),
		ProductID:    entry.ProductID,
		VariantID:    entry.VariantID,
		Name:         entry.Name,
		Price:        entry.Price,
		ComparePrice: entry.ComparePrice,
		Image:        entry.Image,
		MaxQuantity:  maxQuantity,
	}

	snap, err := s.mutate(ctx, sessionID, func(store *Store) {
		store.AddItem(item, req.Quantity)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"cart_session": sessionID,
		"product_id":   item.ProductID,
		"variant_id":   item.VariantID,
		"quantity":     req.Quantity,
	}).Debug("Item added to cart")

	return snap, nil
}

// UpdateQuantity sets a line quantity; zero or less removes the line
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*Snapshot, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	return s.mutate(ctx, sessionID, func(store *Store) {
		store.UpdateQuantity(itemID, quantity)
	})
}

// RemoveItem removes a line from the cart
func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID string) (*Snapshot, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	return s.mutate(ctx, sessionID, func(store *Store) {
		store.RemoveItem(itemID)
	})
}

// ClearCart removes all lines from the cart
func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}

	if err := s.storage.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// CompleteCheckout clears the cart that paid for paymentSessionID. It is
// safe to call from every completion signal: only the first call for a
// payment session clears anything. Returns whether this call cleared.
func (s *Service) CompleteCheckout(ctx context.Context, cartSessionID, paymentSessionID string) (bool, error) {
	if cartSessionID == "" || paymentSessionID == "" {
		return false, nil
	}

	first, err := s.storage.MarkCompleted(ctx, paymentSessionID)
	if err != nil {
		return false, fmt.Errorf("failed to mark checkout completed: %w", err)
	}
	if !first {
		return false, nil
	}

	if err := s.storage.Delete(ctx, cartSessionID); err != nil {
		if unmarkErr := s.storage.UnmarkCompleted(ctx, paymentSessionID); unmarkErr != nil {
			s.logger.WithError(unmarkErr).WithField("payment_session", paymentSessionID).
				Error("Failed to release checkout completion marker")
		}
		return false, fmt.Errorf("failed to clear cart: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"cart_session":    cartSessionID,
		"payment_session": paymentSessionID,
	}).Info("Cart cleared after completed checkout")

	return true, nil
}

func (s *Service) mutate(ctx context.Context, sessionID string, apply func(*Store)) (*Snapshot, error) {
	items, err := s.storage.Update(ctx, sessionID, func(current []CartItem) ([]CartItem, error) {
		store := NewStore(current)
		apply(store)
		return store.Items(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}

	snap := NewSnapshot(items)
	return &snap, nil
}
