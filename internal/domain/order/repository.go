// internal/domain/order/repository.go
package order

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order already exists for this checkout session")
)

// Repository persists orders keyed by their checkout session reference
type Repository interface {
	FindBySessionReference(ctx context.Context, sessionReference string) (*Order, error)
	// CreateOrder stores the order and its payment atomically. It returns
	// ErrDuplicateOrder when an order already exists for the session.
	CreateOrder(ctx context.Context, order *Order) error
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
}

// GormRepository is the Postgres-backed order repository
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new order repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// FindBySessionReference returns the order created for a checkout session
func (r *GormRepository) FindBySessionReference(ctx context.Context, sessionReference string) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).
		Where("session_reference = ?", sessionReference).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// FindByOrderNumber returns an order with its payment
func (r *GormRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).
		Preload("Payment").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// CreateOrder inserts the order with ON CONFLICT DO NOTHING on the session
// reference, so concurrent deliveries of the same event race safely at the
// database
func (r *GormRepository) CreateOrder(ctx context.Context, order *Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "session_reference"}},
				DoNothing: true,
			}).
			Create(order)
		if result.Error != nil {
			return fmt.Errorf("failed to create order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrDuplicateOrder
		}

		if order.Payment != nil {
			order.Payment.OrderID = order.ID
			if err := tx.Create(order.Payment).Error; err != nil {
				return fmt.Errorf("failed to create payment: %w", err)
			}
		}

		return nil
	})
}
