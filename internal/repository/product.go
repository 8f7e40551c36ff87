package repository

import (
	"context"

	"pos-billing/internal/domain"
)

// ProductRepository exposes persistence operations for catalog products.
type ProductRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, product *domain.Product) (string, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	// DecrementQuantity subtracts amount from the stored quantity as a single
	// relative update. With guard set, the update only applies when the stock
	// covers the amount; otherwise ErrInsufficientStock is returned.
	DecrementQuantity(ctx context.Context, id string, amount int, guard bool) error
}
