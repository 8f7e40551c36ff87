package repository

import (
	"context"

	"pos-billing/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (string, error)
	GetByMail(ctx context.Context, mail string) (*domain.User, error)
}
