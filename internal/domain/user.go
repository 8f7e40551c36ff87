package domain

import "time"

// User represents a registered cashier account.
type User struct {
	ID           string
	Name         string
	Mail         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
