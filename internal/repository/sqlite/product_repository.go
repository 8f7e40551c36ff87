package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pos-billing/internal/domain"
	"pos-billing/internal/repository"
)

const createProductsTable = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	price REAL NOT NULL DEFAULT 0,
	quantity INTEGER NOT NULL DEFAULT 0,
	image TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createProductsTable); err != nil {
		return fmt.Errorf("create products table: %w", err)
	}
	return nil
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) (string, error) {
	now := time.Now().UTC()
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO products (id, name, price, quantity, image, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Name,
		product.Price,
		product.Quantity,
		product.Image,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("insert product %s: %w", product.ID, repository.ErrDuplicate)
		}
		return "", fmt.Errorf("insert product: %w", err)
	}
	return product.ID, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, price, quantity, image, created_at, updated_at
FROM products
WHERE id = ?`,
		id,
	)
	return scanProduct(row)
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, price, quantity, image, created_at, updated_at
FROM products`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	product.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE products
SET name=?, price=?, quantity=?, image=?, updated_at=?
WHERE id=?`,
		product.Name,
		product.Price,
		product.Quantity,
		product.Image,
		product.UpdatedAt,
		product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return expectAffected(res, "update product")
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectAffected(res, "delete product")
}

func (r *ProductRepository) DecrementQuantity(ctx context.Context, id string, amount int, guard bool) error {
	now := time.Now().UTC()

	var (
		res sql.Result
		err error
	)
	if guard {
		res, err = r.db.ExecContext(ctx, `
UPDATE products
SET quantity = quantity - ?, updated_at = ?
WHERE id = ? AND quantity >= ?`,
			amount, now, id, amount,
		)
	} else {
		res, err = r.db.ExecContext(ctx, `
UPDATE products
SET quantity = quantity - ?, updated_at = ?
WHERE id = ?`,
			amount, now, id,
		)
	}
	if err != nil {
		return fmt.Errorf("decrement quantity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement quantity rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if !guard {
		return fmt.Errorf("decrement quantity: %w", repository.ErrNotFound)
	}

	// the guarded update matched nothing: tell a missing row from a shortfall
	if _, err := r.Get(ctx, id); err != nil {
		return fmt.Errorf("decrement quantity: %w", err)
	}
	return fmt.Errorf("decrement quantity: %w", repository.ErrInsufficientStock)
}

func scanProduct(row interface {
	Scan(dest ...any) error
}) (*domain.Product, error) {
	var product domain.Product
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Quantity,
		&product.Image,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &product, nil
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}
