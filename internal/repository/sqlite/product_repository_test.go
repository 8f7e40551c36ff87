package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"pos-billing/internal/domain"
	"pos-billing/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "billing.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestProductRepo(t *testing.T) repository.ProductRepository {
	t.Helper()
	repo := NewProductRepository(openTestDB(t))
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return repo
}

func TestProductRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestProductRepo(t)

	product := &domain.Product{Name: "Tea", Price: 12.5, Quantity: 40, Image: "uploads/tea.png"}
	id, err := repo.Create(ctx, product)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" || product.ID != id {
		t.Fatalf("expected assigned id, got %q / %q", id, product.ID)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Tea" || got.Price != 12.5 || got.Quantity != 40 || got.Image != "uploads/tea.png" {
		t.Fatalf("unexpected product: %+v", got)
	}

	got.Price = 15
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Price != 15 {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, id); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestProductRepositoryMissingRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestProductRepo(t)

	t.Run("delete unknown id", func(t *testing.T) {
		if err := repo.Delete(ctx, "nope"); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("update unknown id", func(t *testing.T) {
		err := repo.Update(ctx, &domain.Product{ID: "nope", Name: "x"})
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("decrement unknown id", func(t *testing.T) {
		if err := repo.DecrementQuantity(ctx, "nope", 1, false); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := repo.DecrementQuantity(ctx, "nope", 1, true); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for guarded decrement, got %v", err)
		}
	})
}

func TestProductRepositoryDecrement(t *testing.T) {
	ctx := context.Background()
	repo := newTestProductRepo(t)

	product := &domain.Product{Name: "Biscuit", Price: 5, Quantity: 3}
	if _, err := repo.Create(ctx, product); err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("unguarded goes negative", func(t *testing.T) {
		if err := repo.DecrementQuantity(ctx, product.ID, 5, false); err != nil {
			t.Fatalf("decrement: %v", err)
		}
		got, err := repo.Get(ctx, product.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Quantity != -2 {
			t.Fatalf("expected -2, got %d", got.Quantity)
		}
	})

	t.Run("guarded reports shortfall and leaves stock", func(t *testing.T) {
		err := repo.DecrementQuantity(ctx, product.ID, 1, true)
		if !errors.Is(err, repository.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		got, err := repo.Get(ctx, product.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Quantity != -2 {
			t.Fatalf("stock changed to %d", got.Quantity)
		}
	})
}
