package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"pos-billing/internal/domain"
	"pos-billing/internal/metrics"
	"pos-billing/internal/repository"
	"pos-billing/internal/storage"
)

// Upload is an image received alongside a new product.
type Upload struct {
	Filename string
	Body     io.Reader
}

// NewProduct carries the fields accepted when adding a product to the catalog.
type NewProduct struct {
	Name     string
	Price    float64
	Quantity int
	Image    *Upload
}

// AdjustmentResult reports the outcome of one stock decrement of a batch.
type AdjustmentResult struct {
	ProductID string
	Quantity  int
	Err       error
}

// ProductService coordinates catalog operations backed by the product repository.
type ProductService interface {
	CreateProduct(ctx context.Context, input NewProduct) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	// DeleteProduct removes the product and, best effort, its image. Image
	// cleanup problems come back as warnings.
	DeleteProduct(ctx context.Context, id string) ([]string, error)
	// AdjustInventory decrements stock for every adjustment independently and
	// in order. Every item is attempted; the results follow the input order.
	// If any item fails the returned error wraps ErrAdjustmentFailed.
	AdjustInventory(ctx context.Context, adjustments []domain.Adjustment) ([]AdjustmentResult, error)
}

// ProductOptions tunes catalog behaviour.
type ProductOptions struct {
	// AllowNegativeStock keeps unguarded decrements. When false a decrement
	// larger than the stock fails for that item with repository.ErrInsufficientStock.
	AllowNegativeStock bool
	Metrics            *metrics.Metrics
}

type productService struct {
	products repository.ProductRepository
	images   storage.Service
	opts     ProductOptions
}

func NewProductService(products repository.ProductRepository, images storage.Service, opts ProductOptions) ProductService {
	return &productService{
		products: products,
		images:   images,
		opts:     opts,
	}
}

func (s *productService) CreateProduct(ctx context.Context, input NewProduct) (*domain.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}

	product := &domain.Product{
		Name:     input.Name,
		Price:    input.Price,
		Quantity: input.Quantity,
	}

	if input.Image != nil {
		if s.images == nil {
			return nil, fmt.Errorf("image storage not configured")
		}
		ref, err := s.images.Save(ctx, input.Image.Filename, input.Image.Body)
		if err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
		product.Image = ref
	}

	if _, err := s.products.Create(ctx, product); err != nil {
		if product.Image != "" {
			_ = s.images.Delete(ctx, product.Image)
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}
	product, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

func (s *productService) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		patch.Name = &name
	}
	if patch.Price != nil {
		if err := validatePrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	if patch.Empty() {
		return product, nil
	}

	patch.Apply(product)
	if err := s.products.Update(ctx, product); err != nil {
		return nil, mapNotFound(err)
	}
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) ([]string, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}

	var warnings []string
	if product.Image != "" && s.images != nil {
		if err := s.images.Delete(ctx, product.Image); err != nil {
			warnings = append(warnings, fmt.Sprintf("remove image %s: %v", product.Image, err))
		}
	}
	return warnings, nil
}

func (s *productService) AdjustInventory(ctx context.Context, adjustments []domain.Adjustment) ([]AdjustmentResult, error) {
	if len(adjustments) == 0 {
		return nil, fmt.Errorf("%w: items are required", ErrInvalidInput)
	}
	for i, adj := range adjustments {
		if strings.TrimSpace(adj.ProductID) == "" {
			return nil, fmt.Errorf("%w: item %d: product id is required", ErrInvalidInput, i)
		}
		if adj.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d: quantity must be positive", ErrInvalidInput, i)
		}
	}

	guard := !s.opts.AllowNegativeStock
	results := make([]AdjustmentResult, len(adjustments))
	failed := 0
	for i, adj := range adjustments {
		err := s.products.DecrementQuantity(ctx, adj.ProductID, adj.Quantity, guard)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrNotFound):
			err = ErrProductNotFound
		case errors.Is(err, repository.ErrInsufficientStock):
			err = repository.ErrInsufficientStock
		}
		if err != nil {
			failed++
		}
		s.opts.Metrics.StockAdjusted(adjustmentOutcome(err))
		results[i] = AdjustmentResult{ProductID: adj.ProductID, Quantity: adj.Quantity, Err: err}
	}

	if failed > 0 {
		return results, fmt.Errorf("%w: %d of %d items", ErrAdjustmentFailed, failed, len(adjustments))
	}
	return results, nil
}

func adjustmentOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrProductNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "error"
	}
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return fmt.Errorf("%w: price must be a non-negative number", ErrInvalidInput)
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProductNotFound
	}
	return err
}
