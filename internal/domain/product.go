package domain

import "time"

// Product is a catalog entry sold at the counter.
type Product struct {
	ID        string
	Name      string
	Price     float64
	Quantity  int
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductPatch carries the fields of a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Name     *string
	Price    *float64
	Quantity *int
	Image    *string
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.Quantity == nil && p.Image == nil
}

// Apply merges the patch into the product.
func (p ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Quantity != nil {
		product.Quantity = *p.Quantity
	}
	if p.Image != nil {
		product.Image = *p.Image
	}
}

// Adjustment is a single stock decrement request: subtract Quantity units from ProductID.
type Adjustment struct {
	ProductID string
	Quantity  int
}
