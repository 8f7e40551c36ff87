// Package billing holds the counter-side bill: a running list of products
// with chosen quantities, its totals, and its conversion into stock
// adjustments once the customer pays.
package billing

import (
	"context"
	"errors"

	"pos-billing/internal/domain"
)

var (
	// ErrZeroDelta is returned when Apply is asked to change a quantity by zero.
	ErrZeroDelta = errors.New("quantity delta must not be zero")
	// ErrMissingProductID is returned when a snapshot carries no product id.
	ErrMissingProductID = errors.New("product id is required")
	// ErrEmptyBill is returned when finalizing a bill with no lines.
	ErrEmptyBill = errors.New("bill has no items")
)

// Line is one product on the bill with the snapshot it was last applied with.
type Line struct {
	ProductID string
	Name      string
	Price     float64
	Image     string
	Quantity  int
}

// Amount is price × quantity, unrounded.
func (l Line) Amount() float64 {
	return l.Price * float64(l.Quantity)
}

// Snapshot rebuilds the product snapshot the line was last applied with.
// It lets a line be decremented after its product left the catalog.
func (l Line) Snapshot() domain.Product {
	return domain.Product{ID: l.ProductID, Name: l.Name, Price: l.Price, Image: l.Image}
}

// Submitter receives the adjustments of a finalized bill. A nil error means
// the adjustments were accepted and the bill may be cleared.
type Submitter interface {
	SubmitAdjustments(ctx context.Context, adjustments []domain.Adjustment) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, adjustments []domain.Adjustment) error

func (f SubmitterFunc) SubmitAdjustments(ctx context.Context, adjustments []domain.Adjustment) error {
	return f(ctx, adjustments)
}

// Bill is a session-scoped running bill. At most one line exists per
// product and every line has a positive quantity. Lines keep the order in
// which products were first added.
//
// A Bill is not safe for concurrent use; Registry serializes access to the
// bills it owns.
type Bill struct {
	lines []Line
	index map[string]int
	// last holds the lines of the most recent successful Finalize.
	last []Line
}

func NewBill() *Bill {
	return &Bill{index: make(map[string]int)}
}

// Apply changes the quantity of the product's line by delta.
//
// A missing line is created only for a positive delta. An existing line
// whose quantity would drop to zero or below is removed. Otherwise the
// quantity is replaced and name, price and image are refreshed from the
// snapshot, so the bill always prices with the latest snapshot seen.
func (b *Bill) Apply(snapshot domain.Product, delta int) error {
	if delta == 0 {
		return ErrZeroDelta
	}
	if snapshot.ID == "" {
		return ErrMissingProductID
	}
	if b.index == nil {
		b.index = make(map[string]int)
	}

	pos, ok := b.index[snapshot.ID]
	if !ok {
		if delta < 0 {
			return nil
		}
		b.index[snapshot.ID] = len(b.lines)
		b.lines = append(b.lines, lineFromSnapshot(snapshot, delta))
		return nil
	}

	qty := b.lines[pos].Quantity + delta
	if qty <= 0 {
		b.remove(pos)
		return nil
	}
	b.lines[pos] = lineFromSnapshot(snapshot, qty)
	return nil
}

func (b *Bill) remove(pos int) {
	delete(b.index, b.lines[pos].ProductID)
	b.lines = append(b.lines[:pos], b.lines[pos+1:]...)
	for i := pos; i < len(b.lines); i++ {
		b.index[b.lines[i].ProductID] = i
	}
}

func lineFromSnapshot(p domain.Product, qty int) Line {
	return Line{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Quantity:  qty,
	}
}

// Lines returns a copy of the bill lines in insertion order.
func (b *Bill) Lines() []Line {
	out := make([]Line, len(b.lines))
	copy(out, b.lines)
	return out
}

// Line returns the line for productID, if any.
func (b *Bill) Line(productID string) (Line, bool) {
	pos, ok := b.index[productID]
	if !ok {
		return Line{}, false
	}
	return b.lines[pos], true
}

func (b *Bill) Len() int { return len(b.lines) }

func (b *Bill) IsEmpty() bool { return len(b.lines) == 0 }

// Total sums the line amounts. An empty bill totals 0.
func (b *Bill) Total() float64 {
	return Total(b.lines)
}

// Total sums Amount over lines.
func Total(lines []Line) float64 {
	var total float64
	for _, l := range lines {
		total += l.Amount()
	}
	return total
}

// Adjustments lists the current contents as stock decrements, in line order.
func (b *Bill) Adjustments() []domain.Adjustment {
	out := make([]domain.Adjustment, len(b.lines))
	for i, l := range b.lines {
		out[i] = domain.Adjustment{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return out
}

// Finalize submits the bill's adjustments and clears the bill once the
// submitter accepts them. On a submitter error the bill is left intact.
func (b *Bill) Finalize(ctx context.Context, submitter Submitter) ([]domain.Adjustment, error) {
	if b.IsEmpty() {
		return nil, ErrEmptyBill
	}
	adjustments := b.Adjustments()
	if err := submitter.SubmitAdjustments(ctx, adjustments); err != nil {
		return nil, err
	}
	b.last = b.Lines()
	b.Reset()
	return adjustments, nil
}

// LastFinalized returns a copy of the lines of the most recent successful
// Finalize, or nil if the bill was never finalized.
func (b *Bill) LastFinalized() []Line {
	if b.last == nil {
		return nil
	}
	out := make([]Line, len(b.last))
	copy(out, b.last)
	return out
}

// Reset drops every line. The last finalized lines are kept.
func (b *Bill) Reset() {
	b.lines = nil
	b.index = make(map[string]int)
}
