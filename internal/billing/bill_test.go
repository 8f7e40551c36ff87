package billing

import (
	"context"
	"errors"
	"testing"

	"pos-billing/internal/domain"
)

var (
	productA = domain.Product{ID: "a", Name: "Rice", Price: 50, Quantity: 10}
	productB = domain.Product{ID: "b", Name: "Oil", Price: 12.25, Quantity: 4}
)

type recordingSubmitter struct {
	got [][]domain.Adjustment
	err error
}

func (s *recordingSubmitter) SubmitAdjustments(_ context.Context, adjustments []domain.Adjustment) error {
	s.got = append(s.got, adjustments)
	return s.err
}

func TestApplyIncrementsMerge(t *testing.T) {
	bill := NewBill()
	for i := 0; i < 5; i++ {
		if err := bill.Apply(productA, 1); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if err := bill.Apply(productB, 1); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if bill.Len() != 2 {
		t.Fatalf("expected 2 lines, got %d", bill.Len())
	}
	line, ok := bill.Line("a")
	if !ok || line.Quantity != 5 {
		t.Fatalf("expected quantity 5 for a, got %+v (%v)", line, ok)
	}

	lines := bill.Lines()
	if lines[0].ProductID != "a" || lines[1].ProductID != "b" {
		t.Fatalf("lines not in insertion order: %+v", lines)
	}
}

func TestApplyDecrements(t *testing.T) {
	t.Run("decrement to zero removes line", func(t *testing.T) {
		bill := NewBill()
		_ = bill.Apply(productA, 1)
		if err := bill.Apply(productA, -1); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if _, ok := bill.Line("a"); ok {
			t.Fatalf("line should be removed")
		}
		if !bill.IsEmpty() || bill.Total() != 0 {
			t.Fatalf("expected empty bill with total 0, got %d lines total %v", bill.Len(), bill.Total())
		}
	})

	t.Run("decrement below zero removes line", func(t *testing.T) {
		bill := NewBill()
		_ = bill.Apply(productA, 2)
		_ = bill.Apply(productA, -7)
		if !bill.IsEmpty() {
			t.Fatalf("expected empty bill")
		}
	})

	t.Run("decrement without line is a no-op", func(t *testing.T) {
		bill := NewBill()
		if err := bill.Apply(productA, -1); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if !bill.IsEmpty() {
			t.Fatalf("expected empty bill")
		}
	})

	t.Run("removal keeps the remaining order", func(t *testing.T) {
		bill := NewBill()
		c := domain.Product{ID: "c", Name: "Salt", Price: 1}
		_ = bill.Apply(productA, 1)
		_ = bill.Apply(productB, 1)
		_ = bill.Apply(c, 1)
		_ = bill.Apply(productA, -1)
		_ = bill.Apply(c, 2)

		lines := bill.Lines()
		if len(lines) != 2 || lines[0].ProductID != "b" || lines[1].ProductID != "c" || lines[1].Quantity != 3 {
			t.Fatalf("unexpected lines: %+v", lines)
		}
	})
}

func TestApplyRejectsBadInput(t *testing.T) {
	bill := NewBill()
	if err := bill.Apply(productA, 0); !errors.Is(err, ErrZeroDelta) {
		t.Fatalf("expected ErrZeroDelta, got %v", err)
	}
	if err := bill.Apply(domain.Product{Name: "x"}, 1); !errors.Is(err, ErrMissingProductID) {
		t.Fatalf("expected ErrMissingProductID, got %v", err)
	}
	if !bill.IsEmpty() {
		t.Fatalf("rejected applies must not change the bill")
	}
}

func TestApplyLargeDeltaAndRepricing(t *testing.T) {
	bill := NewBill()
	_ = bill.Apply(productA, 4)
	line, _ := bill.Line("a")
	if line.Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", line.Quantity)
	}

	repriced := productA
	repriced.Price = 55
	repriced.Name = "Rice 1kg"
	_ = bill.Apply(repriced, 1)

	line, _ = bill.Line("a")
	if line.Quantity != 5 || line.Price != 55 || line.Name != "Rice 1kg" {
		t.Fatalf("expected refreshed snapshot with quantity 5, got %+v", line)
	}
	if bill.Total() != 275 {
		t.Fatalf("expected total 275, got %v", bill.Total())
	}
}

func TestTotals(t *testing.T) {
	bill := NewBill()
	if bill.Total() != 0 {
		t.Fatalf("empty bill total should be 0")
	}
	_ = bill.Apply(productA, 2)
	_ = bill.Apply(productB, 3)

	var want float64
	for _, l := range bill.Lines() {
		want += l.Price * float64(l.Quantity)
	}
	if got := bill.Total(); got != want || got != 136.75 {
		t.Fatalf("expected total %v (136.75), got %v", want, got)
	}
	line, _ := bill.Line("b")
	if line.Amount() != 36.75 {
		t.Fatalf("expected unrounded line amount 36.75, got %v", line.Amount())
	}
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("scenario: three increments then finalize", func(t *testing.T) {
		bill := NewBill()
		for i := 0; i < 3; i++ {
			_ = bill.Apply(productA, 1)
		}
		line, _ := bill.Line("a")
		if bill.Len() != 1 || line.Quantity != 3 || line.Amount() != 150 {
			t.Fatalf("unexpected bill: %+v", bill.Lines())
		}

		sub := &recordingSubmitter{}
		adjustments, err := bill.Finalize(ctx, sub)
		if err != nil {
			t.Fatalf("finalize: %v", err)
		}
		want := []domain.Adjustment{{ProductID: "a", Quantity: 3}}
		if len(sub.got) != 1 || len(sub.got[0]) != 1 || sub.got[0][0] != want[0] {
			t.Fatalf("unexpected submission: %+v", sub.got)
		}
		if len(adjustments) != 1 || adjustments[0] != want[0] {
			t.Fatalf("unexpected adjustments: %+v", adjustments)
		}
		if !bill.IsEmpty() {
			t.Fatalf("bill should be empty after finalize")
		}
		last := bill.LastFinalized()
		if len(last) != 1 || last[0].ProductID != "a" || last[0].Quantity != 3 {
			t.Fatalf("expected finalized lines kept, got %+v", last)
		}
	})

	t.Run("submitter failure keeps the bill", func(t *testing.T) {
		bill := NewBill()
		_ = bill.Apply(productA, 2)
		boom := errors.New("store down")
		if _, err := bill.Finalize(ctx, &recordingSubmitter{err: boom}); !errors.Is(err, boom) {
			t.Fatalf("expected submitter error, got %v", err)
		}
		if line, ok := bill.Line("a"); !ok || line.Quantity != 2 {
			t.Fatalf("bill should be intact, got %+v", bill.Lines())
		}
		if bill.LastFinalized() != nil {
			t.Fatalf("failed finalize must not record lines")
		}
	})

	t.Run("empty bill", func(t *testing.T) {
		bill := NewBill()
		sub := &recordingSubmitter{}
		if _, err := bill.Finalize(ctx, sub); !errors.Is(err, ErrEmptyBill) {
			t.Fatalf("expected ErrEmptyBill, got %v", err)
		}
		if len(sub.got) != 0 {
			t.Fatalf("empty bill must not be submitted")
		}
		if !bill.IsEmpty() {
			t.Fatalf("bill should stay empty")
		}
	})

	t.Run("submitter func", func(t *testing.T) {
		bill := NewBill()
		_ = bill.Apply(productA, 1)
		_ = bill.Apply(productB, 2)
		var seen []domain.Adjustment
		_, err := bill.Finalize(ctx, SubmitterFunc(func(_ context.Context, a []domain.Adjustment) error {
			seen = a
			return nil
		}))
		if err != nil {
			t.Fatalf("finalize: %v", err)
		}
		if len(seen) != 2 || seen[0].ProductID != "a" || seen[1] != (domain.Adjustment{ProductID: "b", Quantity: 2}) {
			t.Fatalf("unexpected adjustments: %+v", seen)
		}
	})
}

func TestLineSnapshotDecrementsWithoutCatalog(t *testing.T) {
	bill := NewBill()
	_ = bill.Apply(productA, 2)

	line, _ := bill.Line("a")
	snap := line.Snapshot()
	if snap.ID != "a" || snap.Price != productA.Price || snap.Name != productA.Name {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if err := bill.Apply(snap, -1); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if line, _ := bill.Line("a"); line.Quantity != 1 || line.Price != 50 {
		t.Fatalf("unexpected line %+v", line)
	}
	_ = bill.Apply(snap, -1)
	if !bill.IsEmpty() {
		t.Fatalf("line should be removed at zero")
	}
}

func TestZeroValueBillIsUsable(t *testing.T) {
	var bill Bill
	if err := bill.Apply(productA, 1); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if bill.Len() != 1 {
		t.Fatalf("expected one line")
	}
}
