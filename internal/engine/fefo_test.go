package engine

import (
	"testing"
	"time"

	"github.com/sitemat/sitematgo/internal/models"
)

func day(offset int) time.Time {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func dayPtr(offset int) *time.Time {
	d := day(offset)
	return &d
}

func TestPlanFEFOOrdering(t *testing.T) {
	batches := []models.MaterialBatch{
		{ID: 1, Quantity: 10, ExpiryDate: dayPtr(30), IntakeDate: day(-5), Active: true},
		{ID: 2, Quantity: 10, ExpiryDate: dayPtr(10), IntakeDate: day(-20), Active: true},
		{ID: 3, Quantity: 10, ExpiryDate: nil, IntakeDate: day(-30), Active: true},
		{ID: 4, Quantity: 10, ExpiryDate: nil, IntakeDate: day(-40), Active: true},
	}

	allocations, remainder := planFEFO(batches, 35)
	if remainder != 0 {
		t.Fatalf("remainder = %v, want 0", remainder)
	}

	// Earliest expiry first, then later expiry, then no-expiry by intake
	wantOrder := []uint{2, 1, 4}
	if len(allocations) != len(wantOrder) {
		t.Fatalf("got %d allocations, want %d", len(allocations), len(wantOrder))
	}
	for i, want := range wantOrder {
		if allocations[i].Batch.ID != want {
			t.Errorf("allocation %d hit batch %d, want %d", i, allocations[i].Batch.ID, want)
		}
	}
	if allocations[2].Taken != 10 {
		t.Errorf("last allocation took %v, want 10", allocations[2].Taken)
	}
}

func TestPlanFEFOExpiryTieBreaksByIntake(t *testing.T) {
	batches := []models.MaterialBatch{
		{ID: 1, Quantity: 5, ExpiryDate: dayPtr(10), IntakeDate: day(-2), Active: true},
		{ID: 2, Quantity: 5, ExpiryDate: dayPtr(10), IntakeDate: day(-9), Active: true},
	}

	allocations, _ := planFEFO(batches, 5)
	if len(allocations) != 1 || allocations[0].Batch.ID != 2 {
		t.Fatalf("tie break picked batch %d, want 2", allocations[0].Batch.ID)
	}
}

func TestPlanFEFOPartialAndShortfall(t *testing.T) {
	batches := []models.MaterialBatch{
		{ID: 1, Quantity: 8, ExpiryDate: dayPtr(5), IntakeDate: day(-10), Active: true},
		{ID: 2, Quantity: 4, ExpiryDate: dayPtr(15), IntakeDate: day(-8), Active: true},
	}

	// Partial take from the second batch
	allocations, remainder := planFEFO(batches, 10)
	if remainder != 0 {
		t.Fatalf("remainder = %v, want 0", remainder)
	}
	if allocations[0].Taken != 8 || allocations[1].Taken != 2 {
		t.Errorf("takes = %v, %v; want 8, 2", allocations[0].Taken, allocations[1].Taken)
	}

	// Demand beyond batch coverage leaves a remainder
	allocations, remainder = planFEFO(batches, 20)
	if remainder != 8 {
		t.Errorf("remainder = %v, want 8", remainder)
	}
	if total := allocations[0].Taken + allocations[1].Taken; total != 12 {
		t.Errorf("total taken = %v, want 12", total)
	}
}

func TestPlanFEFOSkipsInactiveAndEmpty(t *testing.T) {
	batches := []models.MaterialBatch{
		{ID: 1, Quantity: 0, ExpiryDate: dayPtr(1), IntakeDate: day(-10), Active: true},
		{ID: 2, Quantity: 10, ExpiryDate: dayPtr(2), IntakeDate: day(-10), Active: false},
		{ID: 3, Quantity: 10, ExpiryDate: dayPtr(3), IntakeDate: day(-10), Active: true},
	}

	allocations, remainder := planFEFO(batches, 5)
	if len(allocations) != 1 || allocations[0].Batch.ID != 3 {
		t.Fatalf("expected only batch 3 to participate, got %+v", allocations)
	}
	if remainder != 0 {
		t.Errorf("remainder = %v, want 0", remainder)
	}
}

func TestPlanFEFODoesNotMutateInput(t *testing.T) {
	batches := []models.MaterialBatch{
		{ID: 1, Quantity: 8, ExpiryDate: dayPtr(5), IntakeDate: day(-10), Active: true},
	}
	planFEFO(batches, 5)
	if batches[0].Quantity != 8 {
		t.Errorf("input batch mutated: quantity = %v", batches[0].Quantity)
	}
}
