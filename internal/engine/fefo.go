package engine

import (
	"fmt"
	"sort"

	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/gorm"
)

// BatchAllocation is one batch's share of a FEFO withdrawal.
type BatchAllocation struct {
	Batch models.MaterialBatch
	Taken float64
}

// planFEFO distributes a withdrawal across batches, earliest expiry
// first, batches without an expiry date last (by intake date). Returns
// the allocations and the quantity that could not be covered. The input
// slice is not mutated; only batches with remaining quantity > 0
// participate.
func planFEFO(batches []models.MaterialBatch, qty float64) ([]BatchAllocation, float64) {
	ordered := make([]models.MaterialBatch, 0, len(batches))
	for _, b := range batches {
		if b.Active && b.Quantity > 0 {
			ordered = append(ordered, b)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		bi, bj := ordered[i], ordered[j]
		switch {
		case bi.ExpiryDate != nil && bj.ExpiryDate != nil:
			if !bi.ExpiryDate.Equal(*bj.ExpiryDate) {
				return bi.ExpiryDate.Before(*bj.ExpiryDate)
			}
			return bi.IntakeDate.Before(bj.IntakeDate)
		case bi.ExpiryDate != nil:
			return true
		case bj.ExpiryDate != nil:
			return false
		default:
			return bi.IntakeDate.Before(bj.IntakeDate)
		}
	})

	var allocations []BatchAllocation
	needed := qty
	for _, b := range ordered {
		if needed <= 0 {
			break
		}
		take := b.Quantity
		if take > needed {
			take = needed
		}
		allocations = append(allocations, BatchAllocation{Batch: b, Taken: take})
		needed -= take
	}
	return allocations, needed
}

// allocateFEFO plans and applies a withdrawal inside the caller's
// transaction: each touched batch is decremented and flipped inactive
// when it reaches zero. Partial allocation is only ever visible if the
// surrounding transaction commits.
func allocateFEFO(tx *gorm.DB, materialID uint, qty float64) ([]BatchAllocation, float64, error) {
	var batches []models.MaterialBatch
	err := tx.Where("material_id = ? AND active = ? AND quantity > 0", materialID, true).
		Find(&batches).Error
	if err != nil {
		return nil, 0, fmt.Errorf("loading batches for material %d: %w", materialID, err)
	}

	allocations, remainder := planFEFO(batches, qty)
	for i := range allocations {
		a := &allocations[i]
		a.Batch.Quantity -= a.Taken
		if a.Batch.Quantity <= 0 {
			a.Batch.Quantity = 0
			a.Batch.Active = false
		}
		err := tx.Model(&models.MaterialBatch{}).
			Where("id = ?", a.Batch.ID).
			Updates(map[string]interface{}{
				"quantity": a.Batch.Quantity,
				"active":   a.Batch.Active,
			}).Error
		if err != nil {
			return nil, 0, fmt.Errorf("updating batch %d: %w", a.Batch.ID, err)
		}
	}
	return allocations, remainder, nil
}
