package engine

import (
	"fmt"

	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/gorm"
)

// ConsumptionInput is one material withdrawal accompanying a progress
// confirmation.
type ConsumptionInput struct {
	LinkID     uint    `json:"link_id"`
	MaterialID uint    `json:"material_id"`
	Quantity   float64 `json:"quantity"`
}

// Post-transaction stock risk bands reported back to the caller.
const (
	RiskCritical = "critical"
	RiskLow      = "low"
)

// MaterialRisk is one material whose stock landed in a risk band after
// the confirmation.
type MaterialRisk struct {
	MaterialID   uint    `json:"material_id"`
	Name         string  `json:"name"`
	Level        string  `json:"level"`
	CurrentStock float64 `json:"current_stock"`
	MinStock     float64 `json:"min_stock"`
}

// ConfirmResult reports stock-insufficiency adjustments and the
// materials left at risk, for immediate operator feedback. Callers are
// expected to re-trigger alert regeneration separately.
type ConfirmResult struct {
	ActivityID      uint           `json:"activity_id"`
	NewProgress     float64        `json:"new_progress"`
	ProjectProgress float64        `json:"project_progress"`
	Warnings        []string       `json:"warnings"`
	RiskyMaterials  []MaterialRisk `json:"risky_materials"`
}

// ConfirmProgress advances an activity's real progress and atomically
// consumes the given materials. Requested quantities are capped to
// available stock (warning, not failure); perishable withdrawals go
// through the FEFO allocator with one movement per batch touched.
// Either every step commits or none do.
func (e *Engine) ConfirmProgress(activityID uint, newProgress float64, consumptions []ConsumptionInput) (*ConfirmResult, error) {
	result := &ConfirmResult{ActivityID: activityID, NewProgress: newProgress}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		var activity models.Activity
		if err := tx.First(&activity, activityID).Error; err != nil {
			return notFound(err)
		}

		if newProgress <= activity.RealProgress {
			return validationErrorf(
				"new progress (%.1f%%) must exceed current progress (%.1f%%)",
				newProgress, activity.RealProgress)
		}
		if newProgress > 100 {
			return validationErrorf("progress cannot exceed 100%%, got %.1f%%", newProgress)
		}

		now := e.now()
		for _, c := range consumptions {
			if c.Quantity <= 0 {
				continue
			}

			var link models.ActivityMaterial
			if err := tx.First(&link, c.LinkID).Error; err != nil {
				return notFound(err)
			}
			if link.ActivityID != activityID {
				return validationErrorf("material link %d does not belong to activity %d", c.LinkID, activityID)
			}

			var material models.Material
			if err := tx.First(&material, link.MaterialID).Error; err != nil {
				return notFound(err)
			}

			// Cap to available stock; stock can never go negative.
			capped := c.Quantity
			if capped > material.CurrentStock {
				capped = material.CurrentStock
			}
			if capped <= 0 {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"%s: no stock available, consumption of %.2f skipped",
					material.Name, c.Quantity))
				continue
			}
			if capped < c.Quantity {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"%s: requested %.2f but only %.2f in stock; consumption capped",
					material.Name, c.Quantity, capped))
			}

			reason := fmt.Sprintf("Progress confirmation of activity %q (%.0f%%)", activity.Name, newProgress)

			if material.IsPerishable {
				allocations, remainder, err := allocateFEFO(tx, material.ID, capped)
				if err != nil {
					return err
				}
				for _, a := range allocations {
					batchID := a.Batch.ID
					movement := models.InventoryMovement{
						MaterialID: material.ID,
						BatchID:    &batchID,
						ProjectID:  &activity.ProjectID,
						Type:       models.MovementOut,
						Quantity:   a.Taken,
						Reason:     reason,
						OccurredAt: now,
					}
					if err := tx.Create(&movement).Error; err != nil {
						return fmt.Errorf("recording batch movement: %w", err)
					}
				}
				if remainder > 0 {
					// Stock not covered by batch tracking leaves as an
					// un-batched withdrawal.
					movement := models.InventoryMovement{
						MaterialID: material.ID,
						ProjectID:  &activity.ProjectID,
						Type:       models.MovementOut,
						Quantity:   remainder,
						Reason:     reason + " (no batch coverage)",
						OccurredAt: now,
					}
					if err := tx.Create(&movement).Error; err != nil {
						return fmt.Errorf("recording unbatched movement: %w", err)
					}
				}
			} else {
				movement := models.InventoryMovement{
					MaterialID: material.ID,
					ProjectID:  &activity.ProjectID,
					Type:       models.MovementOut,
					Quantity:   capped,
					Reason:     reason,
					OccurredAt: now,
				}
				if err := tx.Create(&movement).Error; err != nil {
					return fmt.Errorf("recording movement: %w", err)
				}
			}

			material.CurrentStock -= capped
			if err := tx.Model(&models.Material{}).Where("id = ?", material.ID).
				Update("current_stock", material.CurrentStock).Error; err != nil {
				return fmt.Errorf("updating stock of material %d: %w", material.ID, err)
			}

			// Ledger update; a consumption overrun corrects the estimate.
			link.ConsumedQty += capped
			if link.ConsumedQty > link.EstimatedQty {
				link.EstimatedQty = link.ConsumedQty
			}
			if err := tx.Model(&models.ActivityMaterial{}).Where("id = ?", link.ID).
				Updates(map[string]interface{}{
					"consumed_qty":  link.ConsumedQty,
					"estimated_qty": link.EstimatedQty,
				}).Error; err != nil {
				return fmt.Errorf("updating consumption ledger %d: %w", link.ID, err)
			}

			if level, at := stockRisk(material.CurrentStock, material.MinStock); at {
				result.RiskyMaterials = append(result.RiskyMaterials, MaterialRisk{
					MaterialID:   material.ID,
					Name:         material.Name,
					Level:        level,
					CurrentStock: material.CurrentStock,
					MinStock:     material.MinStock,
				})
			}
		}

		updates := map[string]interface{}{"real_progress": newProgress}
		if activity.RealProgress == 0 && activity.RealStartDate == nil {
			updates["real_start_date"] = now
		}
		if newProgress >= 100 && activity.RealEndDate == nil {
			updates["real_end_date"] = now
		}
		if err := tx.Model(&models.Activity{}).Where("id = ?", activity.ID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("updating activity progress: %w", err)
		}

		// The project's overall progress is the mean of its activities.
		overall, err := recomputeProjectProgress(tx, activity.ProjectID)
		if err != nil {
			return err
		}
		result.ProjectProgress = overall
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// stockRisk classifies a post-transaction stock level. Mirrors the
// simulator's critical band but without the warning tier: operator
// feedback only covers levels that demand an order.
func stockRisk(stock, minStock float64) (string, bool) {
	switch {
	case stock <= 0 || stock < minStock*0.5:
		return RiskCritical, true
	case stock < minStock:
		return RiskLow, true
	default:
		return "", false
	}
}

// recomputeProjectProgress stores and returns the mean real progress of
// the project's activities, rounded to one decimal.
func recomputeProjectProgress(tx *gorm.DB, projectID uint) (float64, error) {
	var avg struct {
		Value *float64
	}
	err := tx.Table("activities").
		Select("AVG(real_progress) AS value").
		Where("project_id = ?", projectID).
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("averaging project progress: %w", err)
	}
	overall := 0.0
	if avg.Value != nil {
		overall = round1(*avg.Value)
	}
	err = tx.Model(&models.Project{}).Where("id = ?", projectID).
		Update("overall_progress", overall).Error
	if err != nil {
		return 0, fmt.Errorf("updating project progress: %w", err)
	}
	return overall, nil
}
