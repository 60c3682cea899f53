package engine

import (
	"fmt"

	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/gorm"
)

// MovementInput describes a manual inventory movement.
type MovementInput struct {
	MaterialID uint    `json:"material_id"`
	ProjectID  *uint   `json:"project_id,omitempty"`
	Type       string  `json:"type"`
	Quantity   float64 `json:"quantity"`
	Reason     string  `json:"reason"`
	Actor      string  `json:"actor"`
}

// RecordMovement applies a manual in/out/adjust movement. Outbound
// withdrawals from perishable materials go through the same FEFO
// allocation routine as the progress confirmation path, so the two
// writers cannot race each other into a double withdrawal. Unlike the
// confirmation path, a manual movement that would drive stock negative
// is rejected outright.
func (e *Engine) RecordMovement(input MovementInput) (*models.InventoryMovement, error) {
	if input.Quantity <= 0 && input.Type != models.MovementAdjust {
		return nil, validationErrorf("movement quantity must be positive, got %.2f", input.Quantity)
	}

	var created models.InventoryMovement
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var material models.Material
		if err := tx.First(&material, input.MaterialID).Error; err != nil {
			return notFound(err)
		}

		now := e.now()
		actor := input.Actor
		if actor == "" {
			actor = "system"
		}

		switch input.Type {
		case models.MovementIn:
			material.CurrentStock += input.Quantity

		case models.MovementOut:
			if input.Quantity > material.CurrentStock {
				return validationErrorf(
					"cannot withdraw %.2f of %s: only %.2f in stock",
					input.Quantity, material.Name, material.CurrentStock)
			}
			if material.IsPerishable {
				allocations, remainder, err := allocateFEFO(tx, material.ID, input.Quantity)
				if err != nil {
					return err
				}
				for _, a := range allocations {
					batchID := a.Batch.ID
					m := models.InventoryMovement{
						MaterialID: material.ID,
						BatchID:    &batchID,
						ProjectID:  input.ProjectID,
						Type:       models.MovementOut,
						Quantity:   a.Taken,
						Reason:     input.Reason,
						Actor:      actor,
						OccurredAt: now,
					}
					if err := tx.Create(&m).Error; err != nil {
						return fmt.Errorf("recording batch movement: %w", err)
					}
					created = m
				}
				if remainder > 0 {
					m := models.InventoryMovement{
						MaterialID: material.ID,
						ProjectID:  input.ProjectID,
						Type:       models.MovementOut,
						Quantity:   remainder,
						Reason:     input.Reason,
						Actor:      actor,
						OccurredAt: now,
					}
					if err := tx.Create(&m).Error; err != nil {
						return fmt.Errorf("recording unbatched movement: %w", err)
					}
					created = m
				}
				material.CurrentStock -= input.Quantity
				return tx.Model(&models.Material{}).Where("id = ?", material.ID).
					Update("current_stock", material.CurrentStock).Error
			}
			material.CurrentStock -= input.Quantity

		case models.MovementAdjust:
			if material.CurrentStock+input.Quantity < 0 {
				return validationErrorf(
					"adjustment of %.2f would leave %s with negative stock",
					input.Quantity, material.Name)
			}
			material.CurrentStock += input.Quantity

		default:
			return validationErrorf("unknown movement type %q", input.Type)
		}

		created = models.InventoryMovement{
			MaterialID: material.ID,
			ProjectID:  input.ProjectID,
			Type:       input.Type,
			Quantity:   input.Quantity,
			Reason:     input.Reason,
			Actor:      actor,
			OccurredAt: now,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("recording movement: %w", err)
		}

		return tx.Model(&models.Material{}).Where("id = ?", material.ID).
			Update("current_stock", material.CurrentStock).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
