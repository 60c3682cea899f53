package engine

import (
	"fmt"

	"gorm.io/gorm"
)

// projectorRow is one activity-material link of an incomplete activity.
type projectorRow struct {
	MaterialID   uint
	RealProgress float64
	EstimatedQty float64
	ConsumedQty  float64
}

// pendingConsumption maps material id to the quantity still expected to
// be consumed by the project's incomplete activities. Pure read; a
// link's contribution is clamped at zero if data drift ever leaves
// consumed above estimated.
func pendingConsumption(tx *gorm.DB, projectID uint) (map[uint]float64, error) {
	var rows []projectorRow
	err := tx.Table("activity_materials AS am").
		Select("am.material_id, a.real_progress, am.estimated_qty, am.consumed_qty").
		Joins("JOIN activities a ON a.id = am.activity_id").
		Where("a.project_id = ? AND a.real_progress < 100", projectID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading pending consumption: %w", err)
	}

	pending := make(map[uint]float64, len(rows))
	for _, r := range rows {
		contribution := (r.EstimatedQty - r.ConsumedQty) * (100 - r.RealProgress) / 100
		if contribution < 0 {
			contribution = 0
		}
		pending[r.MaterialID] += contribution
	}
	return pending, nil
}

// PendingConsumption is the read-only projector entry point.
func (e *Engine) PendingConsumption(projectID uint) (map[uint]float64, error) {
	var exists int64
	if err := e.db.Table("projects").Where("id = ?", projectID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrNotFound
	}
	return pendingConsumption(e.db.DB, projectID)
}
