package engine

import (
	"fmt"

	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/gorm"
)

// dependencyRow is one precedence edge whose successor is incomplete.
type dependencyRow struct {
	ActivityID          uint
	ActivityName        string
	PredecessorName     string
	PredecessorProgress float64
	Type                string
}

// BlockedActivity is an activity that cannot proceed, with the full set
// of unmet predecessors and the materials assigned to it for operator
// context.
type BlockedActivity struct {
	ActivityID uint             `json:"activity_id"`
	Name       string           `json:"name"`
	Severity   string           `json:"severity"`
	Blockers   []models.Blocker `json:"blockers"`
	Materials  []string         `json:"materials"`
}

// edgeBlocks evaluates one precedence edge. FS requires the predecessor
// finished; SS and SF require it started; FF carries no blocking
// semantics here.
func edgeBlocks(edgeType string, predecessorProgress float64) bool {
	switch edgeType {
	case models.DependencyFS:
		return predecessorProgress < 100
	case models.DependencySS, models.DependencySF:
		return predecessorProgress == 0
	default:
		return false
	}
}

// groupBlocked folds edge rows into per-activity blocking results.
// Severity is high when any blocker has not started at all, medium
// otherwise. Result order follows first appearance in rows.
func groupBlocked(rows []dependencyRow) []BlockedActivity {
	var order []uint
	byActivity := make(map[uint]*BlockedActivity)

	for _, r := range rows {
		if !edgeBlocks(r.Type, r.PredecessorProgress) {
			continue
		}
		ba, ok := byActivity[r.ActivityID]
		if !ok {
			ba = &BlockedActivity{
				ActivityID: r.ActivityID,
				Name:       r.ActivityName,
				Severity:   models.SeverityMedium,
			}
			byActivity[r.ActivityID] = ba
			order = append(order, r.ActivityID)
		}
		ba.Blockers = append(ba.Blockers, models.Blocker{
			Name:     r.PredecessorName,
			Progress: r.PredecessorProgress,
			Type:     r.Type,
		})
		if r.PredecessorProgress == 0 {
			ba.Severity = models.SeverityHigh
		}
	}

	blocked := make([]BlockedActivity, 0, len(order))
	for _, id := range order {
		blocked = append(blocked, *byActivity[id])
	}
	return blocked
}

// blockedActivities analyzes the project's precedence edges and attaches
// the affected material names to every blocked activity.
func blockedActivities(tx *gorm.DB, projectID uint) ([]BlockedActivity, error) {
	var rows []dependencyRow
	err := tx.Table("activity_dependencies AS dep").
		Select(`dep.activity_id,
			a.name AS activity_name,
			p.name AS predecessor_name,
			p.real_progress AS predecessor_progress,
			dep.type`).
		Joins("JOIN activities a ON a.id = dep.activity_id").
		Joins("JOIN activities p ON p.id = dep.predecessor_id").
		Where("a.project_id = ? AND a.real_progress < 100", projectID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading dependency edges: %w", err)
	}

	blocked := groupBlocked(rows)
	for i := range blocked {
		var names []string
		err := tx.Table("activity_materials AS am").
			Joins("JOIN materials m ON m.id = am.material_id").
			Where("am.activity_id = ?", blocked[i].ActivityID).
			Order("m.name").
			Pluck("m.name", &names).Error
		if err != nil {
			return nil, fmt.Errorf("loading materials of blocked activity %d: %w", blocked[i].ActivityID, err)
		}
		blocked[i].Materials = names
	}
	return blocked, nil
}

// BlockedActivities is the read-only analyzer entry point.
func (e *Engine) BlockedActivities(projectID uint) ([]BlockedActivity, error) {
	return blockedActivities(e.db.DB, projectID)
}
