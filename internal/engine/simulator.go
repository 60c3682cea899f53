package engine

import (
	"fmt"
	"math"
	"sort"
)

// Simulated stock states, ordered by how bad things are.
const (
	StateCritical = "critical"
	StateLow      = "low"
	StateWarning  = "warning"
	StateOK       = "ok"
)

func stateRank(state string) int {
	switch state {
	case StateCritical:
		return 0
	case StateLow:
		return 1
	case StateWarning:
		return 2
	default:
		return 3
	}
}

// SimulatedMaterial is one material's outlook at the hypothetical
// progress level.
type SimulatedMaterial struct {
	MaterialID           uint    `json:"material_id"`
	Name                 string  `json:"name"`
	Unit                 string  `json:"unit"`
	CurrentStock         float64 `json:"current_stock"`
	MinStock             float64 `json:"min_stock"`
	ProjectedConsumption float64 `json:"projected_consumption"`
	ProjectedStock       float64 `json:"projected_stock"`
	StockPct             float64 `json:"stock_pct"`
	State                string  `json:"state"`
	DaysToDepletion      *int    `json:"days_to_depletion,omitempty"`
	NeedsReorder         bool    `json:"needs_reorder"`
	SuggestedQty         float64 `json:"suggested_qty"`
	SupplierName         string  `json:"supplier_name"`
	LeadTimeDays         int     `json:"lead_time_days"`
}

// SimulationSummary aggregates the report.
type SimulationSummary struct {
	TotalMaterials     int     `json:"total_materials"`
	CriticalMaterials  int     `json:"critical_materials"`
	MaterialsToReorder int     `json:"materials_to_reorder"`
	EstimatedOrderCost float64 `json:"estimated_order_cost"`
}

// SimulationReport answers "what would stock look like at X% overall
// progress", sorted worst-first.
type SimulationReport struct {
	SimulatedProgress float64             `json:"simulated_progress"`
	Materials         []SimulatedMaterial `json:"materials"`
	Summary           SimulationSummary   `json:"summary"`
}

// simulationRow is one activity-material link with its material and
// supplier context.
type simulationRow struct {
	RealProgress float64
	MaterialID   uint
	MaterialName string
	Unit         string
	EstimatedQty float64
	ConsumedQty  float64
	CurrentStock float64
	MinStock     float64
	UnitPrice    float64
	SupplierName string
	LeadTimeDays int
}

// simulatedActivityProgress shifts an activity by the project-level
// progress delta, capped at completion.
func simulatedActivityProgress(realProgress, delta float64) float64 {
	return math.Min(100, realProgress+delta)
}

// simulatedStockState classifies a projected stock level against the
// configured minimum.
func simulatedStockState(projected, minStock float64) string {
	switch {
	case projected <= 0:
		return StateCritical
	case projected < minStock*0.5:
		return StateCritical
	case projected < minStock:
		return StateLow
	case projected < minStock*1.2:
		return StateWarning
	default:
		return StateOK
	}
}

// Simulate computes the read-only what-if report for a project reaching
// the hypothetical overall progress. Mutates nothing.
func (e *Engine) Simulate(projectID uint, hypotheticalProgress float64) (*SimulationReport, error) {
	var project struct {
		OverallProgress float64
	}
	err := e.db.Table("projects").
		Select("overall_progress").
		Where("id = ?", projectID).
		Take(&project).Error
	if err != nil {
		return nil, notFound(err)
	}

	delta := hypotheticalProgress - project.OverallProgress
	if delta < 0 {
		return nil, validationErrorf(
			"simulated progress (%.1f%%) must not be below current progress (%.1f%%)",
			hypotheticalProgress, project.OverallProgress)
	}

	var rows []simulationRow
	err = e.db.Table("activity_materials AS am").
		Select(`a.real_progress,
			am.material_id,
			m.name AS material_name,
			m.unit,
			am.estimated_qty,
			am.consumed_qty,
			m.current_stock,
			m.min_stock,
			m.unit_price,
			s.name AS supplier_name,
			s.lead_time_days`).
		Joins("JOIN activities a ON a.id = am.activity_id").
		Joins("JOIN materials m ON m.id = am.material_id").
		Joins("LEFT JOIN suppliers s ON s.id = m.supplier_id").
		Where("a.project_id = ?", projectID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading simulation links: %w", err)
	}

	// Aggregate the projected additional consumption per material.
	byMaterial := make(map[uint]*SimulatedMaterial)
	prices := make(map[uint]float64)
	var order []uint
	for _, r := range rows {
		sm, ok := byMaterial[r.MaterialID]
		if !ok {
			sm = &SimulatedMaterial{
				MaterialID:   r.MaterialID,
				Name:         r.MaterialName,
				Unit:         r.Unit,
				CurrentStock: r.CurrentStock,
				MinStock:     r.MinStock,
				SupplierName: r.SupplierName,
				LeadTimeDays: r.LeadTimeDays,
			}
			byMaterial[r.MaterialID] = sm
			prices[r.MaterialID] = r.UnitPrice
			order = append(order, r.MaterialID)
		}

		simProgress := simulatedActivityProgress(r.RealProgress, delta)
		additional := r.EstimatedQty*simProgress/100 - r.ConsumedQty
		if additional > 0 {
			sm.ProjectedConsumption += additional
		}
	}

	report := &SimulationReport{SimulatedProgress: hypotheticalProgress}
	for _, id := range order {
		sm := byMaterial[id]
		sm.ProjectedStock = sm.CurrentStock - sm.ProjectedConsumption
		if sm.MinStock > 0 {
			sm.StockPct = sm.ProjectedStock / sm.MinStock * 100
		}
		sm.State = simulatedStockState(sm.ProjectedStock, sm.MinStock)
		if sm.State == StateCritical {
			report.Summary.CriticalMaterials++
		}

		if sm.ProjectedConsumption > 0 && sm.ProjectedStock > 0 && delta > 0 {
			rate := sm.ProjectedConsumption / delta
			days := int(math.Floor(sm.ProjectedStock / rate))
			sm.DaysToDepletion = &days
		}

		if sm.ProjectedStock < sm.MinStock {
			sm.NeedsReorder = true
			sm.SuggestedQty = sm.MinStock*1.5 - sm.ProjectedStock
			report.Summary.MaterialsToReorder++
			report.Summary.EstimatedOrderCost += sm.SuggestedQty * prices[id]
		}

		report.Materials = append(report.Materials, *sm)
	}

	sort.SliceStable(report.Materials, func(i, j int) bool {
		return stateRank(report.Materials[i].State) < stateRank(report.Materials[j].State)
	})
	report.Summary.TotalMaterials = len(report.Materials)

	return report, nil
}
