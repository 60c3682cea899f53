package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/gorm"
)

const stagnationDays = 30
const priceVariationThreshold = 0.10

// RegenerateProjectAlerts deletes the project's pending project-scoped
// alerts and recomputes them from current state. Delete and insert run
// in one transaction, so a failed run leaves the previous alert set
// intact. Idempotent for unchanged data.
func (e *Engine) RegenerateProjectAlerts(projectID uint) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("project_id = ? AND status = ? AND type IN ?",
			projectID, models.AlertPending, models.ProjectAlertTypes).
			Delete(&models.Alert{}).Error
		if err != nil {
			return fmt.Errorf("clearing project alerts: %w", err)
		}

		var project models.Project
		if err := tx.First(&project, projectID).Error; err != nil {
			return notFound(err)
		}

		today := e.Today()
		remaining := daysRemaining(project.EstimatedEndDate, today)
		if remaining <= 0 {
			// Past its finish date: stale alerts stay cleared, nothing new.
			return nil
		}

		if err := e.generateStockAlerts(tx, &project, today, remaining); err != nil {
			return err
		}
		if err := e.generateDeviationAlerts(tx, projectID); err != nil {
			return err
		}
		return e.generateDependencyAlerts(tx, projectID)
	})
}

// RegenerateGlobalAlerts recomputes the alerts that are not tied to one
// project: stagnant stock, expiring batches and price variations.
// Returns the number of alerts inserted.
func (e *Engine) RegenerateGlobalAlerts() (int, error) {
	total := 0
	err := e.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("status = ? AND type IN ?",
			models.AlertPending, models.GlobalAlertTypes).
			Delete(&models.Alert{}).Error
		if err != nil {
			return fmt.Errorf("clearing global alerts: %w", err)
		}

		n, err := e.generateStagnantStockAlerts(tx)
		if err != nil {
			return err
		}
		total += n

		n, err = e.generateExpiryAlerts(tx)
		if err != nil {
			return err
		}
		total += n

		n, err = e.generatePriceVariationAlerts(tx)
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// generateStockAlerts applies the stock-minimum / imminent-stockout /
// suggested-reorder rules. At most one of the three fires per material.
func (e *Engine) generateStockAlerts(tx *gorm.DB, project *models.Project, today time.Time, remaining int) error {
	var materials []models.Material
	err := tx.Distinct("materials.*").
		Joins("JOIN activity_materials am ON am.material_id = materials.id").
		Joins("JOIN activities a ON a.id = am.activity_id").
		Where("a.project_id = ?", project.ID).
		Find(&materials).Error
	if err != nil {
		return fmt.Errorf("loading project materials: %w", err)
	}

	var suppliers []models.Supplier
	if err := tx.Find(&suppliers).Error; err != nil {
		return fmt.Errorf("loading suppliers: %w", err)
	}
	leadTimes := make(map[uint]int, len(suppliers))
	for _, s := range suppliers {
		leadTimes[s.ID] = s.LeadTimeDays
	}

	pending, err := pendingConsumption(tx, project.ID)
	if err != nil {
		return err
	}

	for i := range materials {
		m := &materials[i]
		leadTime, ok := leadTimes[m.SupplierID]
		if !ok {
			continue
		}

		consumption := pending[m.ID]
		margin := safetyMargin(m.IsCritical)
		stockDays := daysOfStock(m.CurrentStock, consumption, remaining)

		switch {
		case m.CurrentStock < m.MinStock:
			level := urgencyLevel(stockDays, leadTime, m.IsCritical)

			if stockDays <= leadTime+margin {
				if level == models.SeverityLow {
					level = models.SeverityMedium
				}
				if err := insertAlert(tx, models.Alert{
					ProjectID:  &project.ID,
					MaterialID: &m.ID,
					Type:       models.AlertImminentStockout,
					Severity:   level,
					Message: fmt.Sprintf(
						"Stock of %s is below minimum. Estimated stock-out in %d days given the %d-day supplier lead time.",
						m.Name, stockDays, leadTime),
					DaysToStockout:     intPtr(stockDays),
					SuggestedQty:       floatPtr(stockoutSuggestedQty(consumption, m.CurrentStock)),
					SuggestedOrderDate: timePtr(orderByDate(today, stockDays, leadTime)),
				}); err != nil {
					return err
				}
			} else {
				if err := insertAlert(tx, models.Alert{
					ProjectID:  &project.ID,
					MaterialID: &m.ID,
					Type:       models.AlertStockMinimum,
					Severity:   level,
					Message: fmt.Sprintf(
						"Stock of %s is below the configured minimum. Consider restocking.", m.Name),
					DaysToStockout:     intPtr(stockDays),
					SuggestedQty:       floatPtr(m.MinStock - m.CurrentStock + consumption*0.3),
					SuggestedOrderDate: timePtr(orderByDate(today, stockDays, leadTime)),
				}); err != nil {
					return err
				}
			}

		case consumption > 0:
			projected := m.CurrentStock - consumption
			if projected < m.MinStock && stockDays <= leadTime+margin+7 {
				level := models.SeverityLow
				if m.IsCritical {
					level = models.SeverityMedium
				}
				if err := insertAlert(tx, models.Alert{
					ProjectID:  &project.ID,
					MaterialID: &m.ID,
					Type:       models.AlertSuggestedReorder,
					Severity:   level,
					Message: fmt.Sprintf(
						"Based on projected consumption, ordering %s now avoids a future stock-out.", m.Name),
					DaysToStockout:     intPtr(stockDays),
					SuggestedQty:       floatPtr(consumption + (m.MinStock - projected)),
					SuggestedOrderDate: timePtr(preventiveOrderByDate(today, stockDays, leadTime, margin)),
				}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// deviationRow is one in-progress activity-material link.
type deviationRow struct {
	ActivityID   uint
	ActivityName string
	RealProgress float64
	MaterialID   uint
	MaterialName string
	EstimatedQty float64
	ConsumedQty  float64
}

// generateDeviationAlerts flags links whose consumption ran well ahead
// of progress: more than 30 points over proportional and at least 1.5x
// the expected rate.
func (e *Engine) generateDeviationAlerts(tx *gorm.DB, projectID uint) error {
	var rows []deviationRow
	err := tx.Table("activity_materials AS am").
		Select(`am.activity_id,
			a.name AS activity_name,
			a.real_progress,
			am.material_id,
			m.name AS material_name,
			am.estimated_qty,
			am.consumed_qty`).
		Joins("JOIN activities a ON a.id = am.activity_id").
		Joins("JOIN materials m ON m.id = am.material_id").
		Where("a.project_id = ? AND a.real_progress > 0 AND a.real_progress < 100 AND am.estimated_qty > 0", projectID).
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("loading consumption links: %w", err)
	}

	for _, r := range rows {
		progressFrac := r.RealProgress / 100
		consumptionFrac := r.ConsumedQty / r.EstimatedQty
		deviation := consumptionFrac - progressFrac
		ratio := consumptionFrac / progressFrac

		if deviation > 0.30 && ratio > 1.5 {
			deficit := r.EstimatedQty*consumptionFrac/progressFrac - r.EstimatedQty
			if err := insertAlert(tx, models.Alert{
				ProjectID:  &projectID,
				MaterialID: &r.MaterialID,
				ActivityID: &r.ActivityID,
				Type:       models.AlertConsumptionDeviation,
				Severity:   deviationSeverity(deviation),
				Message: fmt.Sprintf(
					"Inefficiency: %q is at %.0f%% progress but has consumed %.0f%% of %s. Projected deficit of %.1f units at completion.",
					r.ActivityName, r.RealProgress, consumptionFrac*100, r.MaterialName, deficit),
				Details: models.MarshalDetails(models.ConsumptionDeviationDetails{
					RealProgress:     r.RealProgress,
					ConsumptionPct:   round1(consumptionFrac * 100),
					DeviationPct:     round1(deviation * 100),
					ProjectedDeficit: round2(deficit),
				}),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// generateDependencyAlerts emits one alert per blocked activity.
func (e *Engine) generateDependencyAlerts(tx *gorm.DB, projectID uint) error {
	blocked, err := blockedActivities(tx, projectID)
	if err != nil {
		return err
	}

	for _, ba := range blocked {
		parts := make([]string, 0, len(ba.Blockers))
		for _, b := range ba.Blockers {
			parts = append(parts, fmt.Sprintf("%q (%.0f%%)", b.Name, b.Progress))
		}
		msg := fmt.Sprintf("Activity %q is blocked. Requires completing: %s.",
			ba.Name, strings.Join(parts, ", "))
		if len(ba.Materials) > 0 {
			msg += fmt.Sprintf(" Affected materials: %s.", strings.Join(ba.Materials, ", "))
		}

		activityID := ba.ActivityID
		if err := insertAlert(tx, models.Alert{
			ProjectID:  &projectID,
			ActivityID: &activityID,
			Type:       models.AlertBlockedDependency,
			Severity:   ba.Severity,
			Message:    msg,
			Details: models.MarshalDetails(models.BlockedDependencyDetails{
				Blockers:          ba.Blockers,
				AffectedMaterials: ba.Materials,
			}),
		}); err != nil {
			return err
		}
	}
	return nil
}

// generateStagnantStockAlerts flags materials with stock but no
// movement for 30 days or more. Explicit two-pass: one grouped read of
// the movement log, then the comparison in memory.
func (e *Engine) generateStagnantStockAlerts(tx *gorm.DB) (int, error) {
	var materials []models.Material
	if err := tx.Where("current_stock > 0").Find(&materials).Error; err != nil {
		return 0, fmt.Errorf("loading stocked materials: %w", err)
	}

	type lastMovementRow struct {
		MaterialID uint
		LastAt     time.Time
	}
	var lastRows []lastMovementRow
	err := tx.Table("inventory_movements").
		Select("material_id, MAX(occurred_at) AS last_at").
		Group("material_id").
		Scan(&lastRows).Error
	if err != nil {
		return 0, fmt.Errorf("loading last movements: %w", err)
	}
	lastMovement := make(map[uint]time.Time, len(lastRows))
	for _, r := range lastRows {
		lastMovement[r.MaterialID] = r.LastAt
	}

	now := e.now()
	count := 0
	for i := range materials {
		m := &materials[i]
		reference := m.CreatedAt
		var last *time.Time
		if at, ok := lastMovement[m.ID]; ok {
			reference = at
			t := at
			last = &t
		}
		idleDays := int(now.Sub(reference).Hours() / 24)
		if idleDays < stagnationDays {
			continue
		}

		idleCapital := m.CurrentStock * m.UnitPrice
		if err := insertAlert(tx, models.Alert{
			MaterialID: &m.ID,
			Type:       models.AlertStagnantStock,
			Severity:   stagnationSeverity(idleDays),
			Message: fmt.Sprintf(
				"Idle inventory: %s has %.1f units without movement for %d days. Idle capital: $%.2f.",
				m.Name, m.CurrentStock, idleDays, idleCapital),
			Details: models.MarshalDetails(models.StagnantStockDetails{
				DaysWithoutMovement: idleDays,
				LastMovement:        last,
				IdleCapital:         round2(idleCapital),
			}),
		}); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// expiryRow is one active batch of a perishable material.
type expiryRow struct {
	BatchID           uint
	MaterialID        uint
	MaterialName      string
	BatchCode         string
	Quantity          float64
	ExpiryDate        time.Time
	ExpiryWarningDays int
}

// generateExpiryAlerts operates per batch, not per material, so several
// alerts can coexist for one material.
func (e *Engine) generateExpiryAlerts(tx *gorm.DB) (int, error) {
	var rows []expiryRow
	err := tx.Table("material_batches AS b").
		Select(`b.id AS batch_id,
			m.id AS material_id,
			m.name AS material_name,
			b.batch_code,
			b.quantity,
			b.expiry_date,
			m.expiry_warning_days`).
		Joins("JOIN materials m ON m.id = b.material_id").
		Where("m.is_perishable = ? AND b.active = ? AND b.quantity > 0 AND b.expiry_date IS NOT NULL", true, true).
		Scan(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("loading perishable batches: %w", err)
	}

	today := e.Today()
	count := 0
	for _, r := range rows {
		daysToExpire := int(r.ExpiryDate.Sub(today).Hours() / 24)
		if daysToExpire > 2*r.ExpiryWarningDays {
			continue
		}

		label := r.BatchCode
		if label == "" {
			label = fmt.Sprintf("Batch #%d", r.BatchID)
		}

		var severity, msg string
		switch {
		case daysToExpire <= 0:
			severity = models.SeverityCritical
			msg = fmt.Sprintf(
				"EXPIRED BATCH: %s of %s expired %d days ago. Block its use. Stock affected: %.1f units.",
				label, r.MaterialName, -daysToExpire, r.Quantity)
		case daysToExpire <= 7:
			severity = models.SeverityHigh
			msg = fmt.Sprintf(
				"%s of %s expires in %d days (%s). Prioritize its use. Quantity: %.1f units.",
				label, r.MaterialName, daysToExpire, r.ExpiryDate.Format("2006-01-02"), r.Quantity)
		case daysToExpire <= r.ExpiryWarningDays:
			severity = models.SeverityMedium
			msg = fmt.Sprintf(
				"%s of %s expires in %d days (%s). Plan its use first. Quantity: %.1f units.",
				label, r.MaterialName, daysToExpire, r.ExpiryDate.Format("2006-01-02"), r.Quantity)
		default:
			severity = models.SeverityLow
			msg = fmt.Sprintf(
				"Early notice: %s of %s expires on %s (%d days). Quantity: %.1f units.",
				label, r.MaterialName, r.ExpiryDate.Format("2006-01-02"), daysToExpire, r.Quantity)
		}

		materialID := r.MaterialID
		if err := insertAlert(tx, models.Alert{
			MaterialID: &materialID,
			Type:       models.AlertExpiringMaterial,
			Severity:   severity,
			Message:    msg,
			Details: models.MarshalDetails(models.ExpiringBatchDetails{
				BatchID:       r.BatchID,
				BatchCode:     label,
				ExpiryDate:    r.ExpiryDate,
				DaysToExpire:  daysToExpire,
				StockAffected: round2(r.Quantity),
			}),
		}); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// priceRow is one purchase-order line price observation.
type priceRow struct {
	MaterialID   uint
	MaterialName string
	SupplierName string
	UnitPrice    decimal.Decimal
	IssueDate    time.Time
}

// generatePriceVariationAlerts compares the two most recent
// non-cancelled order-line prices per material. Explicit two-pass:
// ordered read, then last-vs-previous comparison in memory.
func (e *Engine) generatePriceVariationAlerts(tx *gorm.DB) (int, error) {
	var rows []priceRow
	err := tx.Table("purchase_order_lines AS l").
		Select(`l.material_id,
			m.name AS material_name,
			s.name AS supplier_name,
			l.unit_price,
			o.issue_date`).
		Joins("JOIN purchase_orders o ON o.id = l.order_id").
		Joins("JOIN materials m ON m.id = l.material_id").
		Joins("JOIN suppliers s ON s.id = o.supplier_id").
		Where("o.status <> ?", models.OrderCancelled).
		Order("l.material_id, o.issue_date DESC, l.id DESC").
		Scan(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("loading order prices: %w", err)
	}

	// Keep the two most recent observations per material.
	recent := make(map[uint][]priceRow)
	for _, r := range rows {
		if len(recent[r.MaterialID]) < 2 {
			recent[r.MaterialID] = append(recent[r.MaterialID], r)
		}
	}

	count := 0
	for materialID, obs := range recent {
		if len(obs) < 2 {
			continue
		}
		latest, previous := obs[0], obs[1]
		if previous.UnitPrice.IsZero() {
			continue
		}

		variation, _ := latest.UnitPrice.Sub(previous.UnitPrice).
			Div(previous.UnitPrice).Float64()
		if math.Abs(variation) <= priceVariationThreshold {
			continue
		}

		variationPct := round2(variation * 100)
		direction := "rose"
		if variation < 0 {
			direction = "fell"
		}

		id := materialID
		if err := insertAlert(tx, models.Alert{
			MaterialID: &id,
			Type:       models.AlertPriceVariation,
			Severity:   priceVariationSeverity(math.Abs(variationPct)),
			Message: fmt.Sprintf(
				"Cost variation: %s %s %.1f%% (from $%s to $%s) on the latest order from %s.",
				latest.MaterialName, direction, math.Abs(variationPct),
				previous.UnitPrice.StringFixed(2), latest.UnitPrice.StringFixed(2),
				latest.SupplierName),
			Details: models.MarshalDetails(models.PriceVariationDetails{
				PreviousPrice: previous.UnitPrice.StringFixed(2),
				LatestPrice:   latest.UnitPrice.StringFixed(2),
				VariationPct:  variationPct,
				Supplier:      latest.SupplierName,
				PreviousDate:  previous.IssueDate,
				LatestDate:    latest.IssueDate,
			}),
		}); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

func insertAlert(tx *gorm.DB, alert models.Alert) error {
	alert.Status = models.AlertPending
	if err := tx.Create(&alert).Error; err != nil {
		return fmt.Errorf("inserting %s alert: %w", alert.Type, err)
	}
	return nil
}

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
