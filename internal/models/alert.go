package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Alert types. The first five are project-scoped and regenerated per
// project; the last three are global.
const (
	AlertStockMinimum         = "stock_minimum"
	AlertImminentStockout     = "imminent_stockout"
	AlertSuggestedReorder     = "suggested_reorder"
	AlertConsumptionDeviation = "consumption_deviation"
	AlertBlockedDependency    = "blocked_dependency"
	AlertStagnantStock        = "stagnant_stock"
	AlertExpiringMaterial     = "expiring_material"
	AlertPriceVariation       = "price_variation"
)

// ProjectAlertTypes are the types deleted and recomputed by a
// per-project regeneration run.
var ProjectAlertTypes = []string{
	AlertStockMinimum,
	AlertImminentStockout,
	AlertSuggestedReorder,
	AlertConsumptionDeviation,
	AlertBlockedDependency,
}

// GlobalAlertTypes are the types deleted and recomputed by a global
// regeneration run.
var GlobalAlertTypes = []string{
	AlertStagnantStock,
	AlertExpiringMaterial,
	AlertPriceVariation,
}

// Alert severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SeverityRank orders severities for display, most urgent first.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	default:
		return 3
	}
}

// Alert statuses
const (
	AlertPending      = "pending"
	AlertAcknowledged = "acknowledged"
	AlertDismissed    = "dismissed"
)

// Alert is derived, disposable state: rebuilt wholesale by the rule
// engine, owned by nothing else. Only Status (and AcknowledgedAt) ever
// change after insertion.
type Alert struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	ProjectID          *uint          `gorm:"index" json:"project_id,omitempty"`
	MaterialID         *uint          `gorm:"index" json:"material_id,omitempty"`
	ActivityID         *uint          `gorm:"index" json:"activity_id,omitempty"`
	Type               string         `gorm:"type:varchar(30);not null;index" json:"type"`
	Severity           string         `gorm:"type:varchar(10);not null" json:"severity"`
	Message            string         `gorm:"type:text;not null" json:"message"`
	DaysToStockout     *int           `json:"days_to_stockout,omitempty"`
	SuggestedQty       *float64       `json:"suggested_qty,omitempty"`
	SuggestedOrderDate *time.Time     `gorm:"type:date" json:"suggested_order_date,omitempty"`
	Details            datatypes.JSON `json:"details,omitempty"`
	Status             string         `gorm:"default:'pending';index" json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	AcknowledgedAt     *time.Time     `json:"acknowledged_at,omitempty"`
}

func (Alert) TableName() string {
	return "alerts"
}

// Typed detail payloads, one per alert type that carries supporting
// figures. Each is marshalled into the Details column; there is no
// free-form payload.

type ConsumptionDeviationDetails struct {
	RealProgress     float64 `json:"real_progress"`
	ConsumptionPct   float64 `json:"consumption_pct"`
	DeviationPct     float64 `json:"deviation_pct"`
	ProjectedDeficit float64 `json:"projected_deficit"`
}

type StagnantStockDetails struct {
	DaysWithoutMovement int        `json:"days_without_movement"`
	LastMovement        *time.Time `json:"last_movement,omitempty"`
	IdleCapital         float64    `json:"idle_capital"`
}

type ExpiringBatchDetails struct {
	BatchID      uint      `json:"batch_id"`
	BatchCode    string    `json:"batch_code"`
	ExpiryDate   time.Time `json:"expiry_date"`
	DaysToExpire int       `json:"days_to_expire"`
	StockAffected float64  `json:"stock_affected"`
}

type PriceVariationDetails struct {
	PreviousPrice string    `json:"previous_price"`
	LatestPrice   string    `json:"latest_price"`
	VariationPct  float64   `json:"variation_pct"`
	Supplier      string    `json:"supplier"`
	PreviousDate  time.Time `json:"previous_date"`
	LatestDate    time.Time `json:"latest_date"`
}

type BlockedDependencyDetails struct {
	Blockers          []Blocker `json:"blockers"`
	AffectedMaterials []string  `json:"affected_materials"`
}

// Blocker is one unmet predecessor of a blocked activity.
type Blocker struct {
	Name     string  `json:"name"`
	Progress float64 `json:"progress"`
	Type     string  `json:"type"`
}

// MarshalDetails converts a typed detail struct into the JSON column
// value. A marshal failure can only come from a programming error, so it
// is swallowed into an empty payload.
func MarshalDetails(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
