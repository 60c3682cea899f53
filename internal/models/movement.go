package models

import "time"

// Inventory movement directions
const (
	MovementIn     = "in"
	MovementOut    = "out"
	MovementAdjust = "adjust"
)

// InventoryMovement is an append-only log entry. Rows are never mutated
// after creation; stock and batch figures are derived state kept in sync
// by the writers.
type InventoryMovement struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MaterialID uint      `gorm:"not null;index" json:"material_id"`
	BatchID    *uint     `gorm:"index" json:"batch_id,omitempty"`
	ProjectID  *uint     `gorm:"index" json:"project_id,omitempty"`
	Type       string    `gorm:"type:varchar(10);not null" json:"type"`
	Quantity   float64   `gorm:"not null" json:"quantity"`
	Reason     string    `json:"reason"`
	Actor      string    `gorm:"default:'system'" json:"actor"`
	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`

	// Relations
	Material Material       `gorm:"foreignKey:MaterialID" json:"-"`
	Batch    *MaterialBatch `gorm:"foreignKey:BatchID" json:"-"`
}

func (InventoryMovement) TableName() string {
	return "inventory_movements"
}
