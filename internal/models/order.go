package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order statuses
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// PurchaseOrder is read-mostly input to the alert engine: line prices
// feed the price-variation rule and receipt books stock in. The wider
// order lifecycle lives outside this system.
type PurchaseOrder struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	SupplierID        uint            `gorm:"not null;index" json:"supplier_id"`
	ProjectID         *uint           `gorm:"index" json:"project_id,omitempty"`
	IssueDate         time.Time       `gorm:"type:date;not null" json:"issue_date"`
	EstimatedDelivery *time.Time      `gorm:"type:date" json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
	Status            string          `gorm:"default:'pending';index" json:"status"`
	Total             decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"total"`
	Notes             string          `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Relations
	Supplier Supplier            `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Lines    []PurchaseOrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderLine carries the per-material unit price. Money is kept
// exact; the alert engine converts to float only after computing the
// variation ratio.
type PurchaseOrderLine struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"not null;index" json:"order_id"`
	MaterialID uint            `gorm:"not null;index" json:"material_id"`
	Quantity   float64         `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	CreatedAt  time.Time       `json:"created_at"`

	// Relations
	Order    PurchaseOrder `gorm:"foreignKey:OrderID" json:"-"`
	Material Material      `gorm:"foreignKey:MaterialID" json:"-"`
}

func (PurchaseOrderLine) TableName() string {
	return "purchase_order_lines"
}
