package models

import "time"

// Material is a stock-keeping item. Stock figures live on the material
// itself; perishable materials additionally track per-batch quantities
// in MaterialBatch, and the two are kept consistent by the FEFO
// allocation routine.
type Material struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Name              string     `gorm:"not null;index" json:"name"`
	Description       string     `gorm:"type:text" json:"description"`
	Unit              string     `gorm:"type:varchar(20)" json:"unit"`
	SupplierID        uint       `gorm:"index" json:"supplier_id"`
	CurrentStock      float64    `gorm:"default:0" json:"current_stock"`
	MinStock          float64    `gorm:"default:0" json:"min_stock"`
	MaxStock          float64    `gorm:"default:0" json:"max_stock"`
	UnitPrice         float64    `gorm:"default:0" json:"unit_price"`
	IsCritical        bool       `gorm:"default:false" json:"is_critical"`
	IsPerishable      bool       `gorm:"default:false" json:"is_perishable"`
	DefaultExpiryDate *time.Time `gorm:"type:date" json:"default_expiry_date,omitempty"` // fallback when no batch tracking exists
	ExpiryWarningDays int        `gorm:"default:15" json:"expiry_warning_days"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Relations
	Supplier Supplier        `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Batches  []MaterialBatch `gorm:"foreignKey:MaterialID;constraint:OnDelete:CASCADE" json:"batches,omitempty"`
}

func (Material) TableName() string {
	return "materials"
}

// MaterialBatch is a lot of a perishable material. Quantity is the
// remaining amount; a batch becomes inactive exactly when it reaches 0.
type MaterialBatch struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	MaterialID uint       `gorm:"not null;index" json:"material_id"`
	BatchCode  string     `gorm:"type:varchar(50);index" json:"batch_code"`
	Quantity   float64    `gorm:"not null;check:quantity >= 0" json:"quantity"`
	ExpiryDate *time.Time `gorm:"type:date;index" json:"expiry_date,omitempty"`
	IntakeDate time.Time  `gorm:"not null" json:"intake_date"`
	Active     bool       `gorm:"default:true;index" json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relations
	Material Material `gorm:"foreignKey:MaterialID" json:"-"`
}

func (MaterialBatch) TableName() string {
	return "material_batches"
}

// DaysUntilExpiry returns whole days until the batch expires relative to
// now; negative when already expired. Batches without an expiry date
// never expire.
func (b *MaterialBatch) DaysUntilExpiry(now time.Time) (int, bool) {
	if b.ExpiryDate == nil {
		return 0, false
	}
	days := int(b.ExpiryDate.Sub(now).Hours() / 24)
	return days, true
}
