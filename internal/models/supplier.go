package models

import "time"

// Supplier provides materials. One supplier per material; LeadTimeDays
// feeds the stock-out urgency bands.
type Supplier struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	ContactName  string    `json:"contact_name"`
	Phone        string    `gorm:"type:varchar(30)" json:"phone"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	LeadTimeDays int       `gorm:"default:7" json:"lead_time_days"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Supplier) TableName() string {
	return "suppliers"
}
