package models

import "time"

// Project statuses
const (
	ProjectActive    = "active"
	ProjectPaused    = "paused"
	ProjectCompleted = "completed"
)

// Project is a construction project. Activities hang off it, and its
// estimated end date drives the days-remaining figure used by the
// projection rules.
type Project struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"not null" json:"name"`
	Description      string     `gorm:"type:text" json:"description"`
	Location         string     `json:"location"`
	StartDate        *time.Time `gorm:"type:date" json:"start_date,omitempty"`
	EstimatedEndDate time.Time  `gorm:"type:date;not null" json:"estimated_end_date"`
	TotalBudget      float64    `gorm:"default:0" json:"total_budget"`
	OverallProgress  float64    `gorm:"default:0" json:"overall_progress"` // 0-100, mean of activity progress
	Status           string     `gorm:"default:'active'" json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Relations
	Activities []Activity `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"activities,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

// Activity is a unit of work inside a project. RealProgress is
// monotonically non-decreasing under normal operation; the progress
// confirmation transaction is the only writer.
type Activity struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ProjectID        uint       `gorm:"not null;index" json:"project_id"`
	Name             string     `gorm:"not null" json:"name"`
	Description      string     `gorm:"type:text" json:"description"`
	SortOrder        int        `gorm:"default:0" json:"sort_order"`
	PlannedProgress  float64    `gorm:"default:0" json:"planned_progress"`
	RealProgress     float64    `gorm:"default:0" json:"real_progress"`
	PlannedStartDate *time.Time `gorm:"type:date" json:"planned_start_date,omitempty"`
	PlannedEndDate   *time.Time `gorm:"type:date" json:"planned_end_date,omitempty"`
	RealStartDate    *time.Time `gorm:"type:date" json:"real_start_date,omitempty"`
	RealEndDate      *time.Time `gorm:"type:date" json:"real_end_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Relations
	Project      Project              `gorm:"foreignKey:ProjectID" json:"-"`
	Materials    []ActivityMaterial   `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE" json:"materials,omitempty"`
	Dependencies []ActivityDependency `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE" json:"dependencies,omitempty"`
}

func (Activity) TableName() string {
	return "activities"
}

// ActivityMaterial links an activity to a material with an estimated and
// a consumed quantity. ConsumedQty <= EstimatedQty in the steady state;
// the confirmation transaction raises EstimatedQty when consumption
// overruns the estimate.
type ActivityMaterial struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ActivityID   uint      `gorm:"not null;index;uniqueIndex:idx_activity_material" json:"activity_id"`
	MaterialID   uint      `gorm:"not null;index;uniqueIndex:idx_activity_material" json:"material_id"`
	EstimatedQty float64   `gorm:"not null" json:"estimated_qty"`
	ConsumedQty  float64   `gorm:"default:0" json:"consumed_qty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Activity Activity `gorm:"foreignKey:ActivityID" json:"-"`
	Material Material `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
}

func (ActivityMaterial) TableName() string {
	return "activity_materials"
}

// PendingQty is the quantity still expected to be consumed by this link
// given the activity's progress. Clamped at zero if data drift ever
// leaves ConsumedQty above EstimatedQty.
func (am *ActivityMaterial) PendingQty(realProgress float64) float64 {
	if realProgress >= 100 {
		return 0
	}
	pending := (am.EstimatedQty - am.ConsumedQty) * (100 - realProgress) / 100
	if pending < 0 {
		return 0
	}
	return pending
}

// Precedence edge types
const (
	DependencyFS = "FS" // predecessor must finish before successor starts
	DependencySS = "SS" // predecessor must have started
	DependencyFF = "FF" // informational only, no blocking semantics
	DependencySF = "SF" // predecessor must have started
)

// ValidDependencyType reports whether t is one of the four edge types.
func ValidDependencyType(t string) bool {
	switch t {
	case DependencyFS, DependencySS, DependencyFF, DependencySF:
		return true
	}
	return false
}

// ActivityDependency is a typed precedence edge: ActivityID is the
// successor, PredecessorID must be an activity of the same project.
type ActivityDependency struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ActivityID    uint      `gorm:"not null;index;uniqueIndex:idx_activity_dep" json:"activity_id"`
	PredecessorID uint      `gorm:"not null;uniqueIndex:idx_activity_dep" json:"predecessor_id"`
	Type          string    `gorm:"type:varchar(2);not null;default:'FS'" json:"type"`
	LagDays       int       `gorm:"default:0" json:"lag_days"`
	CreatedAt     time.Time `json:"created_at"`

	// Relations
	Activity    Activity `gorm:"foreignKey:ActivityID" json:"-"`
	Predecessor Activity `gorm:"foreignKey:PredecessorID" json:"predecessor,omitempty"`
}

func (ActivityDependency) TableName() string {
	return "activity_dependencies"
}
