package engine

import (
	"testing"

	"github.com/sitemat/sitematgo/internal/models"
)

func TestEdgeBlocks(t *testing.T) {
	tests := []struct {
		name     string
		edgeType string
		progress float64
		want     bool
	}{
		{"FS blocks while predecessor incomplete", models.DependencyFS, 60, true},
		{"FS blocks at zero", models.DependencyFS, 0, true},
		{"FS releases at completion", models.DependencyFS, 100, false},
		{"SS blocks only at zero", models.DependencySS, 0, true},
		{"SS releases once started", models.DependencySS, 1, false},
		{"SF blocks only at zero", models.DependencySF, 0, true},
		{"SF releases once started", models.DependencySF, 40, false},
		{"FF never blocks", models.DependencyFF, 0, false},
		{"unknown type never blocks", "XX", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := edgeBlocks(tt.edgeType, tt.progress); got != tt.want {
				t.Errorf("edgeBlocks(%q, %v) = %v, want %v",
					tt.edgeType, tt.progress, got, tt.want)
			}
		})
	}
}

func TestGroupBlocked(t *testing.T) {
	rows := []dependencyRow{
		{ActivityID: 10, ActivityName: "Albañilería", PredecessorName: "Estructura",
			PredecessorProgress: 60, Type: models.DependencyFS},
		{ActivityID: 10, ActivityName: "Albañilería", PredecessorName: "Cimentación",
			PredecessorProgress: 100, Type: models.DependencyFS},
		{ActivityID: 20, ActivityName: "Acabados", PredecessorName: "Albañilería",
			PredecessorProgress: 0, Type: models.DependencySS},
	}

	blocked := groupBlocked(rows)
	if len(blocked) != 2 {
		t.Fatalf("got %d blocked activities, want 2", len(blocked))
	}

	// First appearance order is preserved
	if blocked[0].ActivityID != 10 || blocked[1].ActivityID != 20 {
		t.Fatalf("order = %d, %d; want 10, 20", blocked[0].ActivityID, blocked[1].ActivityID)
	}

	// The satisfied FS edge from Cimentación is not a blocker
	if len(blocked[0].Blockers) != 1 {
		t.Fatalf("activity 10 blockers = %d, want 1", len(blocked[0].Blockers))
	}
	if blocked[0].Blockers[0].Name != "Estructura" {
		t.Errorf("blocker = %q, want Estructura", blocked[0].Blockers[0].Name)
	}

	// In-progress blocker is medium, unstarted blocker escalates to high
	if blocked[0].Severity != models.SeverityMedium {
		t.Errorf("activity 10 severity = %q, want medium", blocked[0].Severity)
	}
	if blocked[1].Severity != models.SeverityHigh {
		t.Errorf("activity 20 severity = %q, want high", blocked[1].Severity)
	}
}

func TestGroupBlockedSeverityEscalation(t *testing.T) {
	// Same activity, one started and one unstarted blocker: high wins
	rows := []dependencyRow{
		{ActivityID: 1, ActivityName: "A", PredecessorName: "B",
			PredecessorProgress: 50, Type: models.DependencyFS},
		{ActivityID: 1, ActivityName: "A", PredecessorName: "C",
			PredecessorProgress: 0, Type: models.DependencyFS},
	}

	blocked := groupBlocked(rows)
	if len(blocked) != 1 {
		t.Fatalf("got %d blocked activities, want 1", len(blocked))
	}
	if blocked[0].Severity != models.SeverityHigh {
		t.Errorf("severity = %q, want high", blocked[0].Severity)
	}
	if len(blocked[0].Blockers) != 2 {
		t.Errorf("blockers = %d, want 2", len(blocked[0].Blockers))
	}
}

func TestGroupBlockedEmpty(t *testing.T) {
	rows := []dependencyRow{
		{ActivityID: 1, ActivityName: "A", PredecessorName: "B",
			PredecessorProgress: 100, Type: models.DependencyFS},
		{ActivityID: 2, ActivityName: "C", PredecessorName: "D",
			PredecessorProgress: 0, Type: models.DependencyFF},
	}
	if blocked := groupBlocked(rows); len(blocked) != 0 {
		t.Fatalf("expected no blocked activities, got %+v", blocked)
	}
}
