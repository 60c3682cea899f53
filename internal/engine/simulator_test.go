package engine

import "testing"

func TestSimulatedActivityProgress(t *testing.T) {
	if got := simulatedActivityProgress(40, 25); got != 65 {
		t.Errorf("simulatedActivityProgress(40, 25) = %v, want 65", got)
	}
	// Capped at 100
	if got := simulatedActivityProgress(90, 25); got != 100 {
		t.Errorf("simulatedActivityProgress(90, 25) = %v, want 100", got)
	}
	if got := simulatedActivityProgress(100, 0); got != 100 {
		t.Errorf("simulatedActivityProgress(100, 0) = %v, want 100", got)
	}
}

func TestSimulatedStockState(t *testing.T) {
	tests := []struct {
		name      string
		projected float64
		minStock  float64
		want      string
	}{
		{"depleted", 0, 50, StateCritical},
		{"negative", -10, 50, StateCritical},
		{"below half minimum", 24, 50, StateCritical},
		{"at half minimum", 25, 50, StateLow},
		{"below minimum", 49, 50, StateLow},
		{"at minimum", 50, 50, StateWarning},
		{"inside warning band", 59, 50, StateWarning},
		{"at 120 percent", 60, 50, StateOK},
		{"healthy", 200, 50, StateOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := simulatedStockState(tt.projected, tt.minStock); got != tt.want {
				t.Errorf("simulatedStockState(%v, %v) = %q, want %q",
					tt.projected, tt.minStock, got, tt.want)
			}
		})
	}
}

func TestStateRankOrdering(t *testing.T) {
	states := []string{StateCritical, StateLow, StateWarning, StateOK}
	for i := 1; i < len(states); i++ {
		if stateRank(states[i-1]) >= stateRank(states[i]) {
			t.Errorf("stateRank(%q) should sort before %q", states[i-1], states[i])
		}
	}
}
