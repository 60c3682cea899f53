package engine

import (
	"testing"
	"time"

	"github.com/sitemat/sitematgo/internal/models"
)

func TestDaysRemaining(t *testing.T) {
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"same day", today, 0},
		{"ten days out", today.AddDate(0, 0, 10), 10},
		{"past date", today.AddDate(0, 0, -3), -3},
		{"partial day rounds up", today.Add(36 * time.Hour), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daysRemaining(tt.end, today); got != tt.want {
				t.Errorf("daysRemaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysOfStock(t *testing.T) {
	tests := []struct {
		name      string
		stock     float64
		pending   float64
		remaining int
		want      int
	}{
		{"nothing pending uses horizon", 100, 0, 30, 30},
		{"no stock uses horizon", 0, 50, 30, 30},
		{"even burn", 100, 100, 30, 30},
		{"stock outlasts need", 200, 100, 30, 60},
		{"stock runs short", 50, 100, 30, 15},
		{"fractional floors down", 100, 90, 30, 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daysOfStock(tt.stock, tt.pending, tt.remaining); got != tt.want {
				t.Errorf("daysOfStock(%v, %v, %d) = %d, want %d",
					tt.stock, tt.pending, tt.remaining, got, tt.want)
			}
		})
	}
}

func TestUrgencyLevel(t *testing.T) {
	tests := []struct {
		name     string
		days     int
		lead     int
		critical bool
		want     string
	}{
		{"inside lead time", 7, 7, false, models.SeverityCritical},
		{"just past lead", 8, 7, false, models.SeverityHigh},
		{"normal high band edge", 10, 7, false, models.SeverityHigh},
		{"normal medium band", 11, 7, false, models.SeverityMedium},
		{"normal medium band edge", 14, 7, false, models.SeverityMedium},
		{"normal low", 15, 7, false, models.SeverityLow},
		{"critical escalates earlier", 12, 7, true, models.SeverityHigh},
		{"critical medium edge", 21, 7, true, models.SeverityMedium},
		{"critical low", 22, 7, true, models.SeverityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := urgencyLevel(tt.days, tt.lead, tt.critical); got != tt.want {
				t.Errorf("urgencyLevel(%d, %d, %v) = %q, want %q",
					tt.days, tt.lead, tt.critical, got, tt.want)
			}
		})
	}
}

// Urgency must never relax as days of stock shrink.
func TestUrgencyLevelMonotonic(t *testing.T) {
	for _, critical := range []bool{false, true} {
		prev := models.SeverityRank(urgencyLevel(60, 7, critical))
		for days := 59; days >= 0; days-- {
			rank := models.SeverityRank(urgencyLevel(days, 7, critical))
			if rank > prev {
				t.Fatalf("urgency relaxed at days=%d critical=%v", days, critical)
			}
			prev = rank
		}
	}
}

func TestStockoutSuggestedQty(t *testing.T) {
	if got := stockoutSuggestedQty(100, 10); got != 120 {
		t.Errorf("stockoutSuggestedQty(100, 10) = %v, want 120", got)
	}
	// Stock already covers the buffered need
	if got := stockoutSuggestedQty(10, 50); got != 0 {
		t.Errorf("stockoutSuggestedQty(10, 50) = %v, want 0", got)
	}
}

func TestOrderByDates(t *testing.T) {
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// 20 days of stock, 7 day lead: order within 11 days
	got := orderByDate(today, 20, 7)
	if want := today.AddDate(0, 0, 11); !got.Equal(want) {
		t.Errorf("orderByDate = %v, want %v", got, want)
	}
	// Already inside the lead time: tomorrow, never today or earlier
	got = orderByDate(today, 5, 7)
	if want := today.AddDate(0, 0, 1); !got.Equal(want) {
		t.Errorf("orderByDate clamped = %v, want %v", got, want)
	}

	got = preventiveOrderByDate(today, 30, 7, 5)
	if want := today.AddDate(0, 0, 18); !got.Equal(want) {
		t.Errorf("preventiveOrderByDate = %v, want %v", got, want)
	}
	got = preventiveOrderByDate(today, 8, 7, 5)
	if want := today.AddDate(0, 0, 1); !got.Equal(want) {
		t.Errorf("preventiveOrderByDate clamped = %v, want %v", got, want)
	}
}

func TestSafetyMargin(t *testing.T) {
	if got := safetyMargin(true); got != 5 {
		t.Errorf("safetyMargin(true) = %d, want 5", got)
	}
	if got := safetyMargin(false); got != 3 {
		t.Errorf("safetyMargin(false) = %d, want 3", got)
	}
}

func TestSeverityBands(t *testing.T) {
	if got := deviationSeverity(0.51); got != models.SeverityCritical {
		t.Errorf("deviationSeverity(0.51) = %q", got)
	}
	if got := deviationSeverity(0.50); got != models.SeverityHigh {
		t.Errorf("deviationSeverity(0.50) = %q", got)
	}
	if got := deviationSeverity(0.41); got != models.SeverityHigh {
		t.Errorf("deviationSeverity(0.41) = %q", got)
	}
	if got := deviationSeverity(0.40); got != models.SeverityMedium {
		t.Errorf("deviationSeverity(0.40) = %q", got)
	}

	if got := stagnationSeverity(91); got != models.SeverityHigh {
		t.Errorf("stagnationSeverity(91) = %q", got)
	}
	if got := stagnationSeverity(90); got != models.SeverityMedium {
		t.Errorf("stagnationSeverity(90) = %q", got)
	}
	if got := stagnationSeverity(61); got != models.SeverityMedium {
		t.Errorf("stagnationSeverity(61) = %q", got)
	}
	if got := stagnationSeverity(60); got != models.SeverityLow {
		t.Errorf("stagnationSeverity(60) = %q", got)
	}

	if got := priceVariationSeverity(30.5); got != models.SeverityHigh {
		t.Errorf("priceVariationSeverity(30.5) = %q", got)
	}
	if got := priceVariationSeverity(25); got != models.SeverityMedium {
		t.Errorf("priceVariationSeverity(25) = %q", got)
	}
	if got := priceVariationSeverity(15); got != models.SeverityLow {
		t.Errorf("priceVariationSeverity(15) = %q", got)
	}
}

// Two end-to-end rule walks with fixed figures.
func TestStockRuleScenarios(t *testing.T) {
	// Healthy material: stock 100, minimum 50, lead 7, pending 40 over 20 days.
	stockDays := daysOfStock(100, 40, 20)
	if stockDays != 50 {
		t.Fatalf("daysOfStock = %d, want 50", stockDays)
	}
	margin := safetyMargin(false)
	if stockDays <= 7+margin+7 {
		t.Error("healthy material should not reach the reorder window")
	}
	if projected := 100.0 - 40.0; projected < 50 {
		t.Error("projected stock above minimum should not alert")
	}

	// Critical material near empty: stock 10, minimum 50, lead 5, pending 20 over 10 days.
	stockDays = daysOfStock(10, 20, 10)
	if stockDays != 5 {
		t.Fatalf("daysOfStock = %d, want 5", stockDays)
	}
	if got := urgencyLevel(stockDays, 5, true); got != models.SeverityCritical {
		t.Errorf("urgency = %q, want critical", got)
	}
	if margin = safetyMargin(true); stockDays > 5+margin {
		t.Error("expected the imminent stock-out window to apply")
	}
}

func TestPendingQty(t *testing.T) {
	link := models.ActivityMaterial{EstimatedQty: 500, ConsumedQty: 100}

	// 20% done: (500-100) * 80% = 320
	if got := link.PendingQty(20); got != 320 {
		t.Errorf("PendingQty(20) = %v, want 320", got)
	}
	if got := link.PendingQty(100); got != 0 {
		t.Errorf("PendingQty(100) = %v, want 0", got)
	}

	// Overconsumed links clamp at zero
	over := models.ActivityMaterial{EstimatedQty: 100, ConsumedQty: 150}
	if got := over.PendingQty(50); got != 0 {
		t.Errorf("PendingQty overconsumed = %v, want 0", got)
	}
}
