package engine

import (
	"math"
	"time"

	"github.com/sitemat/sitematgo/internal/models"
)

// The functions in this file are the decision boundaries of the alert
// rule set. Comparison directions are load-bearing: a <= swapped for a <
// changes which band a material lands in.

// daysRemaining counts whole days from today until the project's
// estimated end date, rounding partial days up.
func daysRemaining(endDate, today time.Time) int {
	return int(math.Ceil(endDate.Sub(today).Hours() / 24))
}

// daysOfStock projects how many days the current stock lasts at the
// pending-consumption rate. With nothing pending, or nothing in stock,
// the stock question is moot and the horizon is the project's remaining
// days.
func daysOfStock(stock, pending float64, remaining int) int {
	if pending == 0 || stock <= 0 {
		return remaining
	}
	rate := pending / float64(remaining)
	return int(math.Floor(stock / rate))
}

// urgencyLevel bands days-of-stock against the supplier lead time.
// Critical materials get a doubled margin, so they escalate earlier.
func urgencyLevel(daysOfStock, leadTime int, critical bool) string {
	margin := 1
	if critical {
		margin = 2
	}
	switch {
	case daysOfStock <= leadTime:
		return models.SeverityCritical
	case daysOfStock <= leadTime+margin*3:
		return models.SeverityHigh
	case daysOfStock <= leadTime+margin*7:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// safetyMargin is the buffer in days added on top of the lead time
// before a below-minimum material counts as an imminent stock-out.
func safetyMargin(critical bool) int {
	if critical {
		return 5
	}
	return 3
}

// stockoutSuggestedQty covers pending consumption with a 30% buffer,
// net of what is already on hand.
func stockoutSuggestedQty(pending, stock float64) float64 {
	return math.Max(0, pending*1.3-stock)
}

// orderByDate is the latest sensible order date for a material already
// below minimum: two days of slack before the stock runs into the lead
// time, never earlier than tomorrow.
func orderByDate(today time.Time, daysOfStock, leadTime int) time.Time {
	days := daysOfStock - leadTime - 2
	if days < 1 {
		days = 1
	}
	return today.AddDate(0, 0, days)
}

// preventiveOrderByDate is the reorder-suggestion variant, backing off
// by the full safety margin instead of the fixed two days.
func preventiveOrderByDate(today time.Time, daysEstimated, leadTime, margin int) time.Time {
	days := daysEstimated - leadTime - margin
	if days < 1 {
		days = 1
	}
	return today.AddDate(0, 0, days)
}

// deviationSeverity bands a consumption-vs-progress deviation fraction.
func deviationSeverity(deviation float64) string {
	switch {
	case deviation > 0.50:
		return models.SeverityCritical
	case deviation > 0.40:
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}

// stagnationSeverity bands days without inventory movement.
func stagnationSeverity(days int) string {
	switch {
	case days > 90:
		return models.SeverityHigh
	case days > 60:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// priceVariationSeverity bands the absolute percentage change between
// the two most recent order prices.
func priceVariationSeverity(absPct float64) string {
	switch {
	case absPct > 30:
		return models.SeverityHigh
	case absPct > 20:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
