package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/ivy/internal/models"
)

// FormatPrice renders a price with two decimals and a dollar sign.
func FormatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FormatChange renders the day's move as "+1.23 (+0.45%)".
func FormatChange(c *models.StockCandidate) string {
	change := c.PriceChange()
	pct := c.PriceChangePercent()
	sign := ""
	if change.IsPositive() {
		sign = "+"
	}
	return fmt.Sprintf("%s%s (%s%s%%)", sign, change.StringFixed(2), sign, pct.StringFixed(2))
}

// FormatScore renders a discovery score out of 100.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.0f/100", score)
}

// TimeAgo renders how long before now t was, coarsest unit first.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	case d < 365*24*time.Hour:
		return plural(int(d/(30*24*time.Hour)), "month")
	default:
		return plural(int(d/(365*24*time.Hour)), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// FormatHorizon renders the investment horizon slider value.
func FormatHorizon(years float64) string {
	if int(years) == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", int(years))
}

// FormatPercent renders a 0..1 slider value as a whole percentage.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
