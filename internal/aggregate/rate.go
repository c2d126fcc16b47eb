package aggregate

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NoRate is rendered for any rate whose denominator is zero.
// It is a display sentinel, never an error condition.
const NoRate = "—"

// Percent renders round(100*num/den) as "<int>%", or NoRate when den is
// zero. Decimal arithmetic keeps the rounding exact (49.5 → 50, never 49
// via float drift).
func Percent(num, den int) string {
	if den == 0 {
		return NoRate
	}
	pct := decimal.NewFromInt(int64(num) * 100).
		Div(decimal.NewFromInt(int64(den))).
		Round(0)
	return fmt.Sprintf("%s%%", pct.String())
}

// meanMins averages a list of per-user minute totals to one decimal.
// Returns 0 for an empty list.
func meanMins(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	f, _ := sum.Div(decimal.NewFromInt(int64(len(values)))).Round(1).Float64()
	return f
}
