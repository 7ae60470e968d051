package engine

import (
	"sort"

	"fincoach/internal/core"
)

// DefaultSpendWindowDays is the trailing window for category aggregation.
const DefaultSpendWindowDays = 30

// CategorySpend sums absolute outflow per category over the trailing window
// ending at the latest transaction date, inclusive. Inflows never contribute.
// The result is ordered by total descending; ties keep first-appearance
// order, following the input transaction order.
func CategorySpend(txns []core.Transaction, days int) []core.CategoryTotal {
	if len(txns) == 0 {
		return nil
	}
	_, last := dateSpan(txns)
	windowStart := last.AddDate(0, 0, -days)

	totals := make(map[string]float64)
	var order []string
	for _, t := range txns {
		if t.Amount >= 0 || t.Date.Before(windowStart) {
			continue
		}
		if _, seen := totals[t.Category]; !seen {
			order = append(order, t.Category)
		}
		totals[t.Category] += -t.Amount
	}

	out := make([]core.CategoryTotal, 0, len(order))
	for _, c := range order {
		out = append(out, core.CategoryTotal{Category: c, Total: totals[c]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}
