package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"fincoach/internal/core"
)

// Recurring holds detected monthly-ish series, split by direction. Slice
// order follows grouping order and is not significant.
type Recurring struct {
	Income []core.RecurringSeries
	Bills  []core.RecurringSeries
}

// DefaultMinOccurrences is the occurrence threshold used by the synthesizer.
const DefaultMinOccurrences = 3

// gap bounds, in days, for a series to count as roughly monthly. Wide enough
// to tolerate weekend and holiday drift, narrow enough to exclude weekly or
// quarterly cadences.
const (
	minMeanGapDays = 20.0
	maxMeanGapDays = 40.0
)

// RootKey returns the lower-cased first two whitespace-separated tokens of a
// description, the grouping key for recurring series. Deliberately coarse;
// only exact first-two-token matches collapse into one series.
func RootKey(description string) string {
	parts := strings.Fields(strings.ToLower(description))
	if len(parts) == 0 {
		return ""
	}
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, " ")
}

type seriesKey struct {
	root   string
	inflow bool
}

// DetectRecurring groups transactions by (root key, direction) and keeps the
// groups with at least minOccurrences dated entries whose mean consecutive-day
// gap is roughly monthly. The representative amount is the upper median of
// the group's absolute amounts. A group left with no gaps is treated as
// insufficient data even when the occurrence count is met.
func DetectRecurring(txns []core.Transaction, minOccurrences int) Recurring {
	type group struct {
		dates   []time.Time
		amounts []float64
	}
	groups := make(map[seriesKey]*group)
	var order []seriesKey
	for _, t := range txns {
		k := seriesKey{root: RootKey(t.Description), inflow: t.Amount > 0}
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
			order = append(order, k)
		}
		g.dates = append(g.dates, t.Date)
		g.amounts = append(g.amounts, math.Abs(t.Amount))
	}

	var rec Recurring
	for _, k := range order {
		g := groups[k]
		if len(g.dates) < minOccurrences {
			continue
		}
		dates := append([]time.Time(nil), g.dates...)
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		if len(dates) < 2 {
			continue
		}
		var totalGap float64
		for i := 1; i < len(dates); i++ {
			totalGap += dates[i].Sub(dates[i-1]).Hours() / 24
		}
		mean := totalGap / float64(len(dates)-1)
		if mean < minMeanGapDays || mean > maxMeanGapDays {
			continue
		}
		amount := upperMedian(g.amounts)
		if k.inflow {
			rec.Income = append(rec.Income, core.RecurringSeries{Name: seriesName(k.root, "recurring income"), Amount: amount})
		} else {
			rec.Bills = append(rec.Bills, core.RecurringSeries{Name: seriesName(k.root, "recurring bill"), Amount: amount})
		}
	}
	return rec
}

// upperMedian sorts ascending and takes the element at len/2. For even-sized
// lists that is the upper of the two middle values, not their average; the
// tie-break is observable in recommendation amounts and must stay as is.
func upperMedian(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

func seriesName(root, fallback string) string {
	if root == "" {
		return fallback
	}
	return root
}
