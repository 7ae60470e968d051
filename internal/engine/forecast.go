package engine

import (
	"math"
	"time"

	"fincoach/internal/core"
)

// DefaultHorizonDays is the forward-looking projection window.
const DefaultHorizonDays = 28

// recentWindowDays is the trailing window the daily average is drawn from.
const recentWindowDays = 30

// Forecast projects the balance forward horizonDays from startingBalance,
// repeating the recent average net daily flow each step. The average is the
// mean of daily net sums over the trailing 30-day window ending at the latest
// transaction date; days with no activity contribute no entry. When nothing
// falls inside the window the total net amount over the full date span is
// used instead, with a one-day floor on the span. The projected minimum only
// considers post-increment balances, so a non-positive average bottoms out at
// the final step. Not a time-series model: the recent average is assumed to
// repeat unchanged.
func Forecast(txns []core.Transaction, horizonDays int, startingBalance float64) core.ForecastResult {
	if len(txns) == 0 {
		return core.ForecastResult{
			ProjectedMin: startingBalance,
			ProjectedEnd: startingBalance,
			DailyAvg:     0,
		}
	}

	first, last := dateSpan(txns)
	windowStart := last.AddDate(0, 0, -recentWindowDays)

	daily := make(map[time.Time]float64)
	for _, t := range txns {
		if !t.Date.Before(windowStart) {
			daily[t.Date] += t.Amount
		}
	}

	var avg float64
	if len(daily) > 0 {
		var sum float64
		for _, v := range daily {
			sum += v
		}
		avg = sum / float64(len(daily))
	} else {
		var total float64
		for _, t := range txns {
			total += t.Amount
		}
		span := int(last.Sub(first).Hours()/24) + 1
		if span < 1 {
			span = 1
		}
		avg = total / float64(span)
	}

	// Only post-increment balances are candidate minimums; the starting
	// balance itself is not.
	bal := startingBalance
	min := bal
	for i := 0; i < horizonDays; i++ {
		bal += avg
		if i == 0 || bal < min {
			min = bal
		}
	}
	return core.ForecastResult{
		ProjectedMin: round2(min),
		ProjectedEnd: round2(bal),
		DailyAvg:     round2(avg),
	}
}

func dateSpan(txns []core.Transaction) (first, last time.Time) {
	first, last = txns[0].Date, txns[0].Date
	for _, t := range txns[1:] {
		if t.Date.Before(first) {
			first = t.Date
		}
		if t.Date.After(last) {
			last = t.Date
		}
	}
	return first, last
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
