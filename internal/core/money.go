// Package core holds the domain types shared by the analysis engine, the
// store, and the conversational layer.
//
// This file contains currency parsing and display formatting. Amounts are
// plain float64 values; display output is whole units with thousands
// grouping, wrapped by the caller in **bold** markers where emphasized.
package core

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

// Formatter renders amounts in the configured currency.
type Formatter struct {
	Symbol string
}

// Format renders n as the currency symbol followed by the thousands-grouped
// whole-unit amount. Non-finite values render as the symbol with 0, keeping
// malformed figures out of user-facing text.
func (f Formatter) Format(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		n = 0
	}
	return f.Symbol + humanize.Comma(int64(math.Round(n)))
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
