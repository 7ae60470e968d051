// Package importer turns raw CSV bank statements into categorized
// transactions ready for storage. It owns date-format disambiguation and
// numeric cleanup so that malformed rows never reach the analysis engine.
package importer

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"fincoach/internal/core"
	"fincoach/internal/engine"
)

// Header aliases seen across bank exports. Matching is case-sensitive on the
// exact alias, mirroring the accepted input formats.
var (
	dateHeaders        = []string{"date", "Date", "DATE"}
	descriptionHeaders = []string{"description", "Description", "DESC", "narration"}
	amountHeaders      = []string{"amount", "Amount", "AMOUNT", "amt"}
)

// dateLayouts tried in order. ISO first, then day-first variants common in
// Indian bank exports, then US month-first.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"01/02/2006",
}

// Row is one parsed statement line before categorization.
type Row struct {
	Date        time.Time
	Description string
	Amount      float64
}

// Parse reads CSV text with a header line and returns rows sorted by date
// ascending. Rows with an unparseable date or amount are skipped silently;
// partial data beats a failed import for this surface.
func Parse(text string) ([]Row, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(text)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 1 {
		return nil, nil
	}

	header := records[0]
	dateIdx := columnIndex(header, dateHeaders)
	descIdx := columnIndex(header, descriptionHeaders)
	amtIdx := columnIndex(header, amountHeaders)

	var rows []Row
	for _, rec := range records[1:] {
		date, ok := parseDate(field(rec, dateIdx))
		if !ok {
			continue
		}
		amount, ok := parseAmount(field(rec, amtIdx))
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Date:        date,
			Description: strings.TrimSpace(field(rec, descIdx)),
			Amount:      amount,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// Enrich applies the categorizer to each parsed row.
func Enrich(rows []Row) []core.Transaction {
	txns := make([]core.Transaction, len(rows))
	for i, r := range rows {
		txns[i] = core.Transaction{
			Date:        r.Date,
			Description: r.Description,
			Amount:      r.Amount,
			Category:    engine.Categorize(r.Description, r.Amount),
		}
	}
	return txns
}

func columnIndex(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range header {
			if strings.TrimSpace(h) == alias {
				return i
			}
		}
	}
	return -1
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.UTC(), true
		}
	}
	// Last resort: an ISO timestamp; keep the calendar date only.
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return core.NewDate(d.Year(), int(d.Month()), d.Day()), true
	}
	return time.Time{}, false
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
