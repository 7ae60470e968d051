// Package engine implements the transaction analysis engine: category
// inference, recurring-payment detection, short-term cash-flow projection,
// category spend aggregation, and recommendation synthesis. Every function
// is pure; callers hand in fully materialized snapshots and get back values
// with no side effects.
package engine

import "strings"

const (
	CategoryIncome = "income"
	CategoryRent   = "rent"
	CategoryOther  = "other"
)

type categoryRule struct {
	label    string
	keywords []string
}

// catalog is an ordered rule table; precedence is observable behavior, so the
// first matching entry wins and the order must not change.
var catalog = []categoryRule{
	{"food & dining", []string{"swiggy", "zomato", "restaurant", "cafe", "uber eats", "food", "eat"}},
	{"groceries", []string{"grocery", "supermarket", "bigbasket", "dmart", "more", "relmart"}},
	{"transport", []string{"uber", "ola", "metro", "fuel", "petrol", "diesel", "train", "irctc", "bus"}},
	{"utilities", []string{"electricity", "water", "gas", "internet", "broadband", "wifi", "mobile", "phone", "recharge", "dth"}},
	{CategoryRent, []string{"rent", "landlord"}},
	{"shopping", []string{"amazon", "flipkart", "myntra", "ajio", "nykaa", "shopping"}},
	{"entertainment", []string{"netflix", "spotify", "youtube", "prime", "hotstar", "movie", "theatre"}},
	{"health", []string{"pharmacy", "medical", "hospital", "clinic", "doctor", "med"}},
	{"education", []string{"course", "udemy", "coursera", "byju", "unacademy", "exam", "tuition"}},
	{"fees & charges", []string{"fee", "charge", "penalty", "fine"}},
	{CategoryIncome, []string{"salary", "payout", "payment", "credit", "freelance", "upwork", "fiverr"}},
	{"transfer", []string{"upi", "imps", "neft", "rtgs", "transfer"}},
	{CategoryOther, nil},
}

// Categorize maps a free-text description and signed amount to one category
// label. Any positive amount is income regardless of keywords. Outflows scan
// the catalog in declared order, case-insensitively, with "rent" as a final
// substring fallback before "other".
func Categorize(description string, amount float64) string {
	d := strings.ToLower(description)
	if amount > 0 {
		return CategoryIncome
	}
	for _, rule := range catalog {
		if rule.label == CategoryIncome {
			continue
		}
		for _, kw := range rule.keywords {
			if strings.Contains(d, kw) {
				return rule.label
			}
		}
	}
	if strings.Contains(d, "rent") {
		return CategoryRent
	}
	return CategoryOther
}
