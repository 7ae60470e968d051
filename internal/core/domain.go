package core

import (
	"errors"
	"strings"
	"time"
)

const (
	FieldNumber  FieldKind = "number"
	FieldText    FieldKind = "text"
	FieldBoolean FieldKind = "boolean"
)

type (
	// FieldKind is the value type of a profile field.
	FieldKind string

	// Transaction is one categorized bank movement. Amount is signed:
	// positive for inflows, negative for outflows.
	Transaction struct {
		Date        time.Time
		Description string
		Amount      float64
		Category    string
	}

	// Cap is an advisory weekly spending ceiling for one category.
	// Category is stored lower-cased; at most one cap exists per category.
	Cap struct {
		Category string
		Weekly   float64
	}

	// RecurringSeries is a detected monthly-ish payment series, reduced to
	// its display name and representative amount.
	RecurringSeries struct {
		Name   string
		Amount float64
	}

	// ForecastResult is the output of a balance projection.
	ForecastResult struct {
		ProjectedMin float64
		ProjectedEnd float64
		DailyAvg     float64
	}

	// CategoryTotal is the absolute outflow accumulated for one category.
	CategoryTotal struct {
		Category string
		Total    float64
	}

	// Action is one concrete budgeting suggestion.
	Action struct {
		Title  string
		Detail string
		CTA    string
	}

	// Advice bundles a formatted summary with ranked actions. Top3 holds
	// the highest-spend categories when transaction data was available.
	Advice struct {
		Summary string
		Actions []Action
		Top3    []CategoryTotal
	}

	// ChatMessage is a single turn of the advisor conversation.
	ChatMessage struct {
		Role    string
		Content string
	}

	// ProfileField describes one field of the onboarding profile.
	ProfileField struct {
		Key    string
		Prompt string
		Kind   FieldKind
	}

	// Profile is the manually entered fallback used when a session has no
	// transactions. Numeric fields default to 0; MonthlyEMI is forced to 0
	// whenever HasDebt is false.
	Profile struct {
		StartingBalance   float64
		MonthlyIncome     float64
		MonthlyFixedBills float64
		WeeklyFood        float64
		WeeklyTransport   float64
		WeeklyShopping    float64
		GoalName          string
		GoalTarget        float64
		HasDebt           bool
		MonthlyEMI        float64
	}
)

var ErrUnknownField = errors.New("unknown profile field")

// ProfileFields lists every profile field in the order it is collected.
var ProfileFields = []ProfileField{
	{"starting_balance", "What's your current account balance?", FieldNumber},
	{"monthly_income", "What's your typical monthly income?", FieldNumber},
	{"monthly_fixed_bills", "About how much are your fixed bills per month?", FieldNumber},
	{"weekly_food", "Average weekly spend on Food & Dining?", FieldNumber},
	{"weekly_transport", "Average weekly spend on Transport/Fuel?", FieldNumber},
	{"weekly_shopping", "Average weekly spend on Shopping/Other?", FieldNumber},
	{"goal_name", "What's your current savings goal?", FieldText},
	{"goal_target", "What's the target amount for that goal?", FieldNumber},
	{"has_debt", "Do you have any loan/credit card debt? (yes/no)", FieldBoolean},
	{"monthly_emi", "What's your monthly EMI or minimum payment? (0 if none)", FieldNumber},
}

// ProfileFieldByKey looks up a field definition by its key.
func ProfileFieldByKey(key string) (ProfileField, bool) {
	for _, f := range ProfileFields {
		if f.Key == key {
			return f, true
		}
	}
	return ProfileField{}, false
}

// NewDate builds a calendar date at UTC midnight. Transactions carry no
// time-of-day component.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ParseNumber decodes a stored numeric field value, stripping thousands
// commas. Malformed values decode to 0 rather than an error.
func ParseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := parseFloat(s)
	if err != nil {
		return 0
	}
	return v
}

// ParseBool decodes a stored boolean field value. Only affirmative spellings
// count as true.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

// ProfileFromValues decodes the raw key/value rows of a session profile.
// Unknown keys are ignored; the no-debt-no-EMI invariant is applied here so
// every consumer sees a consistent profile.
func ProfileFromValues(values map[string]string) Profile {
	p := Profile{
		StartingBalance:   ParseNumber(values["starting_balance"]),
		MonthlyIncome:     ParseNumber(values["monthly_income"]),
		MonthlyFixedBills: ParseNumber(values["monthly_fixed_bills"]),
		WeeklyFood:        ParseNumber(values["weekly_food"]),
		WeeklyTransport:   ParseNumber(values["weekly_transport"]),
		WeeklyShopping:    ParseNumber(values["weekly_shopping"]),
		GoalName:          strings.TrimSpace(values["goal_name"]),
		GoalTarget:        ParseNumber(values["goal_target"]),
		HasDebt:           ParseBool(values["has_debt"]),
		MonthlyEMI:        ParseNumber(values["monthly_emi"]),
	}
	if !p.HasDebt {
		p.MonthlyEMI = 0
	}
	return p
}

// MissingFields reports which profile fields still need to be collected.
// A number field counts as missing while it is absent or zero; monthly_emi
// is skipped entirely once the user has said they carry no debt.
func MissingFields(values map[string]string) []ProfileField {
	hasDebt := strings.ToLower(strings.TrimSpace(values["has_debt"]))
	var missing []ProfileField
	for _, f := range ProfileFields {
		if f.Key == "monthly_emi" {
			switch hasDebt {
			case "no", "n", "false", "0":
				continue
			}
		}
		v, ok := values[f.Key]
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, f)
			continue
		}
		if f.Kind == FieldNumber && ParseNumber(v) == 0 {
			missing = append(missing, f)
		}
	}
	return missing
}
