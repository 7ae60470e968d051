package engine

import (
	"fmt"
	"math"
	"strings"

	"fincoach/internal/core"
)

// floors shared by both synthesis paths.
const (
	essentialFloor  = 10000.0 // one month of essentials, minimum
	microSaveFloor  = 300.0   // weekly auto-save nudge, minimum
	topCategories   = 3
	suggestedCapPct = 0.80 // of observed weekly average
	profileCapPct   = 0.85 // of self-reported weekly spend
)

// AdviseFromTransactions synthesizes a summary and ranked actions from a
// categorized transaction set, the user's balance hint, and the active weekly
// caps. With no transactions it falls back to profile-based synthesis over an
// empty profile; that is the documented degradation path, not an error.
func AdviseFromTransactions(txns []core.Transaction, balanceHint float64, caps []core.Cap, cur core.Formatter) core.Advice {
	if len(txns) == 0 {
		return AdviseFromProfile(core.Profile{}, caps, cur)
	}

	var inflow, outflow float64
	for _, t := range txns {
		if t.Amount > 0 {
			inflow += t.Amount
		} else {
			outflow += -t.Amount
		}
	}
	net := inflow - outflow

	rec := DetectRecurring(txns, DefaultMinOccurrences)
	var monthlyIncome, monthlyBills float64
	for _, s := range rec.Income {
		monthlyIncome += s.Amount
	}
	if monthlyIncome == 0 {
		monthlyIncome = math.Max(inflow, 0)
	}
	for _, s := range rec.Bills {
		monthlyBills += s.Amount
	}

	fc := Forecast(txns, DefaultHorizonDays, balanceHint)
	spend := CategorySpend(txns, DefaultSpendWindowDays)
	top := spend
	if len(top) > topCategories {
		top = top[:topCategories]
	}

	essential := monthlyBills
	if essential <= 0 {
		essential = math.Min(essentialFloor, outflow)
	}
	emergencyTarget := math.Max(essentialFloor, math.Round(essential))
	microSave := math.Max(microSaveFloor, math.Round(0.1*monthlyIncome/4))

	var actions []core.Action
	if fc.ProjectedMin < 0 {
		actions = append(actions, core.Action{
			Title:  "Shortfall risk in next 4 weeks",
			Detail: fmt.Sprintf("Projected minimum balance dips by **%s**.", cur.Format(math.Abs(fc.ProjectedMin))),
			CTA:    "Set weekly caps on top categories",
		})
	}
	for _, ct := range top {
		suggested := math.Round(suggestedCapPct * ct.Total / 4)
		if current, ok := findCap(caps, ct.Category); ok {
			actions = append(actions, core.Action{
				Title:  fmt.Sprintf("Weekly cap set: **%s**", ct.Category),
				Detail: fmt.Sprintf("Cap: **%s**. Last 30 days: **%s**.", cur.Format(current), cur.Format(ct.Total)),
				CTA:    "Adjust cap if needed",
			})
		} else {
			actions = append(actions, core.Action{
				Title:  fmt.Sprintf("Cap **%s** spending", ct.Category),
				Detail: fmt.Sprintf("Last 30 days: **%s**. Suggested weekly cap: **%s**.", cur.Format(ct.Total), cur.Format(suggested)),
				CTA:    fmt.Sprintf("Apply weekly cap for %s", ct.Category),
			})
		}
	}
	actions = append(actions, core.Action{
		Title:  "Build your Emergency Fund",
		Detail: fmt.Sprintf("Target at least **%s** (≈ 1 month of essentials).", cur.Format(emergencyTarget)),
		CTA:    fmt.Sprintf("Auto-save **%s** weekly", cur.Format(microSave)),
	})
	if incomeSourceCount(txns) > 1 {
		actions = append(actions, core.Action{
			Title:  "Income is variable",
			Detail: "Multiple income sources detected. Maintain 10–15 days of average expenses as buffer.",
			CTA:    fmt.Sprintf("Increase buffer by %s–%s this week", cur.Format(1000), cur.Format(2000)),
		})
	}

	summary := fmt.Sprintf(
		"**Overview**\n- Income: **%s**  |  Expense: **%s**  |  Net: **%s**\n- Est. monthly income: **%s** | Bills: **%s**\n- 28-day forecast avg/day: **%s** | Projected min: **%s**",
		cur.Format(inflow), cur.Format(outflow), cur.Format(net),
		cur.Format(monthlyIncome), cur.Format(monthlyBills),
		cur.Format(fc.DailyAvg), cur.Format(fc.ProjectedMin))

	return core.Advice{Summary: summary, Actions: actions, Top3: top}
}

// AdviseFromProfile synthesizes a plan from the manually entered profile,
// used when a session has no transactions. Variable monthly spend is a flat
// four-weeks-per-month approximation of the weekly figures.
func AdviseFromProfile(p core.Profile, caps []core.Cap, cur core.Formatter) core.Advice {
	goalName := p.GoalName
	if goalName == "" {
		goalName = "Emergency Fund"
	}
	goalTarget := p.GoalTarget
	if goalTarget == 0 {
		goalTarget = essentialFloor
	}

	variableMonthly := 4 * (p.WeeklyFood + p.WeeklyTransport + p.WeeklyShopping)
	netMonthly := p.MonthlyIncome - (p.MonthlyFixedBills + variableMonthly + p.MonthlyEMI)
	var avg float64
	if p.MonthlyIncome != 0 {
		avg = netMonthly / float64(DefaultHorizonDays)
	}

	bal := p.StartingBalance
	min := bal
	for i := 0; i < DefaultHorizonDays; i++ {
		bal += avg
		if i == 0 || bal < min {
			min = bal
		}
	}

	var actions []core.Action
	if min < 0 {
		actions = append(actions, core.Action{
			Title:  "Shortfall risk in next 4 weeks",
			Detail: fmt.Sprintf("Projected min dips by **%s**. Reduce weekly variable spend by 15–25%% and consider a small buffer transfer.", cur.Format(math.Abs(min))),
			CTA:    "Apply 20% caps this month",
		})
	}

	suggestions := []core.CategoryTotal{
		{Category: "Food & Dining", Total: math.Round(profileCapPct * p.WeeklyFood)},
		{Category: "Transport", Total: math.Round(profileCapPct * p.WeeklyTransport)},
		{Category: "Shopping/Other", Total: math.Round(profileCapPct * p.WeeklyShopping)},
	}
	for _, s := range suggestions {
		if s.Total <= 0 {
			continue
		}
		if current, ok := findCap(caps, s.Category); ok {
			actions = append(actions, core.Action{
				Title:  fmt.Sprintf("Weekly cap set: **%s**", s.Category),
				Detail: fmt.Sprintf("Cap: **%s**.", cur.Format(current)),
				CTA:    "Adjust cap if needed",
			})
		} else {
			actions = append(actions, core.Action{
				Title:  fmt.Sprintf("Cap **%s** weekly spend", s.Category),
				Detail: fmt.Sprintf("Suggested weekly cap: **%s**.", cur.Format(s.Total)),
				CTA:    fmt.Sprintf("Apply %s cap", s.Category),
			})
		}
	}

	essential := p.MonthlyFixedBills + p.MonthlyEMI
	emergencyTarget := math.Max(essentialFloor, essential)
	microSave := microSaveFloor
	if p.MonthlyIncome > 0 {
		microSave = math.Max(microSaveFloor, math.Round(0.1*p.MonthlyIncome/4))
	}

	actions = append(actions,
		core.Action{
			Title:  fmt.Sprintf("Build **%s**", goalName),
			Detail: fmt.Sprintf("Target **%s**. Start with auto-save **%s** weekly.", cur.Format(goalTarget), cur.Format(microSave)),
			CTA:    fmt.Sprintf("Auto-save %s weekly", cur.Format(microSave)),
		},
		core.Action{
			Title:  "Emergency Fund first",
			Detail: fmt.Sprintf("Keep at least **%s** as 1 month of essentials.", cur.Format(emergencyTarget)),
			CTA:    "Create bills/emergency envelope",
		})
	if p.HasDebt && p.MonthlyEMI > 0 {
		actions = append(actions, core.Action{
			Title:  "Debt payoff strategy",
			Detail: fmt.Sprintf("Pay EMI on time; add a small extra payment (%s–%s) monthly if possible to reduce interest.", cur.Format(300), cur.Format(700)),
			CTA:    "Set extra EMI reminder",
		})
	}

	summary := fmt.Sprintf(
		"**Your Plan (profile-based)**\n- Starting balance: **%s**  |  Monthly income: **%s**\n- Fixed bills: **%s**  |  Variable/month (est): **%s**  |  EMI: **%s**\n- 28-day forecast avg/day: **%s**  |  Projected min: **%s**",
		cur.Format(p.StartingBalance), cur.Format(p.MonthlyIncome),
		cur.Format(p.MonthlyFixedBills), cur.Format(variableMonthly), cur.Format(p.MonthlyEMI),
		cur.Format(avg), cur.Format(min))

	return core.Advice{Summary: summary, Actions: actions}
}

func findCap(caps []core.Cap, category string) (float64, bool) {
	for _, c := range caps {
		if strings.EqualFold(c.Category, category) {
			return c.Weekly, true
		}
	}
	return 0, false
}

func incomeSourceCount(txns []core.Transaction) int {
	roots := make(map[string]struct{})
	for _, t := range txns {
		if t.Amount > 0 {
			roots[RootKey(t.Description)] = struct{}{}
		}
	}
	return len(roots)
}
