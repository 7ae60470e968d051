package engine

import (
	"testing"

	"fincoach/internal/core"
)

func TestRootKey(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Salary September", "salary september"},
		{"Netflix", "netflix"},
		{"  UPI  Transfer  to  friend ", "upi transfer"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := RootKey(tc.in); got != tc.want {
			t.Errorf("RootKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDetectRecurringMonthlyBill(t *testing.T) {
	txns := []core.Transaction{
		{Date: core.NewDate(2025, 7, 9), Description: "Netflix", Amount: -499},
		{Date: core.NewDate(2025, 8, 9), Description: "Netflix", Amount: -499},
		{Date: core.NewDate(2025, 9, 8), Description: "Netflix", Amount: -549},
	}
	rec := DetectRecurring(txns, 3)
	if len(rec.Income) != 0 {
		t.Fatalf("income = %v, want none", rec.Income)
	}
	if len(rec.Bills) != 1 {
		t.Fatalf("bills = %v, want one series", rec.Bills)
	}
	if rec.Bills[0].Name != "netflix" {
		t.Errorf("name = %q, want netflix", rec.Bills[0].Name)
	}
	// Upper median of [499, 499, 549] is 499.
	if rec.Bills[0].Amount != 499 {
		t.Errorf("amount = %v, want 499", rec.Bills[0].Amount)
	}
}

func TestDetectRecurringGapFilter(t *testing.T) {
	// Mean gap of 45 days: enough occurrences, wrong cadence.
	quarterlyish := []core.Transaction{
		{Date: core.NewDate(2025, 1, 1), Description: "Insurance Premium", Amount: -2000},
		{Date: core.NewDate(2025, 2, 15), Description: "Insurance Premium", Amount: -2000},
		{Date: core.NewDate(2025, 4, 1), Description: "Insurance Premium", Amount: -2000},
	}
	rec := DetectRecurring(quarterlyish, 3)
	if len(rec.Bills) != 0 || len(rec.Income) != 0 {
		t.Fatalf("45-day cadence must be rejected, got %+v", rec)
	}

	// Mean gap of exactly 30 days passes.
	monthly := []core.Transaction{
		{Date: core.NewDate(2025, 1, 1), Description: "Gym Membership", Amount: -1200},
		{Date: core.NewDate(2025, 1, 31), Description: "Gym Membership", Amount: -1200},
		{Date: core.NewDate(2025, 3, 2), Description: "Gym Membership", Amount: -1200},
	}
	rec = DetectRecurring(monthly, 3)
	if len(rec.Bills) != 1 {
		t.Fatalf("30-day cadence must be kept, got %+v", rec)
	}
}

func TestDetectRecurringRootBoundary(t *testing.T) {
	// "Salary September" and "Salary October" have distinct first-two-token
	// roots, so neither reaches two occurrences and no income is detected.
	txns := []core.Transaction{
		{Date: core.NewDate(2025, 9, 25), Description: "Salary September", Amount: 80000},
		{Date: core.NewDate(2025, 10, 7), Description: "Salary October", Amount: 80000},
		{Date: core.NewDate(2025, 10, 9), Description: "Netflix", Amount: -499},
	}
	rec := DetectRecurring(txns, 2)
	if len(rec.Income) != 0 {
		t.Fatalf("income = %v, want none (roots must not merge)", rec.Income)
	}
	if len(rec.Bills) != 0 {
		t.Fatalf("bills = %v, want none", rec.Bills)
	}
}

func TestDetectRecurringSingleDateDiscarded(t *testing.T) {
	// Three entries on one date leave no gaps; mean-of-empty is undefined,
	// so the group is treated as insufficient data.
	sameDay := []core.Transaction{
		{Date: core.NewDate(2025, 5, 1), Description: "Split Payment", Amount: -100},
		{Date: core.NewDate(2025, 5, 1), Description: "Split Payment", Amount: -100},
		{Date: core.NewDate(2025, 5, 1), Description: "Split Payment", Amount: -100},
	}
	rec := DetectRecurring(sameDay, 3)
	if len(rec.Bills) != 0 {
		t.Fatalf("zero-gap group must be discarded, got %+v", rec.Bills)
	}
}

func TestDetectRecurringEmptyRootFallbackNames(t *testing.T) {
	txns := []core.Transaction{
		{Date: core.NewDate(2025, 1, 5), Description: "", Amount: 5000},
		{Date: core.NewDate(2025, 2, 5), Description: "", Amount: 5000},
		{Date: core.NewDate(2025, 3, 5), Description: "", Amount: 5200},
	}
	rec := DetectRecurring(txns, 3)
	if len(rec.Income) != 1 || rec.Income[0].Name != "recurring income" {
		t.Fatalf("income = %+v, want one series named \"recurring income\"", rec.Income)
	}
}

func TestUpperMedian(t *testing.T) {
	cases := []struct {
		in   []float64
		want float64
	}{
		{[]float64{499}, 499},
		{[]float64{499, 549}, 549},       // even length takes the upper middle
		{[]float64{300, 100, 200}, 200},
		{[]float64{100, 400, 200, 300}, 300},
	}
	for _, tc := range cases {
		if got := upperMedian(tc.in); got != tc.want {
			t.Errorf("upperMedian(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
