package services

import (
	"testing"
	"time"

	"tally/internal/core"
)

func expense(id int64, userID int64, d core.Date, price core.Money, category string) core.Transaction {
	return core.Transaction{
		ID: id, ItemName: "item", Category: category, Date: d,
		Price: price, UserID: userID, Kind: core.Expense,
	}
}

func TestBudgetStatusBoundaries(t *testing.T) {
	budget := core.Budget{Category: "Food", Amount: core.FromDollars(100), Period: core.PeriodMonthly}

	tests := []struct {
		name       string
		spent      core.Money
		wantStatus core.BudgetState
		wantPct    float64
	}{
		{"just under warning", core.FromDollars(74.99), core.BudgetGood, 74.99},
		{"warning threshold", core.FromDollars(75), core.BudgetWarning, 75},
		{"just under critical", core.FromDollars(89.99), core.BudgetWarning, 89.99},
		{"critical threshold", core.FromDollars(90), core.BudgetCritical, 90},
		{"overspent caps at 100", core.FromDollars(150), core.BudgetCritical, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BudgetStatusFor(budget, tt.spent)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
			if got.Percentage != tt.wantPct {
				t.Errorf("percentage = %v, want %v", got.Percentage, tt.wantPct)
			}
		})
	}
}

func TestBudgetStatusZeroLimit(t *testing.T) {
	got := BudgetStatusFor(core.Budget{Category: "Misc"}, core.FromDollars(10))
	if got.Percentage != 0 {
		t.Errorf("percentage with zero limit = %v, want 0", got.Percentage)
	}
	if got.Status != core.BudgetGood {
		t.Errorf("status = %s, want good", got.Status)
	}
}

func TestAggregateTrendZeroPriorMonth(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense(1, 1, date(2025, 6, 10), core.FromDollars(50), "Food"),
	}

	d := Aggregate(1, 0, now, txs, nil, nil, nil)
	if d.ExpenseChangePct != 0 {
		t.Errorf("expense change with zero prior month = %v, want 0", d.ExpenseChangePct)
	}
}

func TestAggregateTrend(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense(1, 1, date(2025, 5, 10), core.FromDollars(100), "Food"),
		expense(2, 1, date(2025, 6, 10), core.FromDollars(150), "Food"),
	}

	d := Aggregate(1, 0, now, txs, nil, nil, nil)
	if d.ExpenseChangePct != 50 {
		t.Errorf("expense change = %v, want 50", d.ExpenseChangePct)
	}
	if d.Insights.TrendDirection != core.TrendUp {
		t.Errorf("trend direction = %s, want up", d.Insights.TrendDirection)
	}
}

func TestAggregateTrendSkipsEmptyCurrentMonth(t *testing.T) {
	// No activity yet in June: the trend compares April against May,
	// not May against an empty June.
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense(1, 1, date(2025, 4, 10), core.FromDollars(100), "Food"),
		expense(2, 1, date(2025, 5, 10), core.FromDollars(150), "Food"),
	}

	d := Aggregate(1, 0, now, txs, nil, nil, nil)
	if d.ExpenseChangePct != 50 {
		t.Errorf("expense change = %v, want 50", d.ExpenseChangePct)
	}
	if d.Insights.TrendDirection != core.TrendUp {
		t.Errorf("trend direction = %s, want up", d.Insights.TrendDirection)
	}
}

func TestAggregateMonthlySeriesCalendarBuckets(t *testing.T) {
	// A "now" on the 31st must not skip short months when stepping back.
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense(1, 1, date(2024, 10, 5), core.FromDollars(20), "Food"),
		expense(2, 1, date(2025, 2, 28), core.FromDollars(40), "Food"),
	}

	d := Aggregate(1, 0, now, txs, nil, nil, nil)

	wantLabels := []string{"2024-10", "2024-11", "2024-12", "2025-01", "2025-02", "2025-03"}
	if len(d.MonthlyLabels) != 6 {
		t.Fatalf("got %d labels, want 6", len(d.MonthlyLabels))
	}
	for i, want := range wantLabels {
		if d.MonthlyLabels[i] != want {
			t.Errorf("label %d = %q, want %q", i, d.MonthlyLabels[i], want)
		}
	}
	if d.MonthlySpending[0] != core.FromDollars(20) {
		t.Errorf("oldest bucket = %s, want 20.00", d.MonthlySpending[0])
	}
	if d.MonthlySpending[4] != core.FromDollars(40) {
		t.Errorf("february bucket = %s, want 40.00", d.MonthlySpending[4])
	}
	for _, i := range []int{1, 2, 3, 5} {
		if !d.MonthlySpending[i].IsZero() {
			t.Errorf("empty month %s = %s, want 0", d.MonthlyLabels[i], d.MonthlySpending[i])
		}
	}
}

func TestAggregateSplitAware(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		{ID: 1, ItemName: "Groceries", Category: "Food", Date: date(2025, 6, 1),
			Price: core.FromDollars(30), UserID: 1, Kind: core.Expense, ReceiptGroupID: "rg-1"},
		{ID: 2, ItemName: "Wine", Category: "Food", Date: date(2025, 6, 1),
			Price: core.FromDollars(70), UserID: 1, Kind: core.Expense, ReceiptGroupID: "rg-1"},
	}
	splits := []core.Split{
		{ID: 1, ReceiptGroupID: "rg-1", UserID: 1, Amount: core.FromDollars(50)},
		{ID: 2, ReceiptGroupID: "rg-1", UserID: 2, Amount: core.FromDollars(50)},
	}

	// Each member sees half the group's cost, not the raw prices.
	for _, viewer := range []int64{1, 2} {
		d := Aggregate(viewer, 0, now, txs, splits, nil, nil)
		if d.CurrentMonthExpenses != core.FromDollars(50) {
			t.Errorf("viewer %d current month = %s, want 50.00", viewer, d.CurrentMonthExpenses)
		}
	}

	// An outsider sees nothing.
	d := Aggregate(3, 0, now, txs, splits, nil, nil)
	if !d.CurrentMonthExpenses.IsZero() {
		t.Errorf("outsider current month = %s, want 0", d.CurrentMonthExpenses)
	}
}

func TestAggregateIncomeAndBalance(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense(1, 1, date(2025, 6, 1), core.FromDollars(200), "Rent"),
		{ID: 2, ItemName: "Salary", Category: "Income", Date: date(2025, 6, 1),
			Price: core.FromDollars(1000), UserID: 1, Kind: core.Income},
	}

	d := Aggregate(1, 0, now, txs, nil, nil, nil)
	if d.TotalIncome != core.FromDollars(1000) {
		t.Errorf("total income = %s, want 1000.00", d.TotalIncome)
	}
	if d.Balance != core.FromDollars(800) {
		t.Errorf("balance = %s, want 800.00", d.Balance)
	}
}

func TestAggregateGroupFilter(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	shared := expense(1, 1, date(2025, 6, 1), core.FromDollars(60), "Food")
	shared.GroupID = 9
	personal := expense(2, 1, date(2025, 6, 2), core.FromDollars(40), "Food")

	d := Aggregate(1, 9, now, []core.Transaction{shared, personal}, nil, nil, nil)
	if d.CurrentMonthExpenses != core.FromDollars(60) {
		t.Errorf("group-filtered expenses = %s, want 60.00", d.CurrentMonthExpenses)
	}
}

func TestInsightsRecurringImpact(t *testing.T) {
	recurring := []core.Recurring{
		{Frequency: core.Monthly, Price: core.FromDollars(15), Kind: core.Expense, Active: true},
		{Frequency: core.Yearly, Price: core.FromDollars(120), Kind: core.Expense, Active: true},
		{Frequency: core.Monthly, Price: core.FromDollars(99), Kind: core.Income, Active: true},
	}

	total, count := recurringImpact(recurring)
	if count != 2 {
		t.Errorf("count = %d, want 2 (income excluded)", count)
	}
	if total != core.FromDollars(25) {
		t.Errorf("monthly impact = %s, want 25.00", total)
	}
}
