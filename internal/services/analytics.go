package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tally/internal/core"
	"tally/internal/store"
)

// attributed is one transaction with the viewer's share of its price.
type attributed struct {
	tx     core.Transaction
	amount core.Money
}

// AnalyticsService assembles the dashboard view model.
type AnalyticsService struct {
	stores store.Stores
}

func NewAnalyticsService(stores store.Stores) *AnalyticsService {
	return &AnalyticsService{stores: stores}
}

// Dashboard loads the viewer's rows and aggregates them as of now.
// groupID, when non-zero, restricts the view to that group's shared
// transactions.
func (s *AnalyticsService) Dashboard(ctx context.Context, viewerID, groupID int64, now time.Time) (core.Dashboard, error) {
	txs, err := s.stores.Transactions().All(ctx)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load transactions: %w", err)
	}
	splits, err := s.stores.Splits().All(ctx)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load splits: %w", err)
	}
	budgets, err := s.stores.Budgets().ByUser(ctx, viewerID)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load budgets: %w", err)
	}
	recurring, err := s.stores.Recurring().Active(ctx)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load recurring: %w", err)
	}
	return Aggregate(viewerID, groupID, now, txs, splits, budgets, recurring), nil
}

// Aggregate is the pure aggregation over already-loaded rows. Malformed
// or unattributable rows contribute nothing; they never abort the run.
func Aggregate(viewerID, groupID int64, now time.Time, txs []core.Transaction, splits []core.Split, budgets []core.Budget, recurring []core.Recurring) core.Dashboard {
	totals := receiptGroupTotals(txs)
	byGroup := splitsByGroup(splits)

	var view []attributed
	for _, tx := range txs {
		if groupID != 0 && tx.GroupID != groupID {
			continue
		}
		amount, included := AttributeCost(tx, byGroup[tx.ReceiptGroupID], totals[tx.ReceiptGroupID], viewerID)
		if !included {
			continue
		}
		view = append(view, attributed{tx: tx, amount: amount})
	}

	d := core.Dashboard{}
	today := core.DateOf(now)
	currentMonth := today.MonthKey()

	categorySpending := make(map[string]core.Money)
	accountSpending := make(map[int64]core.Money)

	for _, a := range view {
		switch a.tx.Kind {
		case core.Income:
			d.TotalIncome = d.TotalIncome.Add(a.amount)
			if a.tx.Date.MonthKey() == currentMonth {
				d.CurrentMonthIncome = d.CurrentMonthIncome.Add(a.amount)
			}
		default:
			d.TotalExpenses = d.TotalExpenses.Add(a.amount)
			if a.tx.Date.MonthKey() == currentMonth {
				d.CurrentMonthExpenses = d.CurrentMonthExpenses.Add(a.amount)
				categorySpending[a.tx.Category] = categorySpending[a.tx.Category].Add(a.amount)
				accountSpending[a.tx.BankAccountID] = accountSpending[a.tx.BankAccountID].Add(a.amount)
			}
		}
	}
	d.Balance = d.TotalIncome.Sub(d.TotalExpenses)

	d.MonthlyLabels, d.MonthlySpending, d.MonthlyIncome = monthlySeries(now, view)
	d.ExpenseChangePct, d.IncomeChangePct = trendChanges(view)

	d.CategorySpending = sortedCategories(categorySpending)
	d.AccountSpending = sortedAccounts(accountSpending)
	d.BudgetStatus = budgetStatuses(budgets, categorySpending)
	d.Insights = buildInsights(now, view, recurring, d.CurrentMonthExpenses, d.ExpenseChangePct)
	return d
}

// monthlySeries produces the last six calendar months, oldest first,
// keyed YYYY-MM with zero-filled gaps. True month boundaries, not
// 30-day windows, so the labels always match the wall calendar.
func monthlySeries(now time.Time, view []attributed) ([]string, []core.Money, []core.Money) {
	labels := make([]string, 6)
	spending := make([]core.Money, 6)
	income := make([]core.Money, 6)

	index := make(map[string]int, 6)
	for i := 0; i < 6; i++ {
		// Normalize to the first of the month before stepping back so a
		// "now" of Jan 31 cannot skip short months.
		m := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, i-5, 0)
		key := m.Format("2006-01")
		labels[i] = key
		index[key] = i
	}

	for _, a := range view {
		i, ok := index[a.tx.Date.MonthKey()]
		if !ok {
			continue
		}
		if a.tx.Kind == core.Income {
			income[i] = income[i].Add(a.amount)
		} else {
			spending[i] = spending[i].Add(a.amount)
		}
	}
	return labels, spending, income
}

// trendChanges compares the two most recent months that saw any
// activity. A month with no transactions yet is skipped, so a
// dashboard load early in a quiet month never reads as a collapse
// to zero.
func trendChanges(view []attributed) (expensePct, incomePct float64) {
	type monthTotal struct {
		expenses core.Money
		income   core.Money
	}
	byMonth := make(map[string]*monthTotal)
	for _, a := range view {
		key := a.tx.Date.MonthKey()
		mt := byMonth[key]
		if mt == nil {
			mt = &monthTotal{}
			byMonth[key] = mt
		}
		if a.tx.Kind == core.Income {
			mt.income = mt.income.Add(a.amount)
		} else {
			mt.expenses = mt.expenses.Add(a.amount)
		}
	}
	if len(byMonth) < 2 {
		return 0, 0
	}
	months := make([]string, 0, len(byMonth))
	for key := range byMonth {
		months = append(months, key)
	}
	sort.Strings(months)
	current := byMonth[months[len(months)-1]]
	prior := byMonth[months[len(months)-2]]
	return percentChange(prior.expenses, current.expenses), percentChange(prior.income, current.income)
}

// percentChange reports 0 for a zero prior, never a division error.
func percentChange(prior, current core.Money) float64 {
	if prior.IsZero() {
		return 0
	}
	return (current.Dollars() - prior.Dollars()) / prior.Dollars() * 100
}

func sortedCategories(m map[string]core.Money) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(m))
	for category, amount := range m {
		out = append(out, core.CategoryAmount{Category: category, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func sortedAccounts(m map[int64]core.Money) []core.AccountAmount {
	out := make([]core.AccountAmount, 0, len(m))
	for id, amount := range m {
		out = append(out, core.AccountAmount{AccountID: id, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}

// budgetStatuses reports consumption for every monthly budget against
// the viewer's current-month category spending. Duplicate budgets for
// one category each apply independently.
func budgetStatuses(budgets []core.Budget, categorySpending map[string]core.Money) []core.BudgetStatus {
	var out []core.BudgetStatus
	for _, b := range budgets {
		if b.Period != "" && b.Period != core.PeriodMonthly {
			continue
		}
		spent := categorySpending[b.Category]
		out = append(out, BudgetStatusFor(b, spent))
	}
	return out
}

// BudgetStatusFor classifies one budget's consumption. The percentage
// is capped at 100; a zero limit reports 0 rather than dividing.
func BudgetStatusFor(b core.Budget, spent core.Money) core.BudgetStatus {
	var pct float64
	if b.Amount.Cents > 0 {
		pct = float64(spent.Cents) / float64(b.Amount.Cents) * 100
		if pct > 100 {
			pct = 100
		}
	}
	status := core.BudgetGood
	switch {
	case pct >= 90:
		status = core.BudgetCritical
	case pct >= 75:
		status = core.BudgetWarning
	}
	return core.BudgetStatus{
		Category:   b.Category,
		Limit:      b.Amount,
		Spent:      spent,
		Remaining:  b.Amount.Sub(spent),
		Percentage: pct,
		Status:     status,
	}
}
