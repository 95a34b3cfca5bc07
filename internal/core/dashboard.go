package core

const (
	BudgetGood     BudgetState = "good"
	BudgetWarning  BudgetState = "warning"
	BudgetCritical BudgetState = "critical"
)

const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

type (
	// BudgetState classifies budget consumption: good below 75%, warning
	// from 75%, critical from 90%.
	BudgetState string

	// CategoryAmount is one slice of the per-category spending breakdown.
	CategoryAmount struct {
		Category string `json:"category"`
		Amount   Money  `json:"amount"`
	}

	// AccountAmount is one slice of the per-account spending breakdown.
	AccountAmount struct {
		AccountID int64 `json:"account_id"`
		Amount    Money `json:"amount"`
	}

	// BudgetStatus is the consumption report for one budget.
	BudgetStatus struct {
		Category   string      `json:"category"`
		Limit      Money       `json:"limit"`
		Spent      Money       `json:"spent"`
		Remaining  Money       `json:"remaining"`
		Percentage float64     `json:"percentage"`
		Status     BudgetState `json:"status"`
	}

	// Insights is advisory, derived-only commentary on spending habits.
	Insights struct {
		TrendDirection    string            `json:"trend_direction"`
		WeekdayAvg        Money             `json:"weekday_avg"`
		WeekendAvg        Money             `json:"weekend_avg"`
		WeekendDelta      Money             `json:"weekend_delta"`
		HighestDay        string            `json:"highest_spending_day"`
		SpendingByDay     map[string]Money  `json:"spending_by_day"`
		ProjectedMonthEnd Money             `json:"projected_month_end"`
		DailyAverage      Money             `json:"daily_average"`
		MonthlyRecurring  Money             `json:"monthly_recurring"`
		RecurringCount    int               `json:"recurring_count"`
	}

	// Dashboard is the view model the aggregator hands to the presentation
	// layer. The six-month series uses calendar-month buckets keyed
	// YYYY-MM, zero-filled for months with no activity.
	Dashboard struct {
		TotalIncome          Money            `json:"total_income"`
		TotalExpenses        Money            `json:"total_expenses"`
		Balance              Money            `json:"balance"`
		CurrentMonthIncome   Money            `json:"current_month_income"`
		CurrentMonthExpenses Money            `json:"current_month_expenses"`
		MonthlyLabels        []string         `json:"monthly_labels"`
		MonthlySpending      []Money          `json:"monthly_spending"`
		MonthlyIncome        []Money          `json:"monthly_income"`
		CategorySpending     []CategoryAmount `json:"category_spending"`
		AccountSpending      []AccountAmount  `json:"account_spending"`
		BudgetStatus         []BudgetStatus   `json:"budget_status"`
		ExpenseChangePct     float64          `json:"expense_change_pct"`
		IncomeChangePct      float64          `json:"income_change_pct"`
		Insights             Insights         `json:"insights"`
	}
)
