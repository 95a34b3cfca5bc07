package services

import (
	"time"

	"tally/internal/core"
)

// buildInsights derives the advisory commentary from the viewer's
// attributed expenses. Everything here is a pure function of the
// aggregated rows; nothing is persisted.
func buildInsights(now time.Time, view []attributed, recurring []core.Recurring, monthSpent core.Money, expenseChangePct float64) core.Insights {
	ins := core.Insights{
		TrendDirection: trendDirection(expenseChangePct),
		SpendingByDay:  make(map[string]core.Money),
	}

	today := core.DateOf(now)
	currentMonth := today.MonthKey()

	var weekdayTotal, weekendTotal core.Money
	weekdayDays := make(map[string]bool)
	weekendDays := make(map[string]bool)

	for _, a := range view {
		if a.tx.Kind != core.Expense || a.tx.Date.MonthKey() != currentMonth {
			continue
		}
		day := a.tx.Date.Weekday().String()
		ins.SpendingByDay[day] = ins.SpendingByDay[day].Add(a.amount)

		dateKey := a.tx.Date.String()
		if a.tx.Date.Weekday() == time.Saturday || a.tx.Date.Weekday() == time.Sunday {
			weekendTotal = weekendTotal.Add(a.amount)
			weekendDays[dateKey] = true
		} else {
			weekdayTotal = weekdayTotal.Add(a.amount)
			weekdayDays[dateKey] = true
		}
	}

	ins.WeekdayAvg = weekdayTotal.Div(len(weekdayDays))
	ins.WeekendAvg = weekendTotal.Div(len(weekendDays))
	ins.WeekendDelta = ins.WeekendAvg.Sub(ins.WeekdayAvg)
	ins.HighestDay = highestDay(ins.SpendingByDay)

	elapsed := today.Day()
	ins.DailyAverage = monthSpent.Div(elapsed)
	ins.ProjectedMonthEnd = ins.DailyAverage.Share(float64(core.DaysInMonth(today.Year(), int(today.Month()))))

	ins.MonthlyRecurring, ins.RecurringCount = recurringImpact(recurring)
	return ins
}

func trendDirection(expenseChangePct float64) string {
	switch {
	case expenseChangePct > 5:
		return core.TrendUp
	case expenseChangePct < -5:
		return core.TrendDown
	}
	return core.TrendStable
}

func highestDay(byDay map[string]core.Money) string {
	best := ""
	var bestAmount core.Money
	for day, amount := range byDay {
		if amount.Cents > bestAmount.Cents || (amount.Cents == bestAmount.Cents && best != "" && day < best) {
			best = day
			bestAmount = amount
		}
	}
	return best
}

// recurringImpact normalizes every active expense definition to a
// monthly figure: dailies count 30 times, weeklies 4, biweeklies 2,
// yearlies one twelfth.
func recurringImpact(recurring []core.Recurring) (core.Money, int) {
	var total core.Money
	count := 0
	for _, r := range recurring {
		if !r.Active || r.Kind != core.Expense {
			continue
		}
		count++
		switch r.Frequency {
		case core.Daily:
			total = total.Add(r.Price.Share(30))
		case core.Weekly:
			total = total.Add(r.Price.Share(4))
		case core.Biweekly:
			total = total.Add(r.Price.Share(2))
		case core.Monthly:
			total = total.Add(r.Price)
		case core.Yearly:
			total = total.Add(r.Price.Share(1.0 / 12.0))
		}
	}
	return total, count
}
