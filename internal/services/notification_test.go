package services

import (
	"context"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/store/memory"
)

func TestBudgetAlerts(t *testing.T) {
	ctx := context.Background()
	stores := memory.New()
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	if _, err := stores.Budgets().Append(ctx, core.Budget{
		Category: "Food", Amount: core.FromDollars(100),
		Period: core.PeriodMonthly, StartDate: date(2025, 1, 1), UserID: 1,
	}); err != nil {
		t.Fatalf("Append budget: %v", err)
	}
	if _, err := stores.Transactions().Append(ctx, expense(0, 1, date(2025, 6, 10), core.FromDollars(92), "Food")); err != nil {
		t.Fatalf("Append transaction: %v", err)
	}

	svc := NewNotificationService(stores, nil)
	count, err := svc.BudgetAlerts(ctx, 1, now)
	if err != nil {
		t.Fatalf("BudgetAlerts: %v", err)
	}
	if count != 1 {
		t.Fatalf("generated %d alerts, want 1", count)
	}

	notes, err := stores.Notifications().ByUser(ctx, 1, true)
	if err != nil {
		t.Fatalf("ByUser: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("stored %d notifications, want 1", len(notes))
	}
	if notes[0].Type != NotificationBudgetAlert {
		t.Errorf("type = %q, want %q", notes[0].Type, NotificationBudgetAlert)
	}
	if notes[0].Title != "Budget exceeded" {
		t.Errorf("title = %q, want critical wording at 92%%", notes[0].Title)
	}
}

func TestBudgetAlertsUnderThreshold(t *testing.T) {
	ctx := context.Background()
	stores := memory.New()
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	if _, err := stores.Budgets().Append(ctx, core.Budget{
		Category: "Food", Amount: core.FromDollars(100),
		Period: core.PeriodMonthly, StartDate: date(2025, 1, 1), UserID: 1,
	}); err != nil {
		t.Fatalf("Append budget: %v", err)
	}
	if _, err := stores.Transactions().Append(ctx, expense(0, 1, date(2025, 6, 10), core.FromDollars(50), "Food")); err != nil {
		t.Fatalf("Append transaction: %v", err)
	}

	svc := NewNotificationService(stores, nil)
	count, err := svc.BudgetAlerts(ctx, 1, now)
	if err != nil {
		t.Fatalf("BudgetAlerts: %v", err)
	}
	if count != 0 {
		t.Errorf("generated %d alerts at 50%%, want 0", count)
	}
}

func TestRecurringReminders(t *testing.T) {
	ctx := context.Background()
	stores := memory.New()
	today := date(2025, 6, 15)

	defs := []core.Recurring{
		monthlyDef(date(2025, 6, 15)), // due today
		monthlyDef(date(2025, 6, 18)), // due in three days
		monthlyDef(date(2025, 6, 20)), // too far out
	}
	for _, def := range defs {
		if _, err := stores.Recurring().Append(ctx, def); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	svc := NewNotificationService(stores, nil)
	if err := svc.RecurringReminders(ctx, today); err != nil {
		t.Fatalf("RecurringReminders: %v", err)
	}

	notes, err := stores.Notifications().ByUser(ctx, 1, false)
	if err != nil {
		t.Fatalf("ByUser: %v", err)
	}
	if len(notes) != 2 {
		t.Errorf("stored %d reminders, want 2", len(notes))
	}
}

func TestCheckLargeExpense(t *testing.T) {
	ctx := context.Background()
	stores := memory.New()

	// Five prior expenses averaging $10.
	for i := 0; i < 5; i++ {
		if _, err := stores.Transactions().Append(ctx, expense(0, 1, date(2025, 6, 1+i), core.FromDollars(10), "Food")); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	big, err := stores.Transactions().Append(ctx, expense(0, 1, date(2025, 6, 10), core.FromDollars(100), "Electronics"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	svc := NewNotificationService(stores, nil)
	if err := svc.CheckLargeExpense(ctx, big); err != nil {
		t.Fatalf("CheckLargeExpense: %v", err)
	}

	count, err := stores.Notifications().UnreadCount(ctx, 1)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 1 {
		t.Errorf("unread = %d, want 1 large-expense alert", count)
	}
}

func TestCheckLargeExpenseNeedsSample(t *testing.T) {
	ctx := context.Background()
	stores := memory.New()

	// Only two priors: not enough history to judge.
	for i := 0; i < 2; i++ {
		if _, err := stores.Transactions().Append(ctx, expense(0, 1, date(2025, 6, 1+i), core.FromDollars(10), "Food")); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	big, err := stores.Transactions().Append(ctx, expense(0, 1, date(2025, 6, 10), core.FromDollars(500), "Electronics"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	svc := NewNotificationService(stores, nil)
	if err := svc.CheckLargeExpense(ctx, big); err != nil {
		t.Fatalf("CheckLargeExpense: %v", err)
	}
	count, err := stores.Notifications().UnreadCount(ctx, 1)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 0 {
		t.Errorf("unread = %d, want 0 without enough history", count)
	}
}
