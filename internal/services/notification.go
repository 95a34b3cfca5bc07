package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/core"
	"tally/internal/store"
)

const (
	NotificationBudgetAlert   = "budget_alert"
	NotificationRecurringDue  = "recurring_due"
	NotificationLargeExpense  = "large_expense"
	NotificationPasswordReset = "password_reset"
)

// Large-transaction detection thresholds: a new expense triggers an
// alert when it exceeds largeMultiple times the viewer's average and at
// least largeMinSample prior expenses exist to average over.
const (
	largeMultiple  = 3.0
	largeMinSample = 5
)

// Publisher delivers a notification to an out-of-process channel
// (message queue feeding the email worker). It is optional; a nil
// publisher means in-app notifications only.
type Publisher interface {
	PublishNotification(ctx context.Context, n core.Notification) error
}

// NotificationService creates in-app notifications and forwards them to
// the publisher when one is configured.
type NotificationService struct {
	stores    store.Stores
	publisher Publisher
}

func NewNotificationService(stores store.Stores, publisher Publisher) *NotificationService {
	return &NotificationService{stores: stores, publisher: publisher}
}

func (s *NotificationService) record(ctx context.Context, n core.Notification) {
	n.Date = time.Now().UTC()
	saved, err := s.stores.Notifications().Append(ctx, n)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save notification",
			"user_id", n.UserID,
			"type", n.Type,
			"error", err)
		return
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishNotification(ctx, saved); err != nil {
		slog.WarnContext(ctx, "Failed to publish notification",
			"notification_id", saved.ID,
			"error", err)
	}
}

// PasswordResetCode records a reset-code notification so the email
// worker delivers it to the account's address.
func (s *NotificationService) PasswordResetCode(ctx context.Context, userID int64, code string) {
	s.record(ctx, core.Notification{
		UserID:  userID,
		Type:    NotificationPasswordReset,
		Title:   "Password reset code",
		Message: fmt.Sprintf("Your password reset code is %s. It expires in 15 minutes.", code),
	})
}

// BudgetAlerts checks every monthly budget of the user against the
// current-month spend and records a warning at 75% or a critical alert
// at 90%. Returns how many alerts were generated.
func (s *NotificationService) BudgetAlerts(ctx context.Context, viewerID int64, now time.Time) (int, error) {
	analytics := NewAnalyticsService(s.stores)
	dash, err := analytics.Dashboard(ctx, viewerID, 0, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, bs := range dash.BudgetStatus {
		if bs.Status == core.BudgetGood {
			continue
		}
		title := "Budget warning"
		if bs.Status == core.BudgetCritical {
			title = "Budget exceeded"
		}
		s.record(ctx, core.Notification{
			UserID: viewerID,
			Type:   NotificationBudgetAlert,
			Title:  title,
			Message: fmt.Sprintf("You have spent %s of your %s budget for %s (%.0f%%)",
				bs.Spent.String(), bs.Limit.String(), bs.Category, bs.Percentage),
			Data: bs.Category,
		})
		count++
	}
	return count, nil
}

// RecurringReminders records a reminder for every active definition due
// today or in three days.
func (s *NotificationService) RecurringReminders(ctx context.Context, today core.Date) error {
	defs, err := s.stores.Recurring().Active(ctx)
	if err != nil {
		return fmt.Errorf("load active definitions: %w", err)
	}
	for _, def := range defs {
		days := today.DaysUntil(def.NextDue)
		if days != 0 && days != 3 {
			continue
		}
		when := "today"
		if days == 3 {
			when = "in 3 days"
		}
		s.record(ctx, core.Notification{
			UserID: def.UserID,
			Type:   NotificationRecurringDue,
			Title:  "Upcoming charge",
			Message: fmt.Sprintf("%s (%s) is due %s",
				def.ItemName, def.Price.String(), when),
			Data: def.ItemName,
		})
	}
	return nil
}

// CheckLargeExpense compares a newly saved expense against the user's
// historical average and records an alert when it stands out.
func (s *NotificationService) CheckLargeExpense(ctx context.Context, tx core.Transaction) error {
	if tx.Kind != core.Expense {
		return nil
	}
	all, err := s.stores.Transactions().All(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	var total core.Money
	count := 0
	for _, t := range all {
		if t.UserID != tx.UserID || t.Kind != core.Expense || t.ID == tx.ID {
			continue
		}
		total = total.Add(t.Price)
		count++
	}
	if count < largeMinSample {
		return nil
	}
	avg := total.Div(count)
	if float64(tx.Price.Cents) <= float64(avg.Cents)*largeMultiple {
		return nil
	}

	s.record(ctx, core.Notification{
		UserID: tx.UserID,
		Type:   NotificationLargeExpense,
		Title:  "Unusually large expense",
		Message: fmt.Sprintf("%s cost %s, well above your %s average",
			tx.ItemName, tx.Price.String(), avg.String()),
		Data: tx.ItemName,
	})
	return nil
}
