// Package services holds the application logic between the HTTP layer
// and the stores: recurrence catch-up, split allocation, analytics
// aggregation and alert generation.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/core"
	"tally/internal/store"
)

// AdvanceDue materializes one transaction per elapsed cycle of the
// definition up to and including asOf, and returns the definition with
// NextDue moved strictly past asOf. An inactive definition is a no-op.
//
// Monthly and yearly cadences keep the anchor day of month across the
// catch-up loop: a definition anchored on the 31st lands on Feb 28/29,
// then returns to the 31st in March rather than staying clamped.
func AdvanceDue(def core.Recurring, asOf core.Date) ([]core.Transaction, core.Recurring, error) {
	if !def.Active {
		return nil, def, nil
	}
	if err := def.NextDue.Validate(); err != nil {
		return nil, def, fmt.Errorf("definition %d: %w", def.ID, err)
	}
	if err := def.Frequency.Validate(); err != nil {
		return nil, def, fmt.Errorf("definition %d: %w", def.ID, err)
	}

	anchorDay := def.NextDue.Day()
	anchorMonth := int(def.NextDue.Month())

	var created []core.Transaction
	for !def.NextDue.After(asOf) {
		created = append(created, def.Template(def.NextDue))
		def.NextDue = nextOccurrence(def.NextDue, def.Frequency, anchorMonth, anchorDay)
	}
	return created, def, nil
}

func nextOccurrence(d core.Date, freq core.Frequency, anchorMonth, anchorDay int) core.Date {
	switch freq {
	case core.Daily:
		return d.AddDays(1)
	case core.Weekly:
		return d.AddDays(7)
	case core.Biweekly:
		return d.AddDays(14)
	case core.Monthly:
		year, month := d.Year(), int(d.Month())+1
		if month > 12 {
			month = 1
			year++
		}
		return core.NewDate(year, month, clampDay(year, month, anchorDay))
	case core.Yearly:
		year := d.Year() + 1
		return core.NewDate(year, anchorMonth, clampDay(year, anchorMonth, anchorDay))
	}
	// Unreachable; Frequency was validated by the caller.
	return d.AddDays(1)
}

func clampDay(year, month, day int) int {
	if last := core.DaysInMonth(year, month); day > last {
		return last
	}
	return day
}

// Processor runs the catch-up over every active definition. One bad
// definition is logged and skipped; it never blocks the rest.
type Processor struct {
	stores store.Stores
	notify *NotificationService
}

func NewProcessor(stores store.Stores, notify *NotificationService) *Processor {
	return &Processor{stores: stores, notify: notify}
}

// ProcessDue advances every active definition up to now and persists
// the generated transactions. It returns how many were created.
func (p *Processor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	asOf := core.DateOf(now)

	defs, err := p.stores.Recurring().Active(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active definitions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring definitions",
		"total_active", len(defs),
		"as_of", asOf.String())

	createdCount := 0
	for _, def := range defs {
		created, updated, err := AdvanceDue(def, asOf)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping recurring definition",
				"id", def.ID,
				"item_name", def.ItemName,
				"error", err)
			continue
		}
		if len(created) == 0 {
			continue
		}

		saved := 0
		for _, tx := range created {
			if _, err := p.stores.Transactions().Append(ctx, tx); err != nil {
				slog.ErrorContext(ctx, "Failed to save generated transaction",
					"recurring_id", def.ID,
					"date", tx.Date.String(),
					"error", err)
				continue
			}
			saved++
		}

		// One batched pointer update per definition, after the catch-up.
		if err := p.stores.Recurring().Update(ctx, updated); err != nil {
			slog.ErrorContext(ctx, "Failed to advance due date",
				"recurring_id", def.ID,
				"error", err)
			continue
		}

		createdCount += saved
		slog.InfoContext(ctx, "Materialized recurring transactions",
			"recurring_id", def.ID,
			"item_name", def.ItemName,
			"created", saved,
			"next_due", updated.NextDue.String())
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"created", createdCount,
		"checked", len(defs))
	return createdCount, nil
}

// UpcomingReminders generates due-date reminder notifications for
// active definitions due in exactly leadDays days or today.
func (p *Processor) UpcomingReminders(ctx context.Context, now time.Time) error {
	if p.notify == nil {
		return nil
	}
	return p.notify.RecurringReminders(ctx, core.DateOf(now))
}
