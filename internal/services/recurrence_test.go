package services

import (
	"context"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/store/memory"
)

func date(y, m, d int) core.Date { return core.NewDate(y, m, d) }

func monthlyDef(next core.Date) core.Recurring {
	return core.Recurring{
		ID:        1,
		ItemName:  "Rent",
		Category:  "Housing",
		Price:     core.FromDollars(900),
		UserID:    1,
		Kind:      core.Expense,
		Frequency: core.Monthly,
		NextDue:   next,
		Active:    true,
	}
}

func TestAdvanceDueCatchUp(t *testing.T) {
	tests := []struct {
		name      string
		frequency core.Frequency
		next      core.Date
		asOf      core.Date
		wantCount int
		wantNext  core.Date
	}{
		{"weekly three missed cycles", core.Weekly, date(2025, 1, 1), date(2025, 1, 21), 3, date(2025, 1, 22)},
		{"daily five days", core.Daily, date(2025, 3, 1), date(2025, 3, 5), 5, date(2025, 3, 6)},
		{"biweekly exactly on boundary", core.Biweekly, date(2025, 1, 1), date(2025, 1, 15), 2, date(2025, 1, 29)},
		{"not yet due", core.Weekly, date(2025, 6, 1), date(2025, 5, 25), 0, date(2025, 6, 1)},
		{"yearly", core.Yearly, date(2023, 7, 4), date(2025, 7, 4), 3, date(2026, 7, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := monthlyDef(tt.next)
			def.Frequency = tt.frequency

			created, updated, err := AdvanceDue(def, tt.asOf)
			if err != nil {
				t.Fatalf("AdvanceDue: %v", err)
			}
			if len(created) != tt.wantCount {
				t.Errorf("created %d transactions, want %d", len(created), tt.wantCount)
			}
			if !updated.NextDue.Equal(tt.wantNext) {
				t.Errorf("next due = %s, want %s", updated.NextDue, tt.wantNext)
			}
			if !updated.NextDue.After(tt.asOf) {
				t.Errorf("next due %s not past %s", updated.NextDue, tt.asOf)
			}
			for i, tx := range created {
				if tx.ItemName != def.ItemName || tx.Price != def.Price {
					t.Errorf("transaction %d does not match template: %+v", i, tx)
				}
			}
		})
	}
}

func TestAdvanceDueMonthlyClamping(t *testing.T) {
	tests := []struct {
		name     string
		next     core.Date
		asOf     core.Date
		wantNext core.Date
	}{
		{"jan 31 clamps to feb 28", date(2025, 1, 31), date(2025, 1, 31), date(2025, 2, 28)},
		{"jan 31 leap year clamps to feb 29", date(2024, 1, 31), date(2024, 1, 31), date(2024, 2, 29)},
		{"jan 29 leap year keeps feb 29", date(2024, 1, 29), date(2024, 1, 29), date(2024, 2, 29)},
		{"centurial year is not leap", date(2100, 1, 31), date(2100, 1, 31), date(2100, 2, 28)},
		{"december rolls into january", date(2025, 12, 15), date(2025, 12, 15), date(2026, 1, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, updated, err := AdvanceDue(monthlyDef(tt.next), tt.asOf)
			if err != nil {
				t.Fatalf("AdvanceDue: %v", err)
			}
			if !updated.NextDue.Equal(tt.wantNext) {
				t.Errorf("next due = %s, want %s", updated.NextDue, tt.wantNext)
			}
		})
	}
}

func TestAdvanceDueAnchorDayRecovers(t *testing.T) {
	// Four monthly cycles from Jan 31: Feb clamps to 29 but March
	// returns to the 31st. The anchor day survives the short month.
	created, updated, err := AdvanceDue(monthlyDef(date(2024, 1, 31)), date(2024, 4, 30))
	if err != nil {
		t.Fatalf("AdvanceDue: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("created %d transactions, want 4", len(created))
	}
	wantDates := []core.Date{date(2024, 1, 31), date(2024, 2, 29), date(2024, 3, 31), date(2024, 4, 30)}
	for i, want := range wantDates {
		if !created[i].Date.Equal(want) {
			t.Errorf("transaction %d dated %s, want %s", i, created[i].Date, want)
		}
	}
	if want := date(2024, 5, 31); !updated.NextDue.Equal(want) {
		t.Errorf("next due = %s, want %s", updated.NextDue, want)
	}
}

func TestAdvanceDueYearlyLeapClamp(t *testing.T) {
	def := monthlyDef(date(2024, 2, 29))
	def.Frequency = core.Yearly

	_, updated, err := AdvanceDue(def, date(2024, 2, 29))
	if err != nil {
		t.Fatalf("AdvanceDue: %v", err)
	}
	if want := date(2025, 2, 28); !updated.NextDue.Equal(want) {
		t.Errorf("next due = %s, want %s", updated.NextDue, want)
	}
}

func TestAdvanceDueInactiveNoOp(t *testing.T) {
	def := monthlyDef(date(2020, 1, 1))
	def.Active = false

	created, updated, err := AdvanceDue(def, date(2025, 6, 1))
	if err != nil {
		t.Fatalf("AdvanceDue: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("inactive definition created %d transactions, want 0", len(created))
	}
	if !updated.NextDue.Equal(def.NextDue) {
		t.Errorf("inactive definition moved next due to %s", updated.NextDue)
	}
}

func TestAdvanceDueInvalidFrequency(t *testing.T) {
	def := monthlyDef(date(2025, 1, 1))
	def.Frequency = "fortnightly"

	if _, _, err := AdvanceDue(def, date(2025, 2, 1)); err == nil {
		t.Error("expected error for unknown frequency")
	}
}

func TestProcessDueIsolatesBadDefinitions(t *testing.T) {
	ctx := context.Background()
	stores := memory.New()

	good := monthlyDef(date(2025, 1, 10))
	bad := monthlyDef(date(2025, 1, 10))
	bad.ItemName = "Broken"
	bad.Frequency = "sometimes"

	if _, err := stores.Recurring().Append(ctx, bad); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := stores.Recurring().Append(ctx, good); err != nil {
		t.Fatalf("Append: %v", err)
	}

	p := NewProcessor(stores, nil)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	created, err := p.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	// Jan 10, Feb 10, Mar 10 from the good definition only.
	if created != 3 {
		t.Errorf("created %d transactions, want 3", created)
	}

	txs, err := stores.Transactions().All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	for _, tx := range txs {
		if tx.ItemName == "Broken" {
			t.Error("bad definition produced a transaction")
		}
	}
}

func TestProcessDueAdvancesPointer(t *testing.T) {
	ctx := context.Background()
	stores := memory.New()

	def, err := stores.Recurring().Append(ctx, monthlyDef(date(2025, 1, 1)))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	p := NewProcessor(stores, nil)
	now := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	if _, err := p.ProcessDue(ctx, now); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}

	got, err := stores.Recurring().FindByID(ctx, def.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if want := date(2025, 3, 1); !got.NextDue.Equal(want) {
		t.Errorf("persisted next due = %s, want %s", got.NextDue, want)
	}

	// Running again with the same clock is a no-op.
	created, err := p.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if created != 0 {
		t.Errorf("second run created %d transactions, want 0", created)
	}
}
