package services

import (
	"context"
	"testing"

	"tally/internal/core"
	"tally/internal/store/memory"
)

func TestSaveReceiptItemsShareGroup(t *testing.T) {
	ctx := context.Background()
	stores := memory.New()
	svc := NewTransactionService(stores, nil)

	saved, err := svc.Save(ctx, SaveRequest{
		Items: []ReceiptItem{
			{Name: "Bread", Category: "Food", Price: core.FromDollars(2.50)},
			{Name: "Milk", Category: "Food", Price: core.FromDollars(1.80)},
		},
		Store:  "Market",
		Date:   date(2025, 6, 1),
		UserID: 1,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved %d transactions, want 2", len(saved))
	}
	if saved[0].ReceiptGroupID == "" || saved[0].ReceiptGroupID != saved[1].ReceiptGroupID {
		t.Errorf("items do not share a receipt group: %q vs %q",
			saved[0].ReceiptGroupID, saved[1].ReceiptGroupID)
	}
}

func TestSaveGroupAllocatesEqualSplits(t *testing.T) {
	ctx := context.Background()
	stores := memory.New()

	group, err := stores.Groups().Append(ctx, core.Group{Name: "Flat", Members: []int64{1, 2}})
	if err != nil {
		t.Fatalf("Append group: %v", err)
	}

	svc := NewTransactionService(stores, nil)
	saved, err := svc.Save(ctx, SaveRequest{
		Items:   []ReceiptItem{{Name: "Dinner", Category: "Food", Price: core.FromDollars(50)}},
		Date:    date(2025, 6, 1),
		UserID:  1,
		GroupID: group.ID,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	splits, err := stores.Splits().ByReceiptGroup(ctx, saved[0].ReceiptGroupID)
	if err != nil {
		t.Fatalf("ByReceiptGroup: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("got %d splits, want 2", len(splits))
	}
	for _, sp := range splits {
		if sp.Amount != core.FromDollars(25) {
			t.Errorf("split amount = %s, want 25.00", sp.Amount)
		}
	}
}

func TestSaveExplicitSplitsKeptAsGiven(t *testing.T) {
	ctx := context.Background()
	stores := memory.New()
	svc := NewTransactionService(stores, nil)

	saved, err := svc.Save(ctx, SaveRequest{
		Items:  []ReceiptItem{{Name: "Trip", Category: "Travel", Price: core.FromDollars(100)}},
		Date:   date(2025, 6, 1),
		UserID: 1,
		Splits: []core.Split{
			{UserID: 1, Amount: core.FromDollars(70), Percentage: 70},
			{UserID: 2, Amount: core.FromDollars(30), Percentage: 30},
		},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	splits, err := stores.Splits().ByReceiptGroup(ctx, saved[0].ReceiptGroupID)
	if err != nil {
		t.Fatalf("ByReceiptGroup: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("got %d splits, want 2", len(splits))
	}
	if splits[0].Amount != core.FromDollars(70) || splits[1].Amount != core.FromDollars(30) {
		t.Errorf("custom splits rewritten: %s / %s", splits[0].Amount, splits[1].Amount)
	}
}

func TestSaveRejectsInvalidItem(t *testing.T) {
	svc := NewTransactionService(memory.New(), nil)

	_, err := svc.Save(context.Background(), SaveRequest{
		Items:  []ReceiptItem{{Name: "   ", Category: "Food", Price: core.FromDollars(1)}},
		Date:   date(2025, 6, 1),
		UserID: 1,
	})
	if err == nil {
		t.Error("expected validation error for blank item name")
	}
}
