package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/store"
)

// ReceiptItem is one line item of a receipt or multi-item manual entry.
type ReceiptItem struct {
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Price    core.Money `json:"price"`
}

// SaveRequest is a multi-item save: the items share one receipt group
// so splits apply to them as a unit.
type SaveRequest struct {
	Items         []ReceiptItem
	Store         string
	Date          core.Date
	UserID        int64
	BankAccountID int64
	Kind          core.Kind
	ReceiptImage  string
	GroupID       int64
	// Splits are explicit per-member shares. When GroupID is set and
	// Splits is empty, the total is divided equally among the group's
	// members.
	Splits []core.Split
}

// TransactionService saves transactions with their splits and fires the
// post-save checks.
type TransactionService struct {
	stores store.Stores
	notify *NotificationService
}

func NewTransactionService(stores store.Stores, notify *NotificationService) *TransactionService {
	return &TransactionService{stores: stores, notify: notify}
}

// Save persists every item under a fresh receipt group id and records
// the splits. It returns the saved transactions.
func (s *TransactionService) Save(ctx context.Context, req SaveRequest) ([]core.Transaction, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("no items to save")
	}
	if req.Kind == "" {
		req.Kind = core.Expense
	}
	if req.Date.IsZero() {
		req.Date = core.DateOf(time.Now().UTC())
	}

	receiptGroupID := uuid.NewString()

	var total core.Money
	txs := make([]core.Transaction, 0, len(req.Items))
	for _, item := range req.Items {
		tx := core.Transaction{
			ItemName:       item.Name,
			Category:       item.Category,
			Store:          req.Store,
			Date:           req.Date,
			Price:          item.Price,
			UserID:         req.UserID,
			BankAccountID:  req.BankAccountID,
			Kind:           req.Kind,
			ReceiptImage:   req.ReceiptImage,
			GroupID:        req.GroupID,
			ReceiptGroupID: receiptGroupID,
		}
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("item %q: %w", item.Name, err)
		}
		total = total.Add(item.Price)
		txs = append(txs, tx)
	}

	saved := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		st, err := s.stores.Transactions().Append(ctx, tx)
		if err != nil {
			return saved, fmt.Errorf("save transaction %q: %w", tx.ItemName, err)
		}
		saved = append(saved, st)
	}

	if err := s.saveSplits(ctx, req, receiptGroupID, total); err != nil {
		return saved, err
	}

	slog.InfoContext(ctx, "Saved transactions",
		"count", len(saved),
		"receipt_group_id", receiptGroupID,
		"total", total.String(),
		"user_id", req.UserID)

	if s.notify != nil {
		for _, tx := range saved {
			if err := s.notify.CheckLargeExpense(ctx, tx); err != nil {
				slog.WarnContext(ctx, "Large-expense check failed",
					"transaction_id", tx.ID,
					"error", err)
			}
		}
	}
	return saved, nil
}

func (s *TransactionService) saveSplits(ctx context.Context, req SaveRequest, receiptGroupID string, total core.Money) error {
	splits := req.Splits
	for i := range splits {
		splits[i].ReceiptGroupID = receiptGroupID
	}

	if len(splits) == 0 && req.GroupID != 0 {
		group, err := s.stores.Groups().FindByID(ctx, req.GroupID)
		if err != nil {
			return fmt.Errorf("resolve group %d: %w", req.GroupID, err)
		}
		splits = Allocate(receiptGroupID, total, group.Members)
	}

	for _, sp := range splits {
		if _, err := s.stores.Splits().Append(ctx, sp); err != nil {
			return fmt.Errorf("save split for user %d: %w", sp.UserID, err)
		}
	}
	return nil
}
