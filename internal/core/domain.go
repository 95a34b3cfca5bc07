package core

import (
	"errors"
	"slices"
	"strings"
	"time"
)

const (
	Expense Kind = "expense"
	Income  Kind = "income"
)

const (
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
	Yearly   Frequency = "yearly"
)

// PeriodMonthly is the only budget period currently acted upon.
const PeriodMonthly = "monthly"

type (
	// Kind distinguishes money leaving from money arriving.
	Kind string

	// Frequency is the cadence of a recurring definition.
	Frequency string

	// Transaction is an immutable-once-created expense or income record.
	// ReceiptGroupID correlates the line items created from one receipt or
	// one manual multi-item entry; splits attach to it, not to the
	// transaction id.
	Transaction struct {
		ID             int64  `json:"id"`
		ItemName       string `json:"item_name"`
		Category       string `json:"category"`
		Store          string `json:"store"`
		Date           Date   `json:"date"`
		Price          Money  `json:"price"`
		UserID         int64  `json:"user_id"`
		BankAccountID  int64  `json:"bank_account_id"`
		Kind           Kind   `json:"type"`
		ReceiptImage   string `json:"receipt_image,omitempty"`
		GroupID        int64  `json:"group_id,omitempty"`
		ReceiptGroupID string `json:"receipt_group_id,omitempty"`
	}

	// Recurring is a template for auto-generating transactions on a fixed
	// cadence. NextDue is always the earliest not-yet-materialized
	// occurrence; the recurrence engine advances it past "today" once
	// materialized.
	Recurring struct {
		ID            int64     `json:"id"`
		ItemName      string    `json:"item_name"`
		Category      string    `json:"category"`
		Store         string    `json:"store"`
		Price         Money     `json:"price"`
		UserID        int64     `json:"user_id"`
		BankAccountID int64     `json:"bank_account_id"`
		Kind          Kind      `json:"type"`
		Frequency     Frequency `json:"frequency"`
		NextDue       Date      `json:"next_date"`
		Active        bool      `json:"active"`
		GroupID       int64     `json:"group_id,omitempty"`
	}

	// Budget is a monthly spending limit for one category. Duplicates per
	// (user, category) are legal and each applies independently.
	Budget struct {
		ID        int64  `json:"id"`
		Category  string `json:"category"`
		Amount    Money  `json:"amount"`
		Period    string `json:"period"`
		StartDate Date   `json:"start_date"`
		UserID    int64  `json:"user_id"`
	}

	// Split records one member's share of a receipt group's total cost.
	// The shares of one receipt group should reconstruct the group's
	// transaction total, but nothing enforces it; consumers tolerate
	// mismatch.
	Split struct {
		ID             int64   `json:"id"`
		ReceiptGroupID string  `json:"receipt_group_id"`
		UserID         int64   `json:"user_id"`
		Amount         Money   `json:"amount"`
		Percentage     float64 `json:"percentage"`
	}

	// Group is a named set of users who share costs. The creator is always
	// a member.
	Group struct {
		ID      int64   `json:"id"`
		Name    string  `json:"name"`
		Members []int64 `json:"members"`
	}

	// Account is a bank account transactions are charged against.
	Account struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Type   string `json:"type"`
		UserID int64  `json:"user_id"`
	}

	// Notification is a stored alert for one user (budget threshold,
	// recurring reminder, large transaction).
	Notification struct {
		ID      int64     `json:"id"`
		UserID  int64     `json:"user_id"`
		Type    string    `json:"type"`
		Title   string    `json:"title"`
		Message string    `json:"message"`
		Date    time.Time `json:"date"`
		Read    bool      `json:"read"`
		Data    string    `json:"data,omitempty"`
	}

	// PasswordReset is a single-use emailed code that lets a user set a
	// new password without knowing the old one.
	PasswordReset struct {
		ID      int64     `json:"id"`
		UserID  int64     `json:"user_id"`
		Code    string    `json:"-"`
		Expires time.Time `json:"expires"`
		Used    bool      `json:"used"`
	}

	// User is an application account.
	User struct {
		ID           int64  `json:"id"`
		Username     string `json:"username"`
		FullName     string `json:"full_name"`
		Email        string `json:"email"`
		PasswordHash string `json:"-"`
		Admin        bool   `json:"is_admin"`
		Active       bool   `json:"active"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid transaction type")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrEmptyItemName    = errors.New("empty item name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyGroupName   = errors.New("empty group name")
	ErrNoMembers        = errors.New("group has no members")
	ErrNotFound         = errors.New("not found")
)

func (k Kind) Validate() error {
	switch k {
	case Expense, Income:
		return nil
	}
	return ErrInvalidKind
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Yearly:
		return nil
	}
	return ErrInvalidFrequency
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.ItemName) == "" {
		return ErrEmptyItemName
	}
	if len(t.ItemName) > 200 {
		return errors.New("item name too long (max 200 characters)")
	}
	if t.Price.Cents < 0 {
		return ErrInvalidAmount
	}
	return t.Kind.Validate()
}

func (r Recurring) Validate() error {
	if err := r.NextDue.Validate(); err != nil {
		return errors.New("invalid next due date: " + err.Error())
	}
	if err := r.Frequency.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.ItemName) == "" {
		return ErrEmptyItemName
	}
	if len(r.ItemName) > 200 {
		return errors.New("item name too long (max 200 characters)")
	}
	if err := r.Price.Validate(); err != nil {
		return err
	}
	return r.Kind.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	return b.Amount.Validate()
}

func (g Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyGroupName
	}
	if len(g.Members) == 0 {
		return ErrNoMembers
	}
	return nil
}

// HasMember reports whether the user belongs to the group.
func (g Group) HasMember(userID int64) bool {
	return slices.Contains(g.Members, userID)
}

// Template clones the definition's template fields into a transaction
// dated at the given occurrence. The caller assigns the id.
func (r Recurring) Template(date Date) Transaction {
	return Transaction{
		ItemName:      r.ItemName,
		Category:      r.Category,
		Store:         r.Store,
		Date:          date,
		Price:         r.Price,
		UserID:        r.UserID,
		BankAccountID: r.BankAccountID,
		Kind:          r.Kind,
		GroupID:       r.GroupID,
	}
}
