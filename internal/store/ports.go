// Package store defines the persistence ports the services depend on.
//
// Every entity table exposes the same small surface: read all, append,
// find by id, plus the handful of entity-specific operations the routes
// need. Backends (csv, sqlite, memory) implement these interfaces; core
// logic never touches file paths or database handles directly.
package store

import (
	"context"

	"tally/internal/core"
)

// Stores bundles the per-entity tables of one backend.
type Stores interface {
	Transactions() TransactionStore
	Recurring() RecurringStore
	Budgets() BudgetStore
	Splits() SplitStore
	Groups() GroupStore
	Accounts() AccountStore
	Notifications() NotificationStore
	Users() UserStore
	PasswordResets() PasswordResetStore

	Close() error
}

// TransactionStore persists transactions. Transactions are append-only:
// there is no update or delete operation.
type TransactionStore interface {
	All(ctx context.Context) ([]core.Transaction, error)
	Append(ctx context.Context, t core.Transaction) (core.Transaction, error)
	FindByID(ctx context.Context, id int64) (core.Transaction, error)
	ByReceiptGroup(ctx context.Context, receiptGroupID string) ([]core.Transaction, error)
}

// RecurringStore persists recurring definitions.
type RecurringStore interface {
	All(ctx context.Context) ([]core.Recurring, error)
	Active(ctx context.Context) ([]core.Recurring, error)
	Append(ctx context.Context, r core.Recurring) (core.Recurring, error)
	FindByID(ctx context.Context, id int64) (core.Recurring, error)
	Update(ctx context.Context, r core.Recurring) error
	// Toggle flips the active flag and returns the new state.
	Toggle(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// BudgetStore persists budgets.
type BudgetStore interface {
	All(ctx context.Context) ([]core.Budget, error)
	ByUser(ctx context.Context, userID int64) ([]core.Budget, error)
	Append(ctx context.Context, b core.Budget) (core.Budget, error)
	FindByID(ctx context.Context, id int64) (core.Budget, error)
	Update(ctx context.Context, b core.Budget) error
	Delete(ctx context.Context, id int64) error
}

// SplitStore persists split shares keyed by receipt group.
type SplitStore interface {
	All(ctx context.Context) ([]core.Split, error)
	ByReceiptGroup(ctx context.Context, receiptGroupID string) ([]core.Split, error)
	Append(ctx context.Context, s core.Split) (core.Split, error)
}

// GroupStore persists groups.
type GroupStore interface {
	All(ctx context.Context) ([]core.Group, error)
	ByMember(ctx context.Context, userID int64) ([]core.Group, error)
	Append(ctx context.Context, g core.Group) (core.Group, error)
	FindByID(ctx context.Context, id int64) (core.Group, error)
	Update(ctx context.Context, g core.Group) error
	Delete(ctx context.Context, id int64) error
}

// AccountStore persists bank accounts.
type AccountStore interface {
	All(ctx context.Context) ([]core.Account, error)
	ByUser(ctx context.Context, userID int64) ([]core.Account, error)
	Append(ctx context.Context, a core.Account) (core.Account, error)
	FindByID(ctx context.Context, id int64) (core.Account, error)
	Update(ctx context.Context, a core.Account) error
	Delete(ctx context.Context, id int64) error
}

// NotificationStore persists user notifications.
type NotificationStore interface {
	ByUser(ctx context.Context, userID int64, unreadOnly bool) ([]core.Notification, error)
	Append(ctx context.Context, n core.Notification) (core.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	// MarkAllRead marks every unread notification of the user and returns
	// how many were flipped.
	MarkAllRead(ctx context.Context, userID int64) (int, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
}

// PasswordResetStore persists single-use password reset codes.
type PasswordResetStore interface {
	ByUser(ctx context.Context, userID int64) ([]core.PasswordReset, error)
	Append(ctx context.Context, r core.PasswordReset) (core.PasswordReset, error)
	Update(ctx context.Context, r core.PasswordReset) error
}

// UserStore persists application accounts.
type UserStore interface {
	All(ctx context.Context) ([]core.User, error)
	FindByID(ctx context.Context, id int64) (core.User, error)
	FindByUsername(ctx context.Context, username string) (core.User, error)
	FindByEmail(ctx context.Context, email string) (core.User, error)
	Append(ctx context.Context, u core.User) (core.User, error)
	Update(ctx context.Context, u core.User) error
	Delete(ctx context.Context, id int64) error
}
