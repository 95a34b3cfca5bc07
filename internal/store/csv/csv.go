// Package csv is the flat-file backend. Each entity lives in its own
// CSV file under a data directory, read whole and rewritten whole on
// every mutation. It is the zero-setup default; sqlite is the grown-up
// option.
package csv

import (
	"context"
	"fmt"
	"os"

	"tally/internal/core"
	"tally/internal/store"
)

var errNotFound = core.ErrNotFound

// Store implements store.Stores over a directory of CSV files.
type Store struct {
	transactions  *table[core.Transaction]
	recurring     *table[core.Recurring]
	budgets       *table[core.Budget]
	splits        *table[core.Split]
	groups        *table[core.Group]
	accounts      *table[core.Account]
	notifications *table[core.Notification]
	users         *table[core.User]
	resets        *table[core.PasswordReset]
}

var _ store.Stores = (*Store)(nil)

// Open creates the data directory if needed and ensures every table
// file exists with its header row.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	s := &Store{}
	var err error
	if s.transactions, err = newTable(dir, "transactions", transactionCodec()); err != nil {
		return nil, err
	}
	if s.recurring, err = newTable(dir, "recurring", recurringCodec()); err != nil {
		return nil, err
	}
	if s.budgets, err = newTable(dir, "budgets", budgetCodec()); err != nil {
		return nil, err
	}
	if s.splits, err = newTable(dir, "splits", splitCodec()); err != nil {
		return nil, err
	}
	if s.groups, err = newTable(dir, "groups", groupCodec()); err != nil {
		return nil, err
	}
	if s.accounts, err = newTable(dir, "accounts", accountCodec()); err != nil {
		return nil, err
	}
	if s.notifications, err = newTable(dir, "notifications", notificationCodec()); err != nil {
		return nil, err
	}
	if s.users, err = newTable(dir, "users", userCodec()); err != nil {
		return nil, err
	}
	if s.resets, err = newTable(dir, "reset_codes", passwordResetCodec()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Transactions() store.TransactionStore   { return (*transactionTable)(s) }
func (s *Store) Recurring() store.RecurringStore        { return (*recurringTable)(s) }
func (s *Store) Budgets() store.BudgetStore             { return (*budgetTable)(s) }
func (s *Store) Splits() store.SplitStore               { return (*splitTable)(s) }
func (s *Store) Groups() store.GroupStore               { return (*groupTable)(s) }
func (s *Store) Accounts() store.AccountStore           { return (*accountTable)(s) }
func (s *Store) Notifications() store.NotificationStore { return (*notificationTable)(s) }
func (s *Store) Users() store.UserStore                 { return (*userTable)(s) }
func (s *Store) PasswordResets() store.PasswordResetStore {
	return (*passwordResetTable)(s)
}

func (s *Store) Close() error { return nil }

type transactionTable Store

func (t *transactionTable) All(ctx context.Context) ([]core.Transaction, error) {
	return t.transactions.readAll()
}

func (t *transactionTable) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	return t.transactions.append(tx)
}

func (t *transactionTable) FindByID(ctx context.Context, id int64) (core.Transaction, error) {
	return t.transactions.findByID(id)
}

func (t *transactionTable) ByReceiptGroup(ctx context.Context, receiptGroupID string) ([]core.Transaction, error) {
	all, err := t.transactions.readAll()
	if err != nil {
		return nil, err
	}
	var out []core.Transaction
	for _, tx := range all {
		if tx.ReceiptGroupID == receiptGroupID {
			out = append(out, tx)
		}
	}
	return out, nil
}

type recurringTable Store

func (t *recurringTable) All(ctx context.Context) ([]core.Recurring, error) {
	return t.recurring.readAll()
}

func (t *recurringTable) Active(ctx context.Context) ([]core.Recurring, error) {
	all, err := t.recurring.readAll()
	if err != nil {
		return nil, err
	}
	var out []core.Recurring
	for _, r := range all {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *recurringTable) Append(ctx context.Context, r core.Recurring) (core.Recurring, error) {
	return t.recurring.append(r)
}

func (t *recurringTable) FindByID(ctx context.Context, id int64) (core.Recurring, error) {
	return t.recurring.findByID(id)
}

func (t *recurringTable) Update(ctx context.Context, r core.Recurring) error {
	return t.recurring.update(r)
}

func (t *recurringTable) Toggle(ctx context.Context, id int64) (bool, error) {
	r, err := t.recurring.findByID(id)
	if err != nil {
		return false, err
	}
	r.Active = !r.Active
	if err := t.recurring.update(r); err != nil {
		return false, err
	}
	return r.Active, nil
}

func (t *recurringTable) Delete(ctx context.Context, id int64) error {
	return t.recurring.delete(id)
}

type budgetTable Store

func (t *budgetTable) All(ctx context.Context) ([]core.Budget, error) {
	return t.budgets.readAll()
}

func (t *budgetTable) ByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	all, err := t.budgets.readAll()
	if err != nil {
		return nil, err
	}
	var out []core.Budget
	for _, b := range all {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *budgetTable) Append(ctx context.Context, b core.Budget) (core.Budget, error) {
	return t.budgets.append(b)
}

func (t *budgetTable) FindByID(ctx context.Context, id int64) (core.Budget, error) {
	return t.budgets.findByID(id)
}

func (t *budgetTable) Update(ctx context.Context, b core.Budget) error {
	return t.budgets.update(b)
}

func (t *budgetTable) Delete(ctx context.Context, id int64) error {
	return t.budgets.delete(id)
}

type splitTable Store

func (t *splitTable) All(ctx context.Context) ([]core.Split, error) {
	return t.splits.readAll()
}

func (t *splitTable) ByReceiptGroup(ctx context.Context, receiptGroupID string) ([]core.Split, error) {
	all, err := t.splits.readAll()
	if err != nil {
		return nil, err
	}
	var out []core.Split
	for _, s := range all {
		if s.ReceiptGroupID == receiptGroupID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (t *splitTable) Append(ctx context.Context, s core.Split) (core.Split, error) {
	return t.splits.append(s)
}

type groupTable Store

func (t *groupTable) All(ctx context.Context) ([]core.Group, error) {
	return t.groups.readAll()
}

func (t *groupTable) ByMember(ctx context.Context, userID int64) ([]core.Group, error) {
	all, err := t.groups.readAll()
	if err != nil {
		return nil, err
	}
	var out []core.Group
	for _, g := range all {
		if g.HasMember(userID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (t *groupTable) Append(ctx context.Context, g core.Group) (core.Group, error) {
	return t.groups.append(g)
}

func (t *groupTable) FindByID(ctx context.Context, id int64) (core.Group, error) {
	return t.groups.findByID(id)
}

func (t *groupTable) Update(ctx context.Context, g core.Group) error {
	return t.groups.update(g)
}

func (t *groupTable) Delete(ctx context.Context, id int64) error {
	return t.groups.delete(id)
}

type accountTable Store

func (t *accountTable) All(ctx context.Context) ([]core.Account, error) {
	return t.accounts.readAll()
}

func (t *accountTable) ByUser(ctx context.Context, userID int64) ([]core.Account, error) {
	all, err := t.accounts.readAll()
	if err != nil {
		return nil, err
	}
	var out []core.Account
	for _, a := range all {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *accountTable) Append(ctx context.Context, a core.Account) (core.Account, error) {
	return t.accounts.append(a)
}

func (t *accountTable) FindByID(ctx context.Context, id int64) (core.Account, error) {
	return t.accounts.findByID(id)
}

func (t *accountTable) Update(ctx context.Context, a core.Account) error {
	return t.accounts.update(a)
}

func (t *accountTable) Delete(ctx context.Context, id int64) error {
	return t.accounts.delete(id)
}

type notificationTable Store

func (t *notificationTable) ByUser(ctx context.Context, userID int64, unreadOnly bool) ([]core.Notification, error) {
	all, err := t.notifications.readAll()
	if err != nil {
		return nil, err
	}
	var out []core.Notification
	for _, n := range all {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	// Newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (t *notificationTable) Append(ctx context.Context, n core.Notification) (core.Notification, error) {
	return t.notifications.append(n)
}

func (t *notificationTable) MarkRead(ctx context.Context, id int64) error {
	n, err := t.notifications.findByID(id)
	if err != nil {
		return err
	}
	n.Read = true
	return t.notifications.update(n)
}

func (t *notificationTable) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	all, err := t.notifications.readAll()
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range all {
		if all[i].UserID == userID && !all[i].Read {
			all[i].Read = true
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return count, t.notifications.rewriteAll(all)
}

func (t *notificationTable) UnreadCount(ctx context.Context, userID int64) (int, error) {
	all, err := t.notifications.readAll()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range all {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

type passwordResetTable Store

func (t *passwordResetTable) ByUser(ctx context.Context, userID int64) ([]core.PasswordReset, error) {
	all, err := t.resets.readAll()
	if err != nil {
		return nil, err
	}
	var out []core.PasswordReset
	for _, r := range all {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *passwordResetTable) Append(ctx context.Context, r core.PasswordReset) (core.PasswordReset, error) {
	return t.resets.append(r)
}

func (t *passwordResetTable) Update(ctx context.Context, r core.PasswordReset) error {
	return t.resets.update(r)
}

type userTable Store

func (t *userTable) All(ctx context.Context) ([]core.User, error) {
	return t.users.readAll()
}

func (t *userTable) FindByID(ctx context.Context, id int64) (core.User, error) {
	return t.users.findByID(id)
}

func (t *userTable) FindByUsername(ctx context.Context, username string) (core.User, error) {
	all, err := t.users.readAll()
	if err != nil {
		return core.User{}, err
	}
	for _, u := range all {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, errNotFound
}

func (t *userTable) FindByEmail(ctx context.Context, email string) (core.User, error) {
	all, err := t.users.readAll()
	if err != nil {
		return core.User{}, err
	}
	for _, u := range all {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, errNotFound
}

func (t *userTable) Append(ctx context.Context, u core.User) (core.User, error) {
	return t.users.append(u)
}

func (t *userTable) Update(ctx context.Context, u core.User) error {
	return t.users.update(u)
}

func (t *userTable) Delete(ctx context.Context, id int64) error {
	return t.users.delete(id)
}
