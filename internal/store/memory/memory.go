// Package memory is an in-process store backend. It backs tests and the
// default zero-configuration mode; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"tally/internal/core"
	"tally/internal/store"
)

// Store keeps every table in memory behind one mutex. Identifier
// assignment matches the file backends: max existing id + 1.
type Store struct {
	mu sync.Mutex

	transactions  []core.Transaction
	recurring     []core.Recurring
	budgets       []core.Budget
	splits        []core.Split
	groups        []core.Group
	accounts      []core.Account
	notifications []core.Notification
	users         []core.User
	resets        []core.PasswordReset
}

func New() *Store {
	return &Store{}
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

func nextID[T any](items []T, id func(T) int64) int64 {
	var max int64
	for _, it := range items {
		if v := id(it); v > max {
			max = v
		}
	}
	return max + 1
}

type transactionTable Store

func (t *transactionTable) All(context.Context) ([]core.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.Transaction, len(t.transactions))
	copy(out, t.transactions)
	return out, nil
}

func (t *transactionTable) Append(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tx.ID = nextID(t.transactions, func(v core.Transaction) int64 { return v.ID })
	t.transactions = append(t.transactions, tx)
	return tx, nil
}

func (t *transactionTable) FindByID(_ context.Context, id int64) (core.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tx := range t.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func (t *transactionTable) ByReceiptGroup(_ context.Context, rgid string) ([]core.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []core.Transaction
	for _, tx := range t.transactions {
		if tx.ReceiptGroupID == rgid {
			out = append(out, tx)
		}
	}
	return out, nil
}

type recurringTable Store

func (t *recurringTable) All(context.Context) ([]core.Recurring, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.Recurring, len(t.recurring))
	copy(out, t.recurring)
	return out, nil
}

func (t *recurringTable) Active(ctx context.Context) ([]core.Recurring, error) {
	all, err := t.All(ctx)
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

func (t *recurringTable) Append(_ context.Context, r core.Recurring) (core.Recurring, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r.ID = nextID(t.recurring, func(v core.Recurring) int64 { return v.ID })
	t.recurring = append(t.recurring, r)
	return r, nil
}

func (t *recurringTable) FindByID(_ context.Context, id int64) (core.Recurring, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.recurring {
		if r.ID == id {
			return r, nil
		}
	}
	return core.Recurring{}, core.ErrNotFound
}

func (t *recurringTable) Update(_ context.Context, r core.Recurring) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.recurring {
		if t.recurring[i].ID == r.ID {
			t.recurring[i] = r
			return nil
		}
	}
	return core.ErrNotFound
}

func (t *recurringTable) Toggle(_ context.Context, id int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.recurring {
		if t.recurring[i].ID == id {
			t.recurring[i].Active = !t.recurring[i].Active
			return t.recurring[i].Active, nil
		}
	}
	return false, core.ErrNotFound
}

func (t *recurringTable) Delete(_ context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.recurring {
		if t.recurring[i].ID == id {
			t.recurring = append(t.recurring[:i], t.recurring[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

type budgetTable Store

func (t *budgetTable) All(context.Context) ([]core.Budget, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.Budget, len(t.budgets))
	copy(out, t.budgets)
	return out, nil
}

func (t *budgetTable) ByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	all, err := t.All(ctx)
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

func (t *budgetTable) Append(_ context.Context, b core.Budget) (core.Budget, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b.ID = nextID(t.budgets, func(v core.Budget) int64 { return v.ID })
	t.budgets = append(t.budgets, b)
	return b, nil
}

func (t *budgetTable) FindByID(_ context.Context, id int64) (core.Budget, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range t.budgets {
		if b.ID == id {
			return b, nil
		}
	}
	return core.Budget{}, core.ErrNotFound
}

func (t *budgetTable) Update(_ context.Context, b core.Budget) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.budgets {
		if t.budgets[i].ID == b.ID {
			t.budgets[i] = b
			return nil
		}
	}
	return core.ErrNotFound
}

func (t *budgetTable) Delete(_ context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.budgets {
		if t.budgets[i].ID == id {
			t.budgets = append(t.budgets[:i], t.budgets[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

type splitTable Store

func (t *splitTable) All(context.Context) ([]core.Split, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.Split, len(t.splits))
	copy(out, t.splits)
	return out, nil
}

func (t *splitTable) ByReceiptGroup(_ context.Context, rgid string) ([]core.Split, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []core.Split
	for _, s := range t.splits {
		if s.ReceiptGroupID == rgid {
			out = append(out, s)
		}
	}
	return out, nil
}

func (t *splitTable) Append(_ context.Context, s core.Split) (core.Split, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.ID = nextID(t.splits, func(v core.Split) int64 { return v.ID })
	t.splits = append(t.splits, s)
	return s, nil
}

type groupTable Store

func (t *groupTable) All(context.Context) ([]core.Group, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.Group, len(t.groups))
	copy(out, t.groups)
	return out, nil
}

func (t *groupTable) ByMember(ctx context.Context, userID int64) ([]core.Group, error) {
	all, err := t.All(ctx)
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

func (t *groupTable) Append(_ context.Context, g core.Group) (core.Group, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g.ID = nextID(t.groups, func(v core.Group) int64 { return v.ID })
	t.groups = append(t.groups, g)
	return g, nil
}

func (t *groupTable) FindByID(_ context.Context, id int64) (core.Group, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, g := range t.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return core.Group{}, core.ErrNotFound
}

func (t *groupTable) Update(_ context.Context, g core.Group) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.groups {
		if t.groups[i].ID == g.ID {
			t.groups[i] = g
			return nil
		}
	}
	return core.ErrNotFound
}

func (t *groupTable) Delete(_ context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.groups {
		if t.groups[i].ID == id {
			t.groups = append(t.groups[:i], t.groups[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

type accountTable Store

func (t *accountTable) All(context.Context) ([]core.Account, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.Account, len(t.accounts))
	copy(out, t.accounts)
	return out, nil
}

func (t *accountTable) ByUser(ctx context.Context, userID int64) ([]core.Account, error) {
	all, err := t.All(ctx)
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

func (t *accountTable) Append(_ context.Context, a core.Account) (core.Account, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a.ID = nextID(t.accounts, func(v core.Account) int64 { return v.ID })
	t.accounts = append(t.accounts, a)
	return a, nil
}

func (t *accountTable) FindByID(_ context.Context, id int64) (core.Account, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, a := range t.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return core.Account{}, core.ErrNotFound
}

func (t *accountTable) Update(_ context.Context, a core.Account) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.accounts {
		if t.accounts[i].ID == a.ID {
			t.accounts[i] = a
			return nil
		}
	}
	return core.ErrNotFound
}

func (t *accountTable) Delete(_ context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.accounts {
		if t.accounts[i].ID == id {
			t.accounts = append(t.accounts[:i], t.accounts[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

type notificationTable Store

func (t *notificationTable) ByUser(_ context.Context, userID int64, unreadOnly bool) ([]core.Notification, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []core.Notification
	for _, n := range t.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (t *notificationTable) Append(_ context.Context, n core.Notification) (core.Notification, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n.ID = nextID(t.notifications, func(v core.Notification) int64 { return v.ID })
	t.notifications = append(t.notifications, n)
	return n, nil
}

func (t *notificationTable) MarkRead(_ context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.notifications {
		if t.notifications[i].ID == id {
			t.notifications[i].Read = true
			return nil
		}
	}
	return core.ErrNotFound
}

func (t *notificationTable) MarkAllRead(_ context.Context, userID int64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for i := range t.notifications {
		if t.notifications[i].UserID == userID && !t.notifications[i].Read {
			t.notifications[i].Read = true
			count++
		}
	}
	return count, nil
}

func (t *notificationTable) UnreadCount(ctx context.Context, userID int64) (int, error) {
	unread, err := t.ByUser(ctx, userID, true)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

type userTable Store

func (t *userTable) All(context.Context) ([]core.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.User, len(t.users))
	copy(out, t.users)
	return out, nil
}

func (t *userTable) FindByID(_ context.Context, id int64) (core.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range t.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (t *userTable) FindByUsername(_ context.Context, username string) (core.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range t.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (t *userTable) FindByEmail(_ context.Context, email string) (core.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range t.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (t *userTable) Append(_ context.Context, u core.User) (core.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u.ID = nextID(t.users, func(v core.User) int64 { return v.ID })
	t.users = append(t.users, u)
	return u, nil
}

func (t *userTable) Update(_ context.Context, u core.User) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.users {
		if t.users[i].ID == u.ID {
			t.users[i] = u
			return nil
		}
	}
	return core.ErrNotFound
}

func (t *userTable) Delete(_ context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.users {
		if t.users[i].ID == id {
			t.users = append(t.users[:i], t.users[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

type passwordResetTable Store

func (t *passwordResetTable) ByUser(_ context.Context, userID int64) ([]core.PasswordReset, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []core.PasswordReset
	for _, r := range t.resets {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *passwordResetTable) Append(_ context.Context, r core.PasswordReset) (core.PasswordReset, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r.ID = nextID(t.resets, func(v core.PasswordReset) int64 { return v.ID })
	t.resets = append(t.resets, r)
	return r, nil
}

func (t *passwordResetTable) Update(_ context.Context, r core.PasswordReset) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.resets {
		if t.resets[i].ID == r.ID {
			t.resets[i] = r
			return nil
		}
	}
	return core.ErrNotFound
}

var _ store.Stores = (*Store)(nil)
