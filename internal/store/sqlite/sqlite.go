// Package sqlite is the database backend, a single-file SQLite store
// with schema managed by embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tally/internal/core"
	"tally/internal/store"

	_ "modernc.org/sqlite"
)

// Store implements store.Stores over one SQLite database file.
type Store struct {
	db *sql.DB
}

var _ store.Stores = (*Store)(nil)

// Open opens (creating if needed) the database and runs pending
// migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Transactions() store.TransactionStore   { return (*transactionStore)(s) }
func (s *Store) Recurring() store.RecurringStore        { return (*recurringStore)(s) }
func (s *Store) Budgets() store.BudgetStore             { return (*budgetStore)(s) }
func (s *Store) Splits() store.SplitStore               { return (*splitStore)(s) }
func (s *Store) Groups() store.GroupStore               { return (*groupStore)(s) }
func (s *Store) Accounts() store.AccountStore           { return (*accountStore)(s) }
func (s *Store) Notifications() store.NotificationStore { return (*notificationStore)(s) }
func (s *Store) Users() store.UserStore                 { return (*userStore)(s) }
func (s *Store) PasswordResets() store.PasswordResetStore {
	return (*passwordResetStore)(s)
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type transactionStore Store

const transactionCols = "id, item_name, category, store, date, price_cents, user_id, bank_account_id, type, receipt_image, group_id, receipt_group_id"

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var date string
	err := row.Scan(&t.ID, &t.ItemName, &t.Category, &t.Store, &date, &t.Price.Cents,
		&t.UserID, &t.BankAccountID, &t.Kind, &t.ReceiptImage, &t.GroupID, &t.ReceiptGroupID)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *transactionStore) All(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+transactionCols+" FROM transactions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (s *transactionStore) Append(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (item_name, category, store, date, price_cents, user_id, bank_account_id, type, receipt_image, group_id, receipt_group_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ItemName, t.Category, t.Store, t.Date.String(), t.Price.Cents,
		t.UserID, t.BankAccountID, string(t.Kind), t.ReceiptImage, t.GroupID, t.ReceiptGroupID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	return t, err
}

func (s *transactionStore) FindByID(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(s.db.QueryRowContext(ctx,
		"SELECT "+transactionCols+" FROM transactions WHERE id = ?", id))
	if err != nil {
		return core.Transaction{}, mapNotFound(err)
	}
	return t, nil
}

func (s *transactionStore) ByReceiptGroup(ctx context.Context, receiptGroupID string) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+transactionCols+" FROM transactions WHERE receipt_group_id = ? ORDER BY id", receiptGroupID)
	if err != nil {
		return nil, fmt.Errorf("query transactions by receipt group: %w", err)
	}
	return collectTransactions(rows)
}

type recurringStore Store

const recurringCols = "id, item_name, category, store, price_cents, user_id, bank_account_id, type, frequency, next_date, active, group_id"

func scanRecurring(row interface{ Scan(...any) error }) (core.Recurring, error) {
	var r core.Recurring
	var nextDate string
	err := row.Scan(&r.ID, &r.ItemName, &r.Category, &r.Store, &r.Price.Cents,
		&r.UserID, &r.BankAccountID, &r.Kind, &r.Frequency, &nextDate, &r.Active, &r.GroupID)
	if err != nil {
		return core.Recurring{}, err
	}
	r.NextDue, err = core.ParseDate(nextDate)
	if err != nil {
		return core.Recurring{}, err
	}
	return r, nil
}

func collectRecurring(rows *sql.Rows) ([]core.Recurring, error) {
	defer rows.Close()
	var out []core.Recurring
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *recurringStore) All(ctx context.Context) ([]core.Recurring, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+recurringCols+" FROM recurring ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query recurring: %w", err)
	}
	return collectRecurring(rows)
}

func (s *recurringStore) Active(ctx context.Context) ([]core.Recurring, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+recurringCols+" FROM recurring WHERE active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query active recurring: %w", err)
	}
	return collectRecurring(rows)
}

func (s *recurringStore) Append(ctx context.Context, r core.Recurring) (core.Recurring, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO recurring (item_name, category, store, price_cents, user_id, bank_account_id, type, frequency, next_date, active, group_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ItemName, r.Category, r.Store, r.Price.Cents, r.UserID, r.BankAccountID,
		string(r.Kind), string(r.Frequency), r.NextDue.String(), r.Active, r.GroupID)
	if err != nil {
		return core.Recurring{}, fmt.Errorf("insert recurring: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return r, err
}

func (s *recurringStore) FindByID(ctx context.Context, id int64) (core.Recurring, error) {
	r, err := scanRecurring(s.db.QueryRowContext(ctx,
		"SELECT "+recurringCols+" FROM recurring WHERE id = ?", id))
	if err != nil {
		return core.Recurring{}, mapNotFound(err)
	}
	return r, nil
}

func (s *recurringStore) Update(ctx context.Context, r core.Recurring) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recurring SET item_name = ?, category = ?, store = ?, price_cents = ?, user_id = ?,
		 bank_account_id = ?, type = ?, frequency = ?, next_date = ?, active = ?, group_id = ? WHERE id = ?`,
		r.ItemName, r.Category, r.Store, r.Price.Cents, r.UserID, r.BankAccountID,
		string(r.Kind), string(r.Frequency), r.NextDue.String(), r.Active, r.GroupID, r.ID)
	if err != nil {
		return fmt.Errorf("update recurring: %w", err)
	}
	return requireAffected(res)
}

func (s *recurringStore) Toggle(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE recurring SET active = NOT active WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("toggle recurring: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return false, err
	}
	var active bool
	if err := s.db.QueryRowContext(ctx, "SELECT active FROM recurring WHERE id = ?", id).Scan(&active); err != nil {
		return false, mapNotFound(err)
	}
	return active, nil
}

func (s *recurringStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM recurring WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete recurring: %w", err)
	}
	return requireAffected(res)
}

type budgetStore Store

const budgetCols = "id, category, amount_cents, period, start_date, user_id"

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var b core.Budget
	var startDate string
	err := row.Scan(&b.ID, &b.Category, &b.Amount.Cents, &b.Period, &startDate, &b.UserID)
	if err != nil {
		return core.Budget{}, err
	}
	b.StartDate, err = core.ParseDate(startDate)
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func collectBudgets(rows *sql.Rows) ([]core.Budget, error) {
	defer rows.Close()
	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *budgetStore) All(ctx context.Context) ([]core.Budget, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+budgetCols+" FROM budgets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	return collectBudgets(rows)
}

func (s *budgetStore) ByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+budgetCols+" FROM budgets WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets by user: %w", err)
	}
	return collectBudgets(rows)
}

func (s *budgetStore) Append(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO budgets (category, amount_cents, period, start_date, user_id) VALUES (?, ?, ?, ?, ?)",
		b.Category, b.Amount.Cents, b.Period, b.StartDate.String(), b.UserID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	b.ID, err = res.LastInsertId()
	return b, err
}

func (s *budgetStore) FindByID(ctx context.Context, id int64) (core.Budget, error) {
	b, err := scanBudget(s.db.QueryRowContext(ctx, "SELECT "+budgetCols+" FROM budgets WHERE id = ?", id))
	if err != nil {
		return core.Budget{}, mapNotFound(err)
	}
	return b, nil
}

func (s *budgetStore) Update(ctx context.Context, b core.Budget) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE budgets SET category = ?, amount_cents = ?, period = ?, start_date = ?, user_id = ? WHERE id = ?",
		b.Category, b.Amount.Cents, b.Period, b.StartDate.String(), b.UserID, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return requireAffected(res)
}

func (s *budgetStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireAffected(res)
}

type splitStore Store

func collectSplits(rows *sql.Rows) ([]core.Split, error) {
	defer rows.Close()
	var out []core.Split
	for rows.Next() {
		var sp core.Split
		if err := rows.Scan(&sp.ID, &sp.ReceiptGroupID, &sp.UserID, &sp.Amount.Cents, &sp.Percentage); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *splitStore) All(ctx context.Context) ([]core.Split, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, receipt_group_id, user_id, amount_cents, percentage FROM splits ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query splits: %w", err)
	}
	return collectSplits(rows)
}

func (s *splitStore) ByReceiptGroup(ctx context.Context, receiptGroupID string) ([]core.Split, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, receipt_group_id, user_id, amount_cents, percentage FROM splits WHERE receipt_group_id = ? ORDER BY id",
		receiptGroupID)
	if err != nil {
		return nil, fmt.Errorf("query splits by receipt group: %w", err)
	}
	return collectSplits(rows)
}

func (s *splitStore) Append(ctx context.Context, sp core.Split) (core.Split, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO splits (receipt_group_id, user_id, amount_cents, percentage) VALUES (?, ?, ?, ?)",
		sp.ReceiptGroupID, sp.UserID, sp.Amount.Cents, sp.Percentage)
	if err != nil {
		return core.Split{}, fmt.Errorf("insert split: %w", err)
	}
	sp.ID, err = res.LastInsertId()
	return sp, err
}

type groupStore Store

func (s *groupStore) members(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id", groupID)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *groupStore) collect(ctx context.Context, rows *sql.Rows) ([]core.Group, error) {
	var out []core.Group
	for rows.Next() {
		var g core.Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	for i := range out {
		members, err := s.members(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Members = members
	}
	return out, nil
}

func (s *groupStore) All(ctx context.Context) ([]core.Group, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM groups ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	return s.collect(ctx, rows)
}

func (s *groupStore) ByMember(ctx context.Context, userID int64) ([]core.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ? ORDER BY g.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query groups by member: %w", err)
	}
	return s.collect(ctx, rows)
}

func (s *groupStore) Append(ctx context.Context, g core.Group) (core.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Group{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO groups (name) VALUES (?)", g.Name)
	if err != nil {
		return core.Group{}, fmt.Errorf("insert group: %w", err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return core.Group{}, err
	}
	for _, m := range g.Members {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)", g.ID, m); err != nil {
			return core.Group{}, fmt.Errorf("insert group member: %w", err)
		}
	}
	return g, tx.Commit()
}

func (s *groupStore) FindByID(ctx context.Context, id int64) (core.Group, error) {
	var g core.Group
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM groups WHERE id = ?", id).Scan(&g.ID, &g.Name)
	if err != nil {
		return core.Group{}, mapNotFound(err)
	}
	g.Members, err = s.members(ctx, id)
	return g, err
}

func (s *groupStore) Update(ctx context.Context, g core.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE groups SET name = ? WHERE id = ?", g.Name, g.ID)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", g.ID); err != nil {
		return fmt.Errorf("clear group members: %w", err)
	}
	for _, m := range g.Members {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)", g.ID, m); err != nil {
			return fmt.Errorf("insert group member: %w", err)
		}
	}
	return tx.Commit()
}

func (s *groupStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", id); err != nil {
		return fmt.Errorf("delete group members: %w", err)
	}
	return tx.Commit()
}

type accountStore Store

const accountCols = "id, name, type, user_id"

func collectAccounts(rows *sql.Rows) ([]core.Account, error) {
	defer rows.Close()
	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.UserID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *accountStore) All(ctx context.Context) ([]core.Account, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+accountCols+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	return collectAccounts(rows)
}

func (s *accountStore) ByUser(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+accountCols+" FROM accounts WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("query accounts by user: %w", err)
	}
	return collectAccounts(rows)
}

func (s *accountStore) Append(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (name, type, user_id) VALUES (?, ?, ?)", a.Name, a.Type, a.UserID)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return a, err
}

func (s *accountStore) FindByID(ctx context.Context, id int64) (core.Account, error) {
	var a core.Account
	err := s.db.QueryRowContext(ctx, "SELECT "+accountCols+" FROM accounts WHERE id = ?", id).
		Scan(&a.ID, &a.Name, &a.Type, &a.UserID)
	if err != nil {
		return core.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (s *accountStore) Update(ctx context.Context, a core.Account) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET name = ?, type = ?, user_id = ? WHERE id = ?", a.Name, a.Type, a.UserID, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireAffected(res)
}

func (s *accountStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireAffected(res)
}

type notificationStore Store

const notificationCols = "id, user_id, type, title, message, date, read, data"

func (s *notificationStore) ByUser(ctx context.Context, userID int64, unreadOnly bool) ([]core.Notification, error) {
	q := "SELECT " + notificationCols + " FROM notifications WHERE user_id = ?"
	if unreadOnly {
		q += " AND read = 0"
	}
	q += " ORDER BY id DESC"
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()
	var out []core.Notification
	for rows.Next() {
		var n core.Notification
		var date string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &date, &n.Read, &n.Data); err != nil {
			return nil, err
		}
		if n.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("parse notification date: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *notificationStore) Append(ctx context.Context, n core.Notification) (core.Notification, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, type, title, message, date, read, data) VALUES (?, ?, ?, ?, ?, ?, ?)",
		n.UserID, n.Type, n.Title, n.Message, n.Date.Format(time.RFC3339), n.Read, n.Data)
	if err != nil {
		return core.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	n.ID, err = res.LastInsertId()
	return n, err
}

func (s *notificationStore) MarkRead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(res)
}

func (s *notificationStore) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0", userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *notificationStore) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

type passwordResetStore Store

func (s *passwordResetStore) ByUser(ctx context.Context, userID int64) ([]core.PasswordReset, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, code, user_id, expires, used FROM reset_codes WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("query reset codes: %w", err)
	}
	defer rows.Close()
	var out []core.PasswordReset
	for rows.Next() {
		var r core.PasswordReset
		var expires string
		if err := rows.Scan(&r.ID, &r.Code, &r.UserID, &expires, &r.Used); err != nil {
			return nil, err
		}
		if r.Expires, err = time.Parse(time.RFC3339, expires); err != nil {
			return nil, fmt.Errorf("parse reset code expiry: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *passwordResetStore) Append(ctx context.Context, r core.PasswordReset) (core.PasswordReset, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO reset_codes (code, user_id, expires, used) VALUES (?, ?, ?, ?)",
		r.Code, r.UserID, r.Expires.Format(time.RFC3339), r.Used)
	if err != nil {
		return core.PasswordReset{}, fmt.Errorf("insert reset code: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return r, err
}

func (s *passwordResetStore) Update(ctx context.Context, r core.PasswordReset) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE reset_codes SET code = ?, user_id = ?, expires = ?, used = ? WHERE id = ?",
		r.Code, r.UserID, r.Expires.Format(time.RFC3339), r.Used, r.ID)
	if err != nil {
		return fmt.Errorf("update reset code: %w", err)
	}
	return requireAffected(res)
}

type userStore Store

const userCols = "id, username, full_name, email, password_hash, is_admin, active"

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.PasswordHash, &u.Admin, &u.Active)
	return u, err
}

func (s *userStore) All(ctx context.Context) ([]core.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userCols+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()
	var out []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *userStore) FindByID(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE id = ?", id))
	if err != nil {
		return core.User{}, mapNotFound(err)
	}
	return u, nil
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE username = ?", username))
	if err != nil {
		return core.User{}, mapNotFound(err)
	}
	return u, nil
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE email = ?", email))
	if err != nil {
		return core.User{}, mapNotFound(err)
	}
	return u, nil
}

func (s *userStore) Append(ctx context.Context, u core.User) (core.User, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, full_name, email, password_hash, is_admin, active) VALUES (?, ?, ?, ?, ?, ?)",
		u.Username, u.FullName, u.Email, u.PasswordHash, u.Admin, u.Active)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return u, err
}

func (s *userStore) Update(ctx context.Context, u core.User) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET username = ?, full_name = ?, email = ?, password_hash = ?, is_admin = ?, active = ? WHERE id = ?",
		u.Username, u.FullName, u.Email, u.PasswordHash, u.Admin, u.Active, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(res)
}

func (s *userStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res)
}
