package csv

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
)

// Serialization boundary: booleans become "true"/"false" strings and
// money becomes a plain decimal only here. The rest of the system works
// with real types.

func parseID(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id %q: %w", s, err)
	}
	return v, nil
}

// parseOptID tolerates an empty cell (optional foreign key).
func parseOptID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return parseID(s)
}

func formatOptID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func parseFlag(s string) bool {
	return strings.TrimSpace(s) == "true"
}

func formatFlag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func transactionCodec() codec[core.Transaction] {
	return codec[core.Transaction]{
		headers: []string{"id", "item_name", "category", "store", "date", "price",
			"user_id", "bank_account_id", "type", "receipt_image", "group_id", "receipt_group_id"},
		encode: func(t core.Transaction) []string {
			return []string{
				strconv.FormatInt(t.ID, 10),
				t.ItemName,
				t.Category,
				t.Store,
				t.Date.String(),
				t.Price.String(),
				strconv.FormatInt(t.UserID, 10),
				formatOptID(t.BankAccountID),
				string(t.Kind),
				t.ReceiptImage,
				formatOptID(t.GroupID),
				t.ReceiptGroupID,
			}
		},
		decode: func(rec []string) (core.Transaction, error) {
			if len(rec) < 12 {
				return core.Transaction{}, fmt.Errorf("short record: %d fields", len(rec))
			}
			id, err := parseID(rec[0])
			if err != nil {
				return core.Transaction{}, err
			}
			date, err := core.ParseDate(rec[4])
			if err != nil {
				return core.Transaction{}, err
			}
			price, err := core.ParseMoney(rec[5])
			if err != nil {
				return core.Transaction{}, fmt.Errorf("price: %w", err)
			}
			userID, err := parseOptID(rec[6])
			if err != nil {
				return core.Transaction{}, err
			}
			accountID, err := parseOptID(rec[7])
			if err != nil {
				return core.Transaction{}, err
			}
			groupID, err := parseOptID(rec[10])
			if err != nil {
				return core.Transaction{}, err
			}
			kind := core.Kind(rec[8])
			if kind == "" {
				kind = core.Expense
			}
			return core.Transaction{
				ID:             id,
				ItemName:       rec[1],
				Category:       rec[2],
				Store:          rec[3],
				Date:           date,
				Price:          price,
				UserID:         userID,
				BankAccountID:  accountID,
				Kind:           kind,
				ReceiptImage:   rec[9],
				GroupID:        groupID,
				ReceiptGroupID: rec[11],
			}, nil
		},
		id:    func(t core.Transaction) int64 { return t.ID },
		setID: func(t *core.Transaction, id int64) { t.ID = id },
	}
}

func recurringCodec() codec[core.Recurring] {
	return codec[core.Recurring]{
		headers: []string{"id", "item_name", "category", "store", "price",
			"user_id", "bank_account_id", "type", "frequency", "next_date", "active", "group_id"},
		encode: func(r core.Recurring) []string {
			return []string{
				strconv.FormatInt(r.ID, 10),
				r.ItemName,
				r.Category,
				r.Store,
				r.Price.String(),
				strconv.FormatInt(r.UserID, 10),
				formatOptID(r.BankAccountID),
				string(r.Kind),
				string(r.Frequency),
				r.NextDue.String(),
				formatFlag(r.Active),
				formatOptID(r.GroupID),
			}
		},
		decode: func(rec []string) (core.Recurring, error) {
			if len(rec) < 12 {
				return core.Recurring{}, fmt.Errorf("short record: %d fields", len(rec))
			}
			id, err := parseID(rec[0])
			if err != nil {
				return core.Recurring{}, err
			}
			price, err := core.ParseMoney(rec[4])
			if err != nil {
				return core.Recurring{}, fmt.Errorf("price: %w", err)
			}
			userID, err := parseOptID(rec[5])
			if err != nil {
				return core.Recurring{}, err
			}
			accountID, err := parseOptID(rec[6])
			if err != nil {
				return core.Recurring{}, err
			}
			nextDue, err := core.ParseDate(rec[9])
			if err != nil {
				return core.Recurring{}, err
			}
			groupID, err := parseOptID(rec[11])
			if err != nil {
				return core.Recurring{}, err
			}
			return core.Recurring{
				ID:            id,
				ItemName:      rec[1],
				Category:      rec[2],
				Store:         rec[3],
				Price:         price,
				UserID:        userID,
				BankAccountID: accountID,
				Kind:          core.Kind(rec[7]),
				Frequency:     core.Frequency(rec[8]),
				NextDue:       nextDue,
				Active:        parseFlag(rec[10]),
				GroupID:       groupID,
			}, nil
		},
		id:    func(r core.Recurring) int64 { return r.ID },
		setID: func(r *core.Recurring, id int64) { r.ID = id },
	}
}

func budgetCodec() codec[core.Budget] {
	return codec[core.Budget]{
		headers: []string{"id", "category", "amount", "period", "start_date", "user_id"},
		encode: func(b core.Budget) []string {
			return []string{
				strconv.FormatInt(b.ID, 10),
				b.Category,
				b.Amount.String(),
				b.Period,
				b.StartDate.String(),
				strconv.FormatInt(b.UserID, 10),
			}
		},
		decode: func(rec []string) (core.Budget, error) {
			if len(rec) < 6 {
				return core.Budget{}, fmt.Errorf("short record: %d fields", len(rec))
			}
			id, err := parseID(rec[0])
			if err != nil {
				return core.Budget{}, err
			}
			amount, err := core.ParseMoney(rec[2])
			if err != nil {
				return core.Budget{}, fmt.Errorf("amount: %w", err)
			}
			startDate, err := core.ParseDate(rec[4])
			if err != nil {
				return core.Budget{}, err
			}
			userID, err := parseOptID(rec[5])
			if err != nil {
				return core.Budget{}, err
			}
			return core.Budget{
				ID:        id,
				Category:  rec[1],
				Amount:    amount,
				Period:    rec[3],
				StartDate: startDate,
				UserID:    userID,
			}, nil
		},
		id:    func(b core.Budget) int64 { return b.ID },
		setID: func(b *core.Budget, id int64) { b.ID = id },
	}
}

func splitCodec() codec[core.Split] {
	return codec[core.Split]{
		headers: []string{"id", "receipt_group_id", "user_id", "amount", "percentage"},
		encode: func(s core.Split) []string {
			return []string{
				strconv.FormatInt(s.ID, 10),
				s.ReceiptGroupID,
				strconv.FormatInt(s.UserID, 10),
				s.Amount.String(),
				strconv.FormatFloat(s.Percentage, 'f', 2, 64),
			}
		},
		decode: func(rec []string) (core.Split, error) {
			if len(rec) < 5 {
				return core.Split{}, fmt.Errorf("short record: %d fields", len(rec))
			}
			id, err := parseID(rec[0])
			if err != nil {
				return core.Split{}, err
			}
			userID, err := parseOptID(rec[2])
			if err != nil {
				return core.Split{}, err
			}
			amount, err := core.ParseMoney(rec[3])
			if err != nil {
				return core.Split{}, fmt.Errorf("amount: %w", err)
			}
			pct, err := strconv.ParseFloat(strings.TrimSpace(rec[4]), 64)
			if err != nil {
				pct = 0
			}
			return core.Split{
				ID:             id,
				ReceiptGroupID: rec[1],
				UserID:         userID,
				Amount:         amount,
				Percentage:     pct,
			}, nil
		},
		id:    func(s core.Split) int64 { return s.ID },
		setID: func(s *core.Split, id int64) { s.ID = id },
	}
}

func groupCodec() codec[core.Group] {
	return codec[core.Group]{
		headers: []string{"id", "name", "members"},
		encode: func(g core.Group) []string {
			members := make([]string, len(g.Members))
			for i, m := range g.Members {
				members[i] = strconv.FormatInt(m, 10)
			}
			return []string{
				strconv.FormatInt(g.ID, 10),
				g.Name,
				strings.Join(members, ","),
			}
		},
		decode: func(rec []string) (core.Group, error) {
			if len(rec) < 3 {
				return core.Group{}, fmt.Errorf("short record: %d fields", len(rec))
			}
			id, err := parseID(rec[0])
			if err != nil {
				return core.Group{}, err
			}
			var members []int64
			for _, part := range strings.Split(rec[2], ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				m, err := strconv.ParseInt(part, 10, 64)
				if err != nil {
					return core.Group{}, fmt.Errorf("parse member %q: %w", part, err)
				}
				members = append(members, m)
			}
			return core.Group{ID: id, Name: rec[1], Members: members}, nil
		},
		id:    func(g core.Group) int64 { return g.ID },
		setID: func(g *core.Group, id int64) { g.ID = id },
	}
}

func accountCodec() codec[core.Account] {
	return codec[core.Account]{
		headers: []string{"id", "name", "type", "user_id"},
		encode: func(a core.Account) []string {
			return []string{
				strconv.FormatInt(a.ID, 10),
				a.Name,
				a.Type,
				strconv.FormatInt(a.UserID, 10),
			}
		},
		decode: func(rec []string) (core.Account, error) {
			if len(rec) < 4 {
				return core.Account{}, fmt.Errorf("short record: %d fields", len(rec))
			}
			id, err := parseID(rec[0])
			if err != nil {
				return core.Account{}, err
			}
			userID, err := parseOptID(rec[3])
			if err != nil {
				return core.Account{}, err
			}
			return core.Account{ID: id, Name: rec[1], Type: rec[2], UserID: userID}, nil
		},
		id:    func(a core.Account) int64 { return a.ID },
		setID: func(a *core.Account, id int64) { a.ID = id },
	}
}

func notificationCodec() codec[core.Notification] {
	return codec[core.Notification]{
		headers: []string{"id", "user_id", "type", "title", "message", "date", "read", "data"},
		encode: func(n core.Notification) []string {
			return []string{
				strconv.FormatInt(n.ID, 10),
				strconv.FormatInt(n.UserID, 10),
				n.Type,
				n.Title,
				n.Message,
				n.Date.Format(time.RFC3339),
				formatFlag(n.Read),
				n.Data,
			}
		},
		decode: func(rec []string) (core.Notification, error) {
			if len(rec) < 8 {
				return core.Notification{}, fmt.Errorf("short record: %d fields", len(rec))
			}
			id, err := parseID(rec[0])
			if err != nil {
				return core.Notification{}, err
			}
			userID, err := parseOptID(rec[1])
			if err != nil {
				return core.Notification{}, err
			}
			date, err := time.Parse(time.RFC3339, rec[5])
			if err != nil {
				return core.Notification{}, fmt.Errorf("date: %w", err)
			}
			return core.Notification{
				ID:      id,
				UserID:  userID,
				Type:    rec[2],
				Title:   rec[3],
				Message: rec[4],
				Date:    date,
				Read:    parseFlag(rec[6]),
				Data:    rec[7],
			}, nil
		},
		id:    func(n core.Notification) int64 { return n.ID },
		setID: func(n *core.Notification, id int64) { n.ID = id },
	}
}

func passwordResetCodec() codec[core.PasswordReset] {
	return codec[core.PasswordReset]{
		headers: []string{"id", "code", "user_id", "expires", "used"},
		encode: func(r core.PasswordReset) []string {
			return []string{
				strconv.FormatInt(r.ID, 10),
				r.Code,
				strconv.FormatInt(r.UserID, 10),
				r.Expires.Format(time.RFC3339),
				formatFlag(r.Used),
			}
		},
		decode: func(rec []string) (core.PasswordReset, error) {
			if len(rec) < 5 {
				return core.PasswordReset{}, fmt.Errorf("short record: %d fields", len(rec))
			}
			id, err := parseID(rec[0])
			if err != nil {
				return core.PasswordReset{}, err
			}
			userID, err := parseOptID(rec[2])
			if err != nil {
				return core.PasswordReset{}, err
			}
			expires, err := time.Parse(time.RFC3339, rec[3])
			if err != nil {
				return core.PasswordReset{}, fmt.Errorf("expires: %w", err)
			}
			return core.PasswordReset{
				ID:      id,
				Code:    rec[1],
				UserID:  userID,
				Expires: expires,
				Used:    parseFlag(rec[4]),
			}, nil
		},
		id:    func(r core.PasswordReset) int64 { return r.ID },
		setID: func(r *core.PasswordReset, id int64) { r.ID = id },
	}
}

func userCodec() codec[core.User] {
	return codec[core.User]{
		headers: []string{"id", "username", "full_name", "email", "password_hash", "is_admin", "active"},
		encode: func(u core.User) []string {
			return []string{
				strconv.FormatInt(u.ID, 10),
				u.Username,
				u.FullName,
				u.Email,
				u.PasswordHash,
				formatFlag(u.Admin),
				formatFlag(u.Active),
			}
		},
		decode: func(rec []string) (core.User, error) {
			if len(rec) < 7 {
				return core.User{}, fmt.Errorf("short record: %d fields", len(rec))
			}
			id, err := parseID(rec[0])
			if err != nil {
				return core.User{}, err
			}
			return core.User{
				ID:           id,
				Username:     rec[1],
				FullName:     rec[2],
				Email:        rec[3],
				PasswordHash: rec[4],
				Admin:        parseFlag(rec[5]),
				Active:       parseFlag(rec[6]),
			}, nil
		},
		id:    func(u core.User) int64 { return u.ID },
		setID: func(u *core.User, id int64) { u.ID = id },
	}
}
