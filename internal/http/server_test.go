package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/metrics"
	"tally/internal/ocr"
	"tally/internal/services"
	"tally/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	stores := memory.New()
	jwtManager := auth.NewJWTManager("test-secret-key-0123456789", time.Hour)
	authService := auth.NewService(stores.Users(), stores.PasswordResets(), jwtManager)
	notify := services.NewNotificationService(stores, nil)

	srv := NewServer(":0", Options{
		Stores:        stores,
		Auth:          authService,
		Transactions:  services.NewTransactionService(stores, notify),
		Analytics:     services.NewAnalyticsService(stores),
		Notifications: notify,
		Processor:     services.NewProcessor(stores, notify),
		Analyzer:      ocr.MockAnalyzer{},
		Metrics:       metrics.New(),
		UploadDir:     t.TempDir(),
		MaxUploadSize: 1 << 20,
	})

	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(ts.Close)

	return srv, ts
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func register(t *testing.T, base, username string) sessionResponse {
	t.Helper()

	resp := doJSON(t, http.MethodPost, base+"/api/register", "", registerRequest{
		Username: username,
		FullName: "Test User",
		Email:    username + "@example.com",
		Password: "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	login := doJSON(t, http.MethodPost, base+"/api/login", "", loginRequest{
		Username: username,
		Password: "password123",
	})
	if login.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", login.StatusCode)
	}
	return decodeBody[sessionResponse](t, login)
}

func TestHealthAndReady(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestAuthFlow(t *testing.T) {
	_, ts := newTestServer(t)

	session := register(t, ts.URL, "alice")
	if session.Token == "" {
		t.Fatal("expected a session token")
	}
	if !session.User.Admin {
		t.Error("first registered user should be admin")
	}

	me := doJSON(t, http.MethodGet, ts.URL+"/api/me", session.Token, nil)
	user := decodeBody[core.User](t, me)
	if user.Username != "alice" {
		t.Errorf("me username = %q, want alice", user.Username)
	}

	// Duplicate username conflicts.
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/register", "", registerRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "password123",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	// Bad credentials.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/login", "", loginRequest{
		Username: "alice",
		Password: "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRequireAuth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/transactions")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/transactions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateAndListTransactions(t *testing.T) {
	_, ts := newTestServer(t)
	session := register(t, ts.URL, "alice")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", session.Token, createTransactionsRequest{
		Items: []services.ReceiptItem{
			{Name: "Milk", Category: "Groceries", Price: core.FromDollars(2.50)},
			{Name: "Bread", Category: "Groceries", Price: core.FromDollars(1.80)},
		},
		Store: "Corner Shop",
		Date:  core.NewDate(2026, 8, 15),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	saved := decodeBody[[]core.Transaction](t, resp)
	if len(saved) != 2 {
		t.Fatalf("saved %d transactions, want 2", len(saved))
	}
	if saved[0].ReceiptGroupID == "" || saved[0].ReceiptGroupID != saved[1].ReceiptGroupID {
		t.Error("items of one save should share a receipt group id")
	}

	list := doJSON(t, http.MethodGet, ts.URL+"/api/transactions", session.Token, nil)
	txs := decodeBody[[]attributedTransaction](t, list)
	if len(txs) != 2 {
		t.Fatalf("listed %d transactions, want 2", len(txs))
	}
	for _, tx := range txs {
		if tx.AttributedAmount != tx.Price {
			t.Errorf("unsplit transaction attribution = %v, want full price %v", tx.AttributedAmount, tx.Price)
		}
	}

	filtered := doJSON(t, http.MethodGet, ts.URL+"/api/transactions?month=2026-07", session.Token, nil)
	if got := decodeBody[[]attributedTransaction](t, filtered); len(got) != 0 {
		t.Errorf("month filter returned %d transactions, want 0", len(got))
	}
}

func TestSplitTransactionsExcludeNonParticipants(t *testing.T) {
	_, ts := newTestServer(t)
	alice := register(t, ts.URL, "alice")
	bob := register(t, ts.URL, "bob")

	group := decodeBody[core.Group](t, doJSON(t, http.MethodPost, ts.URL+"/api/groups", alice.Token, groupRequest{
		Name:    "Flat",
		Members: []int64{alice.User.ID, bob.User.ID},
	}))

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", alice.Token, createTransactionsRequest{
		Items:   []services.ReceiptItem{{Name: "Rent", Category: "Rent", Price: core.FromDollars(100)}},
		Store:   "Landlord",
		Date:    core.NewDate(2026, 8, 1),
		GroupID: group.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	// Both members see an equal share.
	for _, session := range []sessionResponse{alice, bob} {
		txs := decodeBody[[]attributedTransaction](t, doJSON(t, http.MethodGet, ts.URL+"/api/transactions", session.Token, nil))
		if len(txs) != 1 {
			t.Fatalf("user %s sees %d transactions, want 1", session.User.Username, len(txs))
		}
		if want := core.FromDollars(50); txs[0].AttributedAmount != want {
			t.Errorf("user %s attribution = %v, want %v", session.User.Username, txs[0].AttributedAmount, want)
		}
	}

	// A non-member sees nothing.
	carol := register(t, ts.URL, "carol")
	txs := decodeBody[[]attributedTransaction](t, doJSON(t, http.MethodGet, ts.URL+"/api/transactions", carol.Token, nil))
	if len(txs) != 0 {
		t.Errorf("non-participant sees %d transactions, want 0", len(txs))
	}
}

func TestGroupCreatorAlwaysMember(t *testing.T) {
	_, ts := newTestServer(t)
	session := register(t, ts.URL, "alice")

	group := decodeBody[core.Group](t, doJSON(t, http.MethodPost, ts.URL+"/api/groups", session.Token, groupRequest{
		Name:    "Trip",
		Members: []int64{42},
	}))

	if !group.HasMember(session.User.ID) {
		t.Errorf("creator %d missing from members %v", session.User.ID, group.Members)
	}
}

func TestBudgetCRUD(t *testing.T) {
	_, ts := newTestServer(t)
	session := register(t, ts.URL, "alice")

	created := decodeBody[core.Budget](t, doJSON(t, http.MethodPost, ts.URL+"/api/budgets", session.Token, budgetRequest{
		Category: "Groceries",
		Amount:   core.FromDollars(400),
	}))
	if created.ID == 0 {
		t.Fatal("expected assigned budget id")
	}
	if created.Period != core.PeriodMonthly {
		t.Errorf("default period = %q, want monthly", created.Period)
	}

	updated := decodeBody[core.Budget](t, doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/budgets/%d", ts.URL, created.ID), session.Token, budgetRequest{
		Category: "Groceries",
		Amount:   core.FromDollars(500),
	}))
	if updated.Amount != core.FromDollars(500) {
		t.Errorf("updated amount = %v, want 500.00", updated.Amount)
	}

	del := doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/budgets/%d", ts.URL, created.ID), session.Token, nil)
	if del.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", del.StatusCode)
	}
	del.Body.Close()

	budgets := decodeBody[[]core.Budget](t, doJSON(t, http.MethodGet, ts.URL+"/api/budgets", session.Token, nil))
	if len(budgets) != 0 {
		t.Errorf("after delete %d budgets remain, want 0", len(budgets))
	}
}

func TestDashboardCacheInvalidatedByWrites(t *testing.T) {
	srv, ts := newTestServer(t)
	session := register(t, ts.URL, "alice")

	first := decodeBody[core.Dashboard](t, doJSON(t, http.MethodGet, ts.URL+"/api/dashboard", session.Token, nil))
	if !first.TotalExpenses.IsZero() {
		t.Fatalf("fresh dashboard expenses = %v, want 0", first.TotalExpenses)
	}
	if srv.dashCache.Size() != 1 {
		t.Fatalf("cache size = %d, want 1", srv.dashCache.Size())
	}

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", session.Token, createTransactionsRequest{
		Items: []services.ReceiptItem{{Name: "Coffee", Category: "Eating Out", Price: core.FromDollars(3)}},
		Date:  core.DateOf(time.Now()),
	})
	resp.Body.Close()

	if srv.dashCache.Size() != 0 {
		t.Errorf("cache size after write = %d, want 0", srv.dashCache.Size())
	}

	second := decodeBody[core.Dashboard](t, doJSON(t, http.MethodGet, ts.URL+"/api/dashboard", session.Token, nil))
	if want := core.FromDollars(3); second.TotalExpenses != want {
		t.Errorf("dashboard expenses = %v, want %v", second.TotalExpenses, want)
	}
}

func TestRecurringToggleAndProcess(t *testing.T) {
	_, ts := newTestServer(t)
	session := register(t, ts.URL, "alice")

	yesterday := core.DateOf(time.Now().AddDate(0, 0, -1))
	created := decodeBody[core.Recurring](t, doJSON(t, http.MethodPost, ts.URL+"/api/recurring", session.Token, recurringRequest{
		ItemName:  "Gym",
		Category:  "Subscriptions",
		Price:     core.FromDollars(30),
		Frequency: core.Monthly,
		NextDue:   yesterday,
	}))

	processed := decodeBody[map[string]int](t, doJSON(t, http.MethodPost, ts.URL+"/api/recurring/process", session.Token, nil))
	if processed["created"] != 1 {
		t.Errorf("processed created = %d, want 1", processed["created"])
	}

	toggled := decodeBody[map[string]bool](t, doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/recurring/%d/toggle", ts.URL, created.ID), session.Token, nil))
	if toggled["active"] {
		t.Error("toggle should deactivate an active definition")
	}
}

func TestNotificationsMarkAllRead(t *testing.T) {
	srv, ts := newTestServer(t)
	session := register(t, ts.URL, "alice")

	for i := 0; i < 3; i++ {
		_, err := srv.stores.Notifications().Append(context.Background(), core.Notification{
			UserID:  session.User.ID,
			Type:    "budget_alert",
			Title:   "Budget warning",
			Message: "Groceries at 80%",
			Date:    time.Now(),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	count := decodeBody[map[string]int](t, doJSON(t, http.MethodGet, ts.URL+"/api/notifications/unread-count", session.Token, nil))
	if count["unread"] != 3 {
		t.Fatalf("unread = %d, want 3", count["unread"])
	}

	marked := decodeBody[map[string]int](t, doJSON(t, http.MethodPost, ts.URL+"/api/notifications/read-all", session.Token, nil))
	if marked["marked"] != 3 {
		t.Errorf("marked = %d, want 3", marked["marked"])
	}

	count = decodeBody[map[string]int](t, doJSON(t, http.MethodGet, ts.URL+"/api/notifications/unread-count", session.Token, nil))
	if count["unread"] != 0 {
		t.Errorf("unread after mark-all = %d, want 0", count["unread"])
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	session := register(t, ts.URL, "alice")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/me/password", "", changePasswordRequest{Password: "battery staple"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated change status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/me/password", session.Token, changePasswordRequest{Password: "short"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("weak password status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/me/password", session.Token, changePasswordRequest{Password: "battery staple"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change password status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	old := doJSON(t, http.MethodPost, ts.URL+"/api/login", "", loginRequest{Username: "alice", Password: "password123"})
	if old.StatusCode != http.StatusUnauthorized {
		t.Errorf("old password login status = %d, want 401", old.StatusCode)
	}
	old.Body.Close()

	fresh := doJSON(t, http.MethodPost, ts.URL+"/api/login", "", loginRequest{Username: "alice", Password: "battery staple"})
	if fresh.StatusCode != http.StatusOK {
		t.Errorf("new password login status = %d, want 200", fresh.StatusCode)
	}
	fresh.Body.Close()
}

func TestPasswordResetViaAPI(t *testing.T) {
	srv, ts := newTestServer(t)
	session := register(t, ts.URL, "alice")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/forgot-password", "", forgotPasswordRequest{Username: "alice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("forgot-password status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown usernames get the same answer, so accounts cannot be enumerated.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/forgot-password", "", forgotPasswordRequest{Username: "nobody"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unknown username status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	codes, err := srv.stores.PasswordResets().ByUser(context.Background(), session.User.ID)
	if err != nil || len(codes) != 1 {
		t.Fatalf("stored codes = %d (err %v), want 1", len(codes), err)
	}

	notes, err := srv.stores.Notifications().ByUser(context.Background(), session.User.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, n := range notes {
		if n.Type == services.NotificationPasswordReset {
			found = true
		}
	}
	if !found {
		t.Error("no password_reset notification recorded for the email path")
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/reset-password", "", resetPasswordRequest{
		Username: "alice",
		Code:     codes[0].Code,
		Password: "battery staple",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset-password status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	old := doJSON(t, http.MethodPost, ts.URL+"/api/login", "", loginRequest{Username: "alice", Password: "password123"})
	if old.StatusCode != http.StatusUnauthorized {
		t.Errorf("old password login status = %d, want 401", old.StatusCode)
	}
	old.Body.Close()

	fresh := doJSON(t, http.MethodPost, ts.URL+"/api/login", "", loginRequest{Username: "alice", Password: "battery staple"})
	if fresh.StatusCode != http.StatusOK {
		t.Errorf("new password login status = %d, want 200", fresh.StatusCode)
	}
	fresh.Body.Close()
}

func TestServeUploadedReceipt(t *testing.T) {
	_, ts := newTestServer(t)
	session := register(t, ts.URL, "alice")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("receipt", "grocery.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("jpeg bytes")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/receipts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d, want 200", resp.StatusCode)
	}
	upload := decodeBody[struct {
		ReceiptImage string `json:"receipt_image"`
	}](t, resp)
	if upload.ReceiptImage == "" {
		t.Fatal("upload returned no stored filename")
	}

	got := doJSON(t, http.MethodGet, ts.URL+"/api/receipts/"+upload.ReceiptImage, session.Token, nil)
	if got.StatusCode != http.StatusOK {
		t.Fatalf("serve status = %d, want 200", got.StatusCode)
	}
	body, err := io.ReadAll(got.Body)
	got.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "jpeg bytes" {
		t.Errorf("served body = %q, want the uploaded bytes", body)
	}

	anon, err := http.Get(ts.URL + "/api/receipts/" + upload.ReceiptImage)
	if err != nil {
		t.Fatal(err)
	}
	if anon.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated serve status = %d, want 401", anon.StatusCode)
	}
	anon.Body.Close()

	bad := doJSON(t, http.MethodGet, ts.URL+"/api/receipts/secrets.txt", session.Token, nil)
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("bad extension status = %d, want 400", bad.StatusCode)
	}
	bad.Body.Close()

	missing := doJSON(t, http.MethodGet, ts.URL+"/api/receipts/"+"0000.jpg", session.Token, nil)
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing file status = %d, want 404", missing.StatusCode)
	}
	missing.Body.Close()
}

func TestAdminOnlyUserList(t *testing.T) {
	_, ts := newTestServer(t)
	admin := register(t, ts.URL, "alice")
	other := register(t, ts.URL, "bob")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/users", other.Token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	users := decodeBody[[]core.User](t, doJSON(t, http.MethodGet, ts.URL+"/api/users", admin.Token, nil))
	if len(users) != 2 {
		t.Errorf("admin sees %d users, want 2", len(users))
	}
}
