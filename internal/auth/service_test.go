package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/store/memory"
)

func newService() *Service {
	st := memory.New()
	return NewService(st.Users(), st.PasswordResets(), NewJWTManager("test-secret", time.Hour))
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	user, err := svc.Register(ctx, "alice", "Alice", "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !user.Admin {
		t.Error("first registered user should be admin")
	}
	if user.PasswordHash == "correct horse" {
		t.Error("password stored in the clear")
	}

	got, token, err := svc.Login(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("login returned user %d, want %d", got.ID, user.ID)
	}
	if token == "" {
		t.Error("login returned empty token")
	}

	resolved, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if resolved.Username != "alice" {
		t.Errorf("token resolved to %q, want alice", resolved.Username)
	}
}

func TestRegisterConflicts(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	if _, err := svc.Register(ctx, "alice", "Alice", "alice@example.com", "correct horse"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name     string
		username string
		email    string
		wantErr  error
	}{
		{"duplicate username", "alice", "other@example.com", ErrUsernameTaken},
		{"duplicate email", "bob", "alice@example.com", ErrEmailTaken},
		{"duplicate email case-insensitive", "carol", "ALICE@example.com", ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, "", tt.email, "correct horse")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	_, err := newService().Register(context.Background(), "alice", "", "alice@example.com", "short")
	if !errors.Is(err, ErrWeakPassword) {
		t.Errorf("err = %v, want ErrWeakPassword", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	if _, err := svc.Register(ctx, "alice", "", "alice@example.com", "correct horse"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	user, err := svc.Register(ctx, "alice", "", "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password err = %v, want ErrWeakPassword", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "battery staple"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still accepted, err = %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "battery staple"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	if _, err := svc.Register(ctx, "alice", "", "alice@example.com", "correct horse"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, code, err := svc.CreateResetCode(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateResetCode: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("code %q, want 6 digits", code)
	}

	if err := svc.ResetPassword(ctx, "alice", "000000", "battery staple"); !errors.Is(err, ErrInvalidResetCode) {
		if code == "000000" {
			t.Skip("generated code collided with the stand-in wrong code")
		}
		t.Errorf("wrong code err = %v, want ErrInvalidResetCode", err)
	}

	if err := svc.ResetPassword(ctx, "alice", code, "battery staple"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "battery staple"); err != nil {
		t.Errorf("reset password rejected: %v", err)
	}

	// Codes are single use.
	if err := svc.ResetPassword(ctx, "alice", code, "yet another pass"); !errors.Is(err, ErrInvalidResetCode) {
		t.Errorf("spent code err = %v, want ErrInvalidResetCode", err)
	}
}

func TestResetCodeExpired(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewService(st.Users(), st.PasswordResets(), NewJWTManager("test-secret", time.Hour))

	user, err := svc.Register(ctx, "alice", "", "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := st.PasswordResets().Append(ctx, core.PasswordReset{
		UserID:  user.ID,
		Code:    "123456",
		Expires: time.Now().UTC().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("seed reset code: %v", err)
	}

	if err := svc.ResetPassword(ctx, "alice", "123456", "battery staple"); !errors.Is(err, ErrInvalidResetCode) {
		t.Errorf("expired code err = %v, want ErrInvalidResetCode", err)
	}
}

func TestResetCodeUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	if _, _, err := svc.CreateResetCode(ctx, "nobody"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("CreateResetCode err = %v, want ErrNotFound", err)
	}
	if err := svc.ResetPassword(ctx, "nobody", "123456", "battery staple"); !errors.Is(err, ErrInvalidResetCode) {
		t.Errorf("ResetPassword err = %v, want ErrInvalidResetCode", err)
	}
}

func TestAuthenticateBadToken(t *testing.T) {
	svc := newService()
	if _, err := svc.Authenticate(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)
	token, err := m.Generate(1, "alice", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := m.Validate(token); err == nil {
		t.Error("expected expired token to fail validation")
	}
}
