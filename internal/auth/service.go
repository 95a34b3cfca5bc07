package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/store"
)

// Service registers and authenticates accounts against the user store.
type Service struct {
	users  store.UserStore
	resets store.PasswordResetStore
	jwt    *JWTManager
}

func NewService(users store.UserStore, resets store.PasswordResetStore, jwt *JWTManager) *Service {
	return &Service{users: users, resets: resets, jwt: jwt}
}

// Register creates an account. Username and email collisions are
// rejected with distinct conflict errors; the first registered account
// becomes an admin.
func (s *Service) Register(ctx context.Context, username, fullName, email, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" {
		return core.User{}, ErrInvalidCredentials
	}
	if err := ValidatePassword(password); err != nil {
		return core.User{}, err
	}

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return core.User{}, ErrUsernameTaken
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("check username: %w", err)
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return core.User{}, ErrEmailTaken
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.users.All(ctx)
	if err != nil {
		return core.User{}, fmt.Errorf("list users: %w", err)
	}

	user, err := s.users.Append(ctx, core.User{
		Username:     username,
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Admin:        len(existing) == 0,
		Active:       true,
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered",
		"user_id", user.ID,
		"username", user.Username,
		"is_admin", user.Admin)
	return user, nil
}

// Login verifies the credentials and returns the user plus a signed
// session token.
func (s *Service) Login(ctx context.Context, username, password string) (core.User, string, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, "", ErrInvalidCredentials
		}
		return core.User{}, "", fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return core.User{}, "", ErrInvalidCredentials
	}
	if !user.Active {
		return core.User{}, "", ErrAccountDisabled
	}

	token, err := s.jwt.Generate(user.ID, user.Username, user.Admin)
	if err != nil {
		return core.User{}, "", err
	}
	return user, token, nil
}

// resetCodeTTL bounds how long an emailed reset code stays redeemable.
const resetCodeTTL = 15 * time.Minute

// ChangePassword sets a new password for an authenticated user.
func (s *Service) ChangePassword(ctx context.Context, userID int64, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	slog.InfoContext(ctx, "Password changed", "user_id", userID)
	return nil
}

// CreateResetCode issues a single-use code for the named account. The
// caller delivers the code to the user out of band; it expires after
// resetCodeTTL.
func (s *Service) CreateResetCode(ctx context.Context, username string) (core.User, string, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, "", core.ErrNotFound
		}
		return core.User{}, "", fmt.Errorf("find user: %w", err)
	}

	code, err := generateResetCode()
	if err != nil {
		return core.User{}, "", fmt.Errorf("generate reset code: %w", err)
	}
	if _, err := s.resets.Append(ctx, core.PasswordReset{
		UserID:  user.ID,
		Code:    code,
		Expires: time.Now().UTC().Add(resetCodeTTL),
	}); err != nil {
		return core.User{}, "", fmt.Errorf("save reset code: %w", err)
	}

	slog.InfoContext(ctx, "Password reset code issued", "user_id", user.ID)
	return user, code, nil
}

// ResetPassword redeems a code and sets the new password. The code is
// burned on success; an unknown username, a wrong, spent or expired
// code all report the same error.
func (s *Service) ResetPassword(ctx context.Context, username, code, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidResetCode
		}
		return fmt.Errorf("find user: %w", err)
	}

	codes, err := s.resets.ByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load reset codes: %w", err)
	}
	now := time.Now().UTC()
	for _, c := range codes {
		if c.Used || c.Code != code || now.After(c.Expires) {
			continue
		}
		c.Used = true
		if err := s.resets.Update(ctx, c); err != nil {
			return fmt.Errorf("burn reset code: %w", err)
		}
		hash, err := HashPassword(newPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		slog.InfoContext(ctx, "Password reset", "user_id", user.ID)
		return nil
	}
	return ErrInvalidResetCode
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (core.User, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return core.User{}, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, ErrInvalidToken
		}
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	if !user.Active {
		return core.User{}, ErrAccountDisabled
	}
	return user, nil
}
