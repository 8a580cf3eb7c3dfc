package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-delivery/auth"
	"food-delivery/models"
	"food-delivery/store"

	"golang.org/x/crypto/bcrypt"
)

const adminPasswordLen = 16

// HashAdminPassword returns a bcrypt hash of the plain password for storing in the DB.
func HashAdminPassword(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CreateAdmin registers an admin with a generated password and returns that
// password. It is shown once and never stored in plain text.
func (s *Service) CreateAdmin(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", newErr(KindValidation, ReasonInvalidRequest, "username is required")
	}
	plain, err := GenerateSecurePassword(adminPasswordLen)
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	hash, err := HashAdminPassword(plain)
	if err != nil {
		return "", err
	}
	err = s.store.CreateAdmin(ctx, &models.Admin{Username: username, PasswordHash: hash, CreatedAt: s.now()})
	if errors.Is(err, store.ErrConflict) {
		return "", newErr(KindConflict, ReasonAdminExists, "admin %s already exists", username)
	}
	if err != nil {
		return "", fmt.Errorf("create admin: %w", err)
	}
	s.logger.Infow("admin created", "username", username)
	return plain, nil
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// AdminLogin checks credentials under the login throttle and issues an admin token.
func (s *Service) AdminLogin(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, newErr(KindValidation, ReasonInvalidRequest, "username and password are required")
	}
	wait, err := s.throttle.WaitSeconds(ctx, username)
	if err != nil {
		s.logger.Warnw("login throttle lookup", "username", username, "error", err)
	}
	if wait > 0 {
		return nil, &Error{
			Kind:       KindThrottled,
			Reason:     ReasonTooManyAttempts,
			Msg:        fmt.Sprintf("too many attempts, retry in %d seconds", wait),
			RetryAfter: wait,
		}
	}

	admin, err := s.store.GetAdmin(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if admin == nil || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		if err := s.throttle.RecordFailure(ctx, username); err != nil {
			s.logger.Warnw("record login failure", "username", username, "error", err)
		}
		s.logger.Infow("admin login failed", "username", username)
		return nil, newErr(KindUnauthorized, ReasonInvalidCredentials, "invalid username or password")
	}
	if err := s.throttle.RecordSuccess(ctx, username); err != nil {
		s.logger.Warnw("record login success", "username", username, "error", err)
	}
	if s.tokens == nil {
		return nil, fmt.Errorf("token issuer not configured")
	}
	token, exp, err := s.tokens.GenerateToken(admin.Username, auth.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp}, nil
}
