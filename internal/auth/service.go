// Package auth issues and checks the session tokens behind the REST and
// realtime surfaces. Accounts are email plus bcrypt hash; sessions are
// opaque random tokens with a server-side expiry.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/store"
)

// Service manages accounts and sessions.
type Service struct {
	db          *store.DB
	ttl         time.Duration
	allowSignup bool
}

// NewService creates an auth service. ttl bounds how long an issued
// session stays valid; allowSignup gates self-service registration.
func NewService(db *store.DB, ttl time.Duration, allowSignup bool) *Service {
	return &Service{db: db, ttl: ttl, allowSignup: allowSignup}
}

// SignUp registers a new account and opens a session for it.
func (s *Service) SignUp(ctx context.Context, email, password string) (string, models.User, error) {
	if !s.allowSignup {
		return "", models.User{}, apperr.ErrForbidden
	}
	email = models.NormalizeEmail(email)
	if _, _, err := s.db.UserByEmail(ctx, email); err == nil {
		return "", models.User{}, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return "", models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", models.User{}, fmt.Errorf("auth: hash password: %w", err)
	}
	u := models.User{
		ID:        models.NewID(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.CreateUser(ctx, u, string(hash)); err != nil {
		return "", models.User{}, err
	}
	token, err := s.startSession(ctx, u.ID)
	if err != nil {
		return "", models.User{}, err
	}
	return token, u, nil
}

// SignIn checks the credentials and opens a session. Wrong email and
// wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, models.User, error) {
	u, hash, err := s.db.UserByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", models.User{}, apperr.ErrUnauthorized
		}
		return "", models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", models.User{}, apperr.ErrUnauthorized
	}
	token, err := s.startSession(ctx, u.ID)
	if err != nil {
		return "", models.User{}, err
	}
	return token, u, nil
}

// SignOut invalidates a session token. Unknown tokens are fine.
func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.db.DeleteSession(ctx, token)
}

// UserFromToken resolves a session token to its account.
func (s *Service) UserFromToken(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, apperr.ErrUnauthorized
	}
	u, err := s.db.SessionUser(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.User{}, apperr.ErrUnauthorized
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Service) startSession(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}
	token := hex.EncodeToString(buf)
	if err := s.db.CreateSession(ctx, token, userID, time.Now().UTC().Add(s.ttl)); err != nil {
		return "", err
	}
	return token, nil
}
