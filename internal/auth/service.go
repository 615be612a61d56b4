package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dyike/ivy/internal/kv"
	"github.com/dyike/ivy/internal/logger"
	"github.com/dyike/ivy/internal/notify"
)

var log = logger.New("auth")

const keyCurrentUser = "current_user"

// SessionStore persists the signed-in user between runs.
type SessionStore interface {
	GetJSON(bucket, key string, dst any) error
	PutJSON(bucket, key string, value any) error
	Delete(bucket, key string) error
}

// OnboardingFlag is reset when a new account is registered.
type OnboardingFlag interface {
	SetOnboardingCompleted(done bool) error
}

// Service is the account session: it wraps a Provider and keeps the current
// user observable and persisted. A nil provider means accounts are not
// configured; every operation then fails with ErrNotConfigured.
type Service struct {
	provider   Provider
	sessions   SessionStore
	onboarding OnboardingFlag

	mu   sync.RWMutex
	user *User

	subs notify.Registry[*User]
}

func NewService(provider Provider, sessions SessionStore, onboarding OnboardingFlag) (*Service, error) {
	s := &Service{
		provider:   provider,
		sessions:   sessions,
		onboarding: onboarding,
	}
	if provider == nil || sessions == nil {
		return s, nil
	}

	var u User
	err := sessions.GetJSON(kv.BucketSession, keyCurrentUser, &u)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	default:
		s.user = &u
		log.Debug().Str("email", u.Email).Msg("restored session")
	}
	return s, nil
}

func (s *Service) IsConfigured() bool {
	return s.provider != nil
}

func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Service) CurrentUser() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

// Register creates the account, sets its display name, clears the
// onboarding flag, sends a verification email and signs the user in.
func (s *Service) Register(ctx context.Context, email, password, displayName string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	email = strings.TrimSpace(email)

	u, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	updated, err := s.provider.UpdateProfile(ctx, u.IDToken, displayName)
	if err != nil {
		return err
	}
	u = merge(u, updated)

	if s.onboarding != nil {
		if err := s.onboarding.SetOnboardingCompleted(false); err != nil {
			log.Error().Err(err).Msg("reset onboarding flag failed")
			return err
		}
	}
	if err := s.provider.SendEmailVerification(ctx, u.IDToken); err != nil {
		return err
	}

	log.Info().Str("email", email).Msg("account registered")
	return s.setUser(u)
}

func (s *Service) Login(ctx context.Context, email, password string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	email = strings.TrimSpace(email)
	u, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	log.Info().Str("email", email).Msg("signed in")
	return s.setUser(u)
}

func (s *Service) Logout() error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	return s.setUser(nil)
}

func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	return s.provider.SendPasswordReset(ctx, strings.TrimSpace(email))
}

func (s *Service) DeleteAccount(ctx context.Context) error {
	u, err := s.requireUser()
	if err != nil {
		return err
	}
	if err := s.provider.Delete(ctx, u.IDToken); err != nil {
		return err
	}
	log.Info().Str("email", u.Email).Msg("account deleted")
	return s.setUser(nil)
}

func (s *Service) SendEmailVerification(ctx context.Context) error {
	u, err := s.requireUser()
	if err != nil {
		return err
	}
	return s.provider.SendEmailVerification(ctx, u.IDToken)
}

// UpdateDisplayName renames the signed-in user. The onboarding flag is not
// touched.
func (s *Service) UpdateDisplayName(ctx context.Context, displayName string) error {
	u, err := s.requireUser()
	if err != nil {
		return err
	}
	updated, err := s.provider.UpdateProfile(ctx, u.IDToken, strings.TrimSpace(displayName))
	if err != nil {
		return err
	}
	return s.setUser(merge(u, updated))
}

// Subscribe registers fn for sign-in state changes. fn receives nil on
// sign-out.
func (s *Service) Subscribe(fn func(*User)) func() {
	return s.subs.Add(fn)
}

func (s *Service) requireUser() (*User, error) {
	if !s.IsConfigured() {
		return nil, ErrNotConfigured
	}
	u := s.CurrentUser()
	if u == nil {
		return nil, ErrNoCurrentUser
	}
	return u, nil
}

func (s *Service) setUser(u *User) error {
	var err error
	if s.sessions != nil {
		if u == nil {
			err = s.sessions.Delete(kv.BucketSession, keyCurrentUser)
		} else {
			err = s.sessions.PutJSON(kv.BucketSession, keyCurrentUser, u)
		}
		if err != nil {
			log.Error().Err(err).Msg("persist session failed")
			err = fmt.Errorf("persist session: %w", err)
		}
	}

	s.mu.Lock()
	s.user = copyUser(u)
	s.mu.Unlock()

	s.subs.Notify(copyUser(u))
	return err
}

// merge overlays non-empty fields of update onto base.
func merge(base, update *User) *User {
	out := *base
	if update == nil {
		return &out
	}
	if update.DisplayName != "" {
		out.DisplayName = update.DisplayName
	}
	if update.Email != "" {
		out.Email = update.Email
	}
	if update.IDToken != "" {
		out.IDToken = update.IDToken
	}
	if update.RefreshToken != "" {
		out.RefreshToken = update.RefreshToken
	}
	out.EmailVerified = out.EmailVerified || update.EmailVerified
	return &out
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
