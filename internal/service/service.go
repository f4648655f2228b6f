package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"matchmaker/internal/auth"
	"matchmaker/internal/config"
	"matchmaker/internal/models"
	"matchmaker/internal/notify"
	"matchmaker/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPendingApproval    = errors.New("account is awaiting admin approval")
	ErrInvalidSession     = errors.New("invalid session")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("account not found")
	ErrTargetNotFound     = errors.New("reported account not found")
	ErrDuplicateEmail     = store.ErrDuplicateEmail
)

// SessionStore persists server-side sessions keyed by token hash.
type SessionStore interface {
	CreateSession(ctx context.Context, sess models.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error)
	RevokeSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

type Service struct {
	cfg      config.Config
	st       *store.Store
	sessions SessionStore
	sender   notify.Sender
	tokens   auth.TokenHasher
	now      func() time.Time
}

func New(cfg config.Config, st *store.Store, sessions SessionStore, sender notify.Sender) *Service {
	if sender == nil {
		sender = notify.LogSender{}
	}
	return &Service{
		cfg:      cfg,
		st:       st,
		sessions: sessions,
		sender:   sender,
		tokens:   auth.NewTokenHasher(cfg.SecretKey),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Store() *store.Store { return s.st }

// BootstrapAdmin seeds the configured admin account once. An existing account
// with that email is left as it is.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.st.GetAccountByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	created, err := s.st.EnsureAdmin(ctx, email, hash, "Administrator")
	if err != nil {
		return err
	}
	if created {
		log.Printf("bootstrap admin created email=%s", email)
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (models.Account, error) {
	email, profile, err := s.validateRegistration(in)
	if err != nil {
		return models.Account{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.Account{}, err
	}
	a, err := s.st.CreateAccount(ctx, email, hash, profile, false)
	if err != nil {
		return models.Account{}, err
	}
	log.Printf("account registered id=%s", a.ID)
	return a, nil
}

// CheckCredentials verifies email and password without issuing a session.
// A correct password on an unapproved non-admin account yields
// ErrPendingApproval.
func (s *Service) CheckCredentials(ctx context.Context, email, password string) (models.Account, error) {
	a, err := s.st.GetAccountByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return models.Account{}, err
		}
		auth.BurnVerify(password)
		return models.Account{}, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(a.PasswordHash, password) {
		return models.Account{}, ErrInvalidCredentials
	}
	if !RequireApproved(&a) {
		return models.Account{}, ErrPendingApproval
	}
	return a, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (rawToken string, account models.Account, err error) {
	a, err := s.CheckCredentials(ctx, email, password)
	if err != nil {
		return "", models.Account{}, err
	}
	raw, tokenHash, err := s.tokens.NewToken()
	if err != nil {
		return "", models.Account{}, err
	}
	now := s.now()
	sess := models.Session{
		ID:        uuid.NewString(),
		AccountID: a.ID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(s.cfg.SessionTTL()),
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return "", models.Account{}, err
	}
	_ = s.st.TouchLastLogin(ctx, a.ID, now)
	return raw, a, nil
}

// Resolve maps a raw session token to its account. Unknown, revoked and
// expired tokens all return ErrInvalidSession.
func (s *Service) Resolve(ctx context.Context, rawToken string) (models.Account, error) {
	if rawToken == "" {
		return models.Account{}, ErrInvalidSession
	}
	sess, err := s.sessions.GetSessionByTokenHash(ctx, s.tokens.Hash(rawToken))
	if err != nil {
		return models.Account{}, ErrInvalidSession
	}
	if sess.RevokedAt != nil || !s.now().Before(sess.ExpiresAt) {
		return models.Account{}, ErrInvalidSession
	}
	a, err := s.st.GetAccountByID(ctx, sess.AccountID)
	if err != nil {
		return models.Account{}, ErrInvalidSession
	}
	return a, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	sess, err := s.sessions.GetSessionByTokenHash(ctx, s.tokens.Hash(rawToken))
	if err != nil {
		return nil
	}
	return s.sessions.RevokeSession(ctx, sess.ID)
}

func (s *Service) SweepSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpiredSessions(ctx, s.now())
}

// RunSessionSweeper deletes dead sessions every interval until ctx is done.
func (s *Service) RunSessionSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.SweepSessions(ctx)
			if err != nil {
				log.Printf("session sweep failed err=%q", err.Error())
				continue
			}
			if n > 0 {
				log.Printf("session sweep removed=%d", n)
			}
		}
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.st.Ping(ctx)
}
