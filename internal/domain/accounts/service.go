package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mora-fusion/server/internal/audit"
	"github.com/mora-fusion/server/internal/auth"
	"github.com/mora-fusion/server/internal/email"
	"github.com/mora-fusion/server/internal/metrics"
)

// Error types for the login and account flows. Messages stay generic so a
// caller cannot tell whether the email exists or which check failed,
// beyond the documented locked/invalid distinction.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountLocked        = errors.New("account locked, try again later")
	ErrAccountInactive      = errors.New("account is not active")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired mfa code")
	ErrEmailTaken           = errors.New("email is already registered")
)

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 15 * time.Minute
	DefaultMFAExpiry        = 10 * time.Minute
)

// Config tunes the lockout and second-factor windows. Zero values select
// the defaults above.
type Config struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	MFAExpiry        time.Duration
}

// Service implements the two-step login state machine: lockout guard and
// password check, then second-factor challenge, then token issuance.
type Service struct {
	store    Store
	hasher   auth.PasswordHasher
	tokens   *auth.TokenManager
	mailer   *email.Service
	recorder *audit.Recorder
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(
	store Store,
	hasher auth.PasswordHasher,
	tokens *auth.TokenManager,
	mailer *email.Service,
	recorder *audit.Recorder,
	cfg Config,
	logger zerolog.Logger,
) *Service {
	if cfg.LockoutThreshold <= 0 {
		cfg.LockoutThreshold = DefaultLockoutThreshold
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultLockoutDuration
	}
	if cfg.MFAExpiry <= 0 {
		cfg.MFAExpiry = DefaultMFAExpiry
	}
	return &Service{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		mailer:   mailer,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.With().Str("component", "accounts").Logger(),
		now:      time.Now,
	}
}

// Authenticate runs the password stage: lockout guard, password compare,
// then second-factor issuance. Success does not grant access by itself;
// the caller must follow up with VerifySecondFactor.
func (s *Service) Authenticate(ctx context.Context, emailAddr, password, ip string) (*Challenge, error) {
	account, err := s.store.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	if account.Status != StatusActive {
		metrics.LoginAttempts.WithLabelValues("inactive").Inc()
		s.recordLoginDenied(ctx, account, ip, fmt.Sprintf("account status is %s", account.Status))
		return nil, ErrAccountInactive
	}

	now := s.now()
	if account.Locked(now) {
		// No password comparison and no counter change while locked.
		metrics.LoginAttempts.WithLabelValues("locked").Inc()
		s.recordLoginDenied(ctx, account, ip, "account locked")
		return nil, ErrAccountLocked
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		attempts, locked, err := s.store.RegisterFailedAttempt(ctx, account.ID, s.cfg.LockoutThreshold, now.Add(s.cfg.LockoutDuration))
		if err != nil {
			return nil, fmt.Errorf("register failed attempt: %w", err)
		}
		if locked {
			metrics.LoginAttempts.WithLabelValues("locked").Inc()
			metrics.AccountLockouts.Inc()
			s.recordLoginDenied(ctx, account, ip, fmt.Sprintf("account locked after %d failed attempts", attempts))
			return nil, ErrAccountLocked
		}
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	if err := s.store.ResetLockout(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("reset lockout: %w", err)
	}

	code, err := generateMFACode()
	if err != nil {
		return nil, err
	}
	if err := s.store.SetMFACode(ctx, account.ID, code, now.Add(s.cfg.MFAExpiry)); err != nil {
		return nil, fmt.Errorf("store mfa code: %w", err)
	}
	metrics.MFAChallenges.WithLabelValues("issued").Inc()

	// Delivery failures must not block the pending-MFA response; the code
	// stays valid and the user can retry the login to get a fresh one.
	if err := s.mailer.SendMFACode(ctx, account.Email, account.Name, code, s.cfg.MFAExpiry); err != nil {
		s.logger.Error().Err(err).Int64("account_id", account.ID).Msg("mfa code delivery failed")
	}

	metrics.LoginAttempts.WithLabelValues("pending_mfa").Inc()
	s.recorder.Record(ctx, audit.Entry{
		ActorID:   &account.ID,
		ActorRole: account.Role,
		Action:    audit.ActionLogin,
		Outcome:   audit.OutcomeSuccess,
		IPAddress: ip,
		Details:   "password accepted, mfa code issued",
	})
	return &Challenge{AccountID: account.ID, PendingMFA: true}, nil
}

// VerifySecondFactor checks the submitted one-time code and, on success,
// issues the bearer token. Codes are single-use: the first successful
// verification consumes the code.
func (s *Service) VerifySecondFactor(ctx context.Context, accountID int64, code, ip string) (*Session, error) {
	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	if account.MFACode == nil || account.MFAExpiry == nil {
		return nil, s.rejectMFA(ctx, account, ip, "no pending mfa challenge")
	}
	if s.now().After(*account.MFAExpiry) {
		// Clear the stale challenge so the fields stay in lockstep.
		if err := s.store.ClearMFACode(ctx, account.ID); err != nil {
			s.logger.Error().Err(err).Int64("account_id", account.ID).Msg("clear expired mfa code failed")
		}
		return nil, s.rejectMFA(ctx, account, ip, "mfa code expired")
	}
	if !codeMatches(code, *account.MFACode) {
		return nil, s.rejectMFA(ctx, account, ip, "mfa code mismatch")
	}

	consumed, err := s.store.ConsumeMFACode(ctx, account.ID, code)
	if err != nil {
		return nil, fmt.Errorf("consume mfa code: %w", err)
	}
	if !consumed {
		// A concurrent verify won the race; this attempt loses.
		return nil, s.rejectMFA(ctx, account, ip, "mfa code already consumed")
	}

	token, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	metrics.MFAChallenges.WithLabelValues("verified").Inc()
	s.recorder.Record(ctx, audit.Entry{
		ActorID:   &account.ID,
		ActorRole: account.Role,
		Action:    audit.ActionMFAVerify,
		Outcome:   audit.OutcomeSuccess,
		IPAddress: ip,
		Details:   "second factor verified, token issued",
	})

	return &Session{
		Token:     token,
		ExpiresAt: s.now().Add(s.tokens.Expiry()),
		Identity: SessionIdentity{
			ID:    account.ID,
			Email: account.Email,
			Role:  account.Role,
		},
	}, nil
}

func (s *Service) rejectMFA(ctx context.Context, account *Account, ip, reason string) error {
	metrics.MFAChallenges.WithLabelValues("rejected").Inc()
	s.recorder.Record(ctx, audit.Entry{
		ActorID:      &account.ID,
		ActorRole:    account.Role,
		Action:       audit.ActionMFAVerify,
		Outcome:      audit.OutcomeDenied,
		DenialReason: reason,
		IPAddress:    ip,
	})
	return ErrInvalidOrExpiredCode
}

func (s *Service) recordLoginDenied(ctx context.Context, account *Account, ip, reason string) {
	s.recorder.Record(ctx, audit.Entry{
		ActorID:      &account.ID,
		ActorRole:    account.Role,
		Action:       audit.ActionLogin,
		Outcome:      audit.OutcomeDenied,
		DenialReason: reason,
		IPAddress:    ip,
	})
}

// RegisterParams carries a self-service registration. Role defaults to
// "user"; admins come in active, everyone else pending approval.
type RegisterParams struct {
	Name     string
	Email    string
	Password string
	Role     string
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*Account, error) {
	if params.Role == "" {
		params.Role = string(auth.RoleUser)
	}
	params.Role = string(auth.NormalizeRole(params.Role))

	if _, err := s.store.GetByEmail(ctx, params.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	status := StatusPending
	if auth.IsAdmin(params.Role) {
		status = StatusActive
	}

	account, err := s.store.Create(ctx, CreateParams{
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: hash,
		Role:         params.Role,
		Status:       status,
	})
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if err := s.mailer.SendWelcome(ctx, account.Email, account.Name, string(account.Status)); err != nil {
		s.logger.Error().Err(err).Int64("account_id", account.ID).Msg("welcome email delivery failed")
	}

	return account, nil
}

// SetStatus is the admin approval path: pending accounts become active,
// misbehaving ones inactive. The mutation is audited with before/after
// snapshots.
func (s *Service) SetStatus(ctx context.Context, id int64, status Status, actor auth.Identity, ip string) (*Account, error) {
	account, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := account.Status

	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	oldValues, _ := json.Marshal(map[string]string{"status": string(previous)})
	newValues, _ := json.Marshal(map[string]string{"status": string(status)})
	s.recorder.Record(ctx, audit.Entry{
		ActorID:      &actor.ID,
		ActorRole:    actor.Role,
		Action:       audit.ActionResourceMutated,
		ResourceType: "user",
		ResourceID:   &account.ID,
		ResourceName: account.Name,
		Outcome:      audit.OutcomeSuccess,
		IPAddress:    ip,
		OldValues:    oldValues,
		NewValues:    newValues,
		Details:      "account status changed",
	})

	if err := s.mailer.SendStatusUpdate(ctx, account.Email, account.Name, string(status)); err != nil {
		s.logger.Error().Err(err).Int64("account_id", account.ID).Msg("status email delivery failed")
	}

	account.Status = status
	return account, nil
}

// ChangePassword re-verifies the current password before writing the new
// hash through the credential store.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next, ip string, actor auth.Identity) error {
	account, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, id, hash); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}

	s.recorder.Record(ctx, audit.Entry{
		ActorID:      &actor.ID,
		ActorRole:    actor.Role,
		Action:       audit.ActionResourceMutated,
		ResourceType: "user",
		ResourceID:   &account.ID,
		ResourceName: account.Name,
		Outcome:      audit.OutcomeSuccess,
		IPAddress:    ip,
		Details:      "password changed",
	})
	return nil
}

// Get fetches one account by id.
func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	return s.store.GetByID(ctx, id)
}
