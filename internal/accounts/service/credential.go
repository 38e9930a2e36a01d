package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/perchsocial/perch/internal/accounts/domain"
	"github.com/perchsocial/perch/internal/accounts/notify"
	"github.com/perchsocial/perch/internal/accounts/store"
	"github.com/perchsocial/perch/pkg/cryptox"
	"github.com/perchsocial/perch/pkg/idx"
	"github.com/perchsocial/perch/pkg/slogx"

	"github.com/sethvargo/go-retry"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

var (
	// ErrInvalidCredentials covers both "no such account" and "wrong
	// password". Callers outside this package must not be able to tell the
	// two apart; logs may.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrDuplicateAccount = errors.New("username or email already registered")
	ErrAccountNotFound  = errors.New("account not found")
	ErrInvalidInput     = errors.New("invalid registration input")

	// ErrConcurrentModification surfaces after a credential write lost the
	// optimistic-concurrency race twice in a row.
	ErrConcurrentModification = errors.New("account was modified concurrently")
)

// CredentialService owns the account credential lifecycle: registration,
// authentication, password change, and the OTP reset flow. Hashing is always
// an explicit step here, never a side effect of a store write, so the
// history-mutation invariant lives at a single call site.
type CredentialService struct {
	Store    store.Store
	Otp      *OtpService
	Notifier notify.Sender
}

// Register creates a new account. The initial password never seeds the
// history; history only ever holds displaced hashes.
func (s *CredentialService) Register(ctx context.Context, username, email, password string) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	username = normalizeIdentifier(username)
	email = normalizeIdentifier(email)

	if len(username) < minUsernameLength || email == "" || !strings.Contains(email, "@") {
		return domain.Account{}, ErrInvalidInput
	}
	if len(password) < minPasswordLength {
		return domain.Account{}, ErrInvalidInput
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", "err", err)
		return domain.Account{}, err
	}

	account := domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Version:      1,
	}

	if err := s.Store.Accounts().CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Warn("registration for taken username or email", "username", username)
			return domain.Account{}, ErrDuplicateAccount
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	log.Info("account registered", "account_id", account.ID, "username", username)
	return account, nil
}

// Authenticate verifies an email/password pair. Missing accounts and wrong
// passwords surface identically.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, normalizeIdentifier(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("authentication for unknown email")
			return domain.Account{}, ErrInvalidCredentials
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	match, err := cryptox.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		log.Error("stored password hash unreadable", "account_id", account.ID, "err", err)
		return domain.Account{}, err
	}
	if !match {
		log.Warn("authentication with wrong password", "account_id", account.ID)
		return domain.Account{}, ErrInvalidCredentials
	}

	return account, nil
}

// ChangePassword rotates the password of an authenticated account. The write
// is a compare-and-swap on the account version; a conflicting writer triggers
// one automatic retry against fresh state before ErrConcurrentModification
// surfaces.
func (s *CredentialService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrInvalidInput
	}

	return s.withConflictRetry(ctx, func(ctx context.Context) error {
		log := slogx.FromContext(ctx)

		account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warn("password change for unknown account", "account_id", accountID)
				return ErrInvalidCredentials
			}
			return fmt.Errorf("lookup account: %w", err)
		}

		match, err := cryptox.VerifyPassword(currentPassword, account.PasswordHash)
		if err != nil {
			return err
		}
		if !match {
			log.Warn("password change with wrong current password", "account_id", account.ID)
			return ErrInvalidCredentials
		}

		return s.rotatePassword(ctx, account, newPassword)
	})
}

// RequestReset issues an OTP challenge and hands the code to the notifier.
// For unknown emails it reports success without persisting anything, so the
// endpoint cannot be used to enumerate accounts. The challenge is committed
// before delivery is attempted; a failed email never rolls it back.
func (s *CredentialService) RequestReset(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, normalizeIdentifier(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	challenge, err := s.Otp.Issue(ctx, account.ID)
	if err != nil {
		return err
	}

	if err := s.Notifier.SendOTP(ctx, account.Email, challenge.Code, account.Username); err != nil {
		// The challenge is already durable; the user can retry the email by
		// requesting again.
		log.Error("failed to deliver otp", "account_id", account.ID, "err", err)
	}

	log.Info("reset challenge issued", "account_id", account.ID, "expires_at", challenge.ExpiresAt)
	return nil
}

// VerifyReset consumes an OTP challenge and rotates the password. Unlike
// RequestReset this path does report a missing account: possession of a code
// is a separate concern from enumeration.
func (s *CredentialService) VerifyReset(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrInvalidInput
	}

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, normalizeIdentifier(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	// Marks the challenge used; at most one concurrent caller gets past this
	// for a given code.
	if _, err := s.Otp.Consume(ctx, account.ID, code); err != nil {
		return err
	}

	return s.withConflictRetry(ctx, func(ctx context.Context) error {
		// Re-read inside the retry so a second attempt sees fresh state.
		account, err := s.Store.Accounts().GetAccountByID(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("lookup account: %w", err)
		}
		return s.rotatePassword(ctx, account, newPassword)
	})
}

// rotatePassword runs the same-password and reuse checks, hashes the new
// password, and commits hash plus updated history in one conditional write.
// No partial state is observable: the CAS either installs both or neither.
func (s *CredentialService) rotatePassword(ctx context.Context, account domain.Account, newPassword string) error {
	log := slogx.FromContext(ctx)

	same, err := cryptox.VerifyPassword(newPassword, account.PasswordHash)
	if err != nil {
		return err
	}
	if same {
		log.Warn("password rotation rejected: same as current", "account_id", account.ID)
		return ErrSamePassword
	}

	reused, err := historyContains(newPassword, account.PasswordHistory)
	if err != nil {
		log.Error("reuse check aborted", "account_id", account.ID, "err", err)
		return err
	}
	if reused {
		log.Warn("password rotation rejected: recently used", "account_id", account.ID)
		return ErrPasswordReused
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	history := recordRetired(account.PasswordHistory, account.PasswordHash)

	err = s.Store.Accounts().UpdateCredentials(ctx, account.ID, account.Version, newHash, history)
	if err != nil {
		return err
	}

	log.Info("password rotated", "account_id", account.ID)
	return nil
}

// withConflictRetry runs fn and retries it exactly once if the credential
// CAS lost to a concurrent writer. A second loss surfaces as
// ErrConcurrentModification.
func (s *CredentialService) withConflictRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if errors.Is(err, store.ErrVersionConflict) {
		return ErrConcurrentModification
	}
	return err
}

// normalizeIdentifier canonicalizes usernames and emails for storage and
// lookup: surrounding whitespace stripped, lowercased.
func normalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
