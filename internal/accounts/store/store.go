package store

import (
	"context"
	"errors"

	"github.com/perchsocial/perch/internal/accounts/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrVersionConflict is returned by conditional updates when the row's
	// version no longer matches the caller's base read.
	ErrVersionConflict = errors.New("store: version conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite at the
// moment) implement this. It exposes sub-repositories to keep concerns tidy
// and testable.
type Store interface {
	Accounts() Accounts
	OtpChallenges() OtpChallenges

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail looks up by normalized (lowercased, trimmed) email.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetAccountByUsername looks up by normalized username.
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)

	// CreateAccount inserts a new account (id is provided by app via ULID).
	// Returns ErrAlreadyExists on a username or email collision.
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdateCredentials replaces the password hash and history in a single
	// conditional write keyed on baseVersion. Returns ErrVersionConflict if
	// another writer committed since the caller read the account.
	UpdateCredentials(ctx context.Context, accountID string, baseVersion int64, newHash string, history []string) error
}

type OtpChallenges interface {
	// CreateChallenge stores a freshly issued challenge. Returns
	// ErrAlreadyExists when the (account_id, code) pair is already taken.
	CreateChallenge(ctx context.Context, c domain.OtpChallenge) error

	// GetChallenge fetches the unique challenge for (account_id, code).
	GetChallenge(ctx context.Context, accountID, code string) (domain.OtpChallenge, error)

	// ConsumeChallenge atomically marks the challenge used, but only if it is
	// currently unused and unexpired. Reports whether this call won the mark;
	// losers must re-read the row to find out why.
	ConsumeChallenge(ctx context.Context, accountID, code string) (bool, error)

	// DeleteExpiredChallenges is housekeeping; consume correctness never
	// depends on it running.
	DeleteExpiredChallenges(ctx context.Context) error
}
