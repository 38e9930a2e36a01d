package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/perchsocial/perch/internal/accounts/domain"
	"github.com/perchsocial/perch/internal/accounts/store"
	"github.com/perchsocial/perch/internal/accounts/store/drivers/sqlite"
	"github.com/perchsocial/perch/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newAccount(username, email string) domain.Account {
	return domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		Version:      1,
	}
}

func TestAccountsRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	account := newAccount("alice", "alice@example.com")
	account.PasswordHistory = []string{"old-hash-1", "old-hash-2"}
	require.NoError(t, st.Accounts().CreateAccount(ctx, account))

	t.Run("by id", func(t *testing.T) {
		got, err := st.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, account.Username, got.Username)
		require.Equal(t, account.Email, got.Email)
		require.Equal(t, account.PasswordHash, got.PasswordHash)
		require.Equal(t, []string{"old-hash-1", "old-hash-2"}, got.PasswordHistory)
		require.Equal(t, int64(1), got.Version)
		require.False(t, got.CreatedAt.IsZero())
	})

	t.Run("by email", func(t *testing.T) {
		got, err := st.Accounts().GetAccountByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, account.ID, got.ID)
	})

	t.Run("by username", func(t *testing.T) {
		got, err := st.Accounts().GetAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, account.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := st.Accounts().GetAccountByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestCreateAccountUniqueness(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	require.NoError(t, st.Accounts().CreateAccount(ctx, newAccount("alice", "alice@example.com")))

	err := st.Accounts().CreateAccount(ctx, newAccount("alice", "other@example.com"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	err = st.Accounts().CreateAccount(ctx, newAccount("bob", "alice@example.com"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUpdateCredentialsCAS(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	account := newAccount("alice", "alice@example.com")
	require.NoError(t, st.Accounts().CreateAccount(ctx, account))

	t.Run("matching version wins and bumps", func(t *testing.T) {
		err := st.Accounts().UpdateCredentials(ctx, account.ID, 1, "new-hash", []string{"retired-hash"})
		require.NoError(t, err)

		got, err := st.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", got.PasswordHash)
		require.Equal(t, []string{"retired-hash"}, got.PasswordHistory)
		require.Equal(t, int64(2), got.Version)
	})

	t.Run("stale version loses", func(t *testing.T) {
		err := st.Accounts().UpdateCredentials(ctx, account.ID, 1, "stale-hash", nil)
		require.ErrorIs(t, err, store.ErrVersionConflict)

		// The losing write changed nothing.
		got, err := st.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", got.PasswordHash)
		require.Equal(t, int64(2), got.Version)
	})

	t.Run("unknown account loses", func(t *testing.T) {
		err := st.Accounts().UpdateCredentials(ctx, "missing", 1, "hash", nil)
		require.ErrorIs(t, err, store.ErrVersionConflict)
	})
}

func TestOtpChallenges(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	account := newAccount("alice", "alice@example.com")
	require.NoError(t, st.Accounts().CreateAccount(ctx, account))

	challenge := domain.OtpChallenge{
		ID:        idx.New().String(),
		AccountID: account.ID,
		Code:      "AB12CD",
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}
	require.NoError(t, st.OtpChallenges().CreateChallenge(ctx, challenge))

	t.Run("duplicate code for same account rejected", func(t *testing.T) {
		dup := challenge
		dup.ID = idx.New().String()
		err := st.OtpChallenges().CreateChallenge(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("same code for another account allowed", func(t *testing.T) {
		bob := newAccount("bob", "bob@example.com")
		require.NoError(t, st.Accounts().CreateAccount(ctx, bob))

		other := domain.OtpChallenge{
			ID:        idx.New().String(),
			AccountID: bob.ID,
			Code:      challenge.Code,
			ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
		}
		require.NoError(t, st.OtpChallenges().CreateChallenge(ctx, other))
	})

	t.Run("consume is conditional", func(t *testing.T) {
		won, err := st.OtpChallenges().ConsumeChallenge(ctx, account.ID, challenge.Code)
		require.NoError(t, err)
		require.True(t, won)

		// Second consume of the same code matches nothing.
		won, err = st.OtpChallenges().ConsumeChallenge(ctx, account.ID, challenge.Code)
		require.NoError(t, err)
		require.False(t, won)

		got, err := st.OtpChallenges().GetChallenge(ctx, account.ID, challenge.Code)
		require.NoError(t, err)
		require.True(t, got.Used)
	})

	t.Run("expired challenge cannot be consumed", func(t *testing.T) {
		expired := domain.OtpChallenge{
			ID:        idx.New().String(),
			AccountID: account.ID,
			Code:      "EXPIRE",
			ExpiresAt: time.Now().UTC().Add(-time.Second),
		}
		require.NoError(t, st.OtpChallenges().CreateChallenge(ctx, expired))

		won, err := st.OtpChallenges().ConsumeChallenge(ctx, account.ID, expired.Code)
		require.NoError(t, err)
		require.False(t, won)
	})
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	t.Run("commit on success", func(t *testing.T) {
		account := newAccount("alice", "alice@example.com")
		err := st.WithTx(ctx, func(tx store.Tx) error {
			return tx.Accounts().CreateAccount(ctx, account)
		})
		require.NoError(t, err)

		_, err = st.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
	})

	t.Run("rollback on error", func(t *testing.T) {
		account := newAccount("bob", "bob@example.com")
		err := st.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
				return err
			}
			return context.Canceled
		})
		require.ErrorIs(t, err, context.Canceled)

		_, err = st.Accounts().GetAccountByID(ctx, account.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
