package sqlite

import (
	"context"
	"time"

	"github.com/perchsocial/perch/internal/accounts/domain"
	"github.com/perchsocial/perch/internal/accounts/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, username, email, password_hash, password_history, version, created_at, updated_at`

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
	return scanAccount(row)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	history, err := marshalHistory(a.PasswordHistory)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, username, email, password_hash, password_history, version)
		 VALUES (?, ?, ?, ?, ?, 1)`,
		a.ID, a.Username, a.Email, a.PasswordHash, history)
	return mapConstraint(err)
}

// UpdateCredentials is the single write path for credential rotation. The
// version predicate makes it a compare-and-swap: a writer holding a stale
// base read affects zero rows and gets ErrVersionConflict.
func (r *accountsRepo) UpdateCredentials(
	ctx context.Context,
	accountID string,
	baseVersion int64,
	newHash string,
	history []string,
) error {
	raw, err := marshalHistory(history)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET password_hash = ?, password_history = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		newHash, raw, time.Now().UTC(), accountID, baseVersion)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrVersionConflict
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a       domain.Account
		rawHist string
	)
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&rawHist,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.PasswordHistory, err = unmarshalHistory(rawHist)
	if err != nil {
		return domain.Account{}, err
	}
	return a, nil
}
