package sqlite

import (
	"context"
	"time"

	"github.com/perchsocial/perch/internal/accounts/domain"
)

type otpChallengesRepo struct {
	db dbtx
}

func (r *otpChallengesRepo) CreateChallenge(ctx context.Context, c domain.OtpChallenge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_challenges (id, account_id, code, expires_at, used)
		 VALUES (?, ?, ?, ?, 0)`,
		c.ID, c.AccountID, c.Code, c.ExpiresAt.UTC())
	return mapConstraint(err)
}

func (r *otpChallengesRepo) GetChallenge(ctx context.Context, accountID, code string) (domain.OtpChallenge, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, code, expires_at, used, created_at
		 FROM otp_challenges
		 WHERE account_id = ? AND code = ?`,
		accountID, code)

	var c domain.OtpChallenge
	err := row.Scan(&c.ID, &c.AccountID, &c.Code, &c.ExpiresAt, &c.Used, &c.CreatedAt)
	if err != nil {
		return domain.OtpChallenge{}, mapNotFound(err)
	}
	return c, nil
}

// ConsumeChallenge marks the challenge used with a conditional update rather
// than read-then-write, so concurrent consumers of the same code race on a
// single row update and exactly one of them wins.
func (r *otpChallengesRepo) ConsumeChallenge(ctx context.Context, accountID, code string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_challenges
		 SET used = 1
		 WHERE account_id = ? AND code = ? AND used = 0 AND expires_at > ?`,
		accountID, code, time.Now().UTC())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *otpChallengesRepo) DeleteExpiredChallenges(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_challenges WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
