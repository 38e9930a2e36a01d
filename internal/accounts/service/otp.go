package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/perchsocial/perch/internal/accounts/domain"
	"github.com/perchsocial/perch/internal/accounts/store"
	"github.com/perchsocial/perch/pkg/cryptox"
	"github.com/perchsocial/perch/pkg/idx"
	"github.com/perchsocial/perch/pkg/slogx"

	"github.com/sethvargo/go-retry"
)

// DefaultOtpTTL is the validity window for a reset passcode.
const DefaultOtpTTL = 10 * time.Minute

var (
	ErrOtpNotFound    = errors.New("otp not found")
	ErrOtpExpired     = errors.New("otp expired")
	ErrOtpAlreadyUsed = errors.New("otp already used")

	// ErrOtpIssuance is the generic failure surfaced when a fresh code could
	// not be stored even after retrying the (extremely rare) collision case.
	ErrOtpIssuance = errors.New("otp issuance failed")
)

// OtpService issues and consumes one-time passcodes tied to an account.
type OtpService struct {
	Store store.Store
	TTL   time.Duration
}

func (s *OtpService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultOtpTTL
	}
	return s.TTL
}

// Issue generates a fresh random code and persists it with used=false. A
// UNIQUE collision on (account_id, code) is retried once with a new code
// before giving up; callers never see the collision itself.
func (s *OtpService) Issue(ctx context.Context, accountID string) (domain.OtpChallenge, error) {
	log := slogx.FromContext(ctx)

	var challenge domain.OtpChallenge
	backoff := retry.WithMaxRetries(1, retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := cryptox.GenerateOTPCode()
		if err != nil {
			return err
		}

		challenge = domain.OtpChallenge{
			ID:        idx.New().String(),
			AccountID: accountID,
			Code:      code,
			ExpiresAt: time.Now().UTC().Add(s.ttl()),
			Used:      false,
		}

		if err := s.Store.OtpChallenges().CreateChallenge(ctx, challenge); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				log.Warn("otp code collision, regenerating", "account_id", accountID)
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		log.Error("failed to issue otp challenge", "account_id", accountID, "err", err)
		return domain.OtpChallenge{}, fmt.Errorf("%w: %w", ErrOtpIssuance, err)
	}

	return challenge, nil
}

// Consume atomically marks the (accountID, code) challenge as used. Exactly
// one concurrent caller can succeed for a given code; everyone else gets a
// specific reason. Expiry is re-checked here regardless of housekeeping.
func (s *OtpService) Consume(ctx context.Context, accountID, code string) (domain.OtpChallenge, error) {
	won, err := s.Store.OtpChallenges().ConsumeChallenge(ctx, accountID, code)
	if err != nil {
		return domain.OtpChallenge{}, fmt.Errorf("consume otp challenge: %w", err)
	}

	challenge, getErr := s.Store.OtpChallenges().GetChallenge(ctx, accountID, code)

	if won {
		if getErr != nil {
			// The mark committed; losing the read-back is unexpected but the
			// consume itself stands.
			return domain.OtpChallenge{AccountID: accountID, Code: code, Used: true}, nil
		}
		return challenge, nil
	}

	// Figure out why the conditional update matched nothing.
	if getErr != nil {
		if errors.Is(getErr, store.ErrNotFound) {
			return domain.OtpChallenge{}, ErrOtpNotFound
		}
		return domain.OtpChallenge{}, getErr
	}
	if !time.Now().UTC().Before(challenge.ExpiresAt) {
		return domain.OtpChallenge{}, ErrOtpExpired
	}
	return domain.OtpChallenge{}, ErrOtpAlreadyUsed
}

// DeleteExpired removes challenges past their expiry. Consume correctness
// never depends on this running; it is storage hygiene only.
func (s *OtpService) DeleteExpired(ctx context.Context) error {
	return s.Store.OtpChallenges().DeleteExpiredChallenges(ctx)
}
