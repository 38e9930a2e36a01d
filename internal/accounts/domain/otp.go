package domain

import "time"

// OtpChallenge is a short-lived passcode proving possession of an account's
// email channel. A challenge is redeemable iff it is unused and unexpired;
// consuming it flips Used exactly once.
type OtpChallenge struct {
	ID        string
	AccountID string
	Code      string // 6 chars, A-Z0-9
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Valid reports whether the challenge could still be consumed at t.
func (c OtpChallenge) Valid(t time.Time) bool {
	return !c.Used && t.Before(c.ExpiresAt)
}
