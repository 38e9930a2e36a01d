package domain

import "time"

// PasswordHistoryLimit bounds how many retired password hashes an account
// keeps. Candidates matching any of these are rejected on change/reset.
const PasswordHistoryLimit = 3

type Account struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string   // argon2 encoded, the hash that authenticates today
	PasswordHistory []string // retired argon2 hashes, oldest first, at most PasswordHistoryLimit
	Version         int64    // optimistic-concurrency counter, bumped on credential mutation
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
