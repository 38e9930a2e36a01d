package service

import (
	"errors"

	"github.com/perchsocial/perch/internal/accounts/domain"
	"github.com/perchsocial/perch/pkg/cryptox"
)

var (
	// ErrSamePassword rejects a candidate that matches the currently active
	// password. Kept distinct from ErrPasswordReused for telemetry; the route
	// layer presents both the same way.
	ErrSamePassword = errors.New("new password matches the current password")

	// ErrPasswordReused rejects a candidate that matches a recently retired
	// password hash.
	ErrPasswordReused = errors.New("new password was used recently")
)

// historyContains reports whether candidate matches any of the most recent
// PasswordHistoryLimit retired hashes. Empty or missing history never
// matches. A comparison failure aborts the check: skipping an unparseable
// hash would silently allow reuse.
func historyContains(candidate string, history []string) (bool, error) {
	if len(history) == 0 {
		return false, nil
	}

	start := 0
	if len(history) > domain.PasswordHistoryLimit {
		start = len(history) - domain.PasswordHistoryLimit
	}

	for _, retired := range history[start:] {
		match, err := cryptox.VerifyPassword(candidate, retired)
		if err != nil {
			return false, err
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// recordRetired appends the hash being displaced to the history and truncates
// to the newest PasswordHistoryLimit entries, oldest first. The caller passes
// the hash that WAS current, never the one being set.
func recordRetired(history []string, retiredHash string) []string {
	out := make([]string, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, retiredHash)

	if len(out) > domain.PasswordHistoryLimit {
		out = out[len(out)-domain.PasswordHistoryLimit:]
	}
	return out
}
