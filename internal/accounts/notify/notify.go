// Package notify delivers one-time passcodes out-of-band. The credential
// service commits a challenge durably before calling a Sender, so delivery
// failure never invalidates an issued code.
package notify

import "context"

// Sender delivers a password-reset passcode to an account's email channel.
type Sender interface {
	SendOTP(ctx context.Context, email, code, displayName string) error
}
