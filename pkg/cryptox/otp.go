package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// OTPCodeLength is the number of characters in a generated passcode.
const OTPCodeLength = 6

// otpAlphabet is uppercase alphanumeric: short enough to type from an email
// on a phone, large enough that 6 characters carry ~31 bits of entropy.
const otpAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOTPCode creates a fixed-length random passcode from a
// cryptographically secure source.
func GenerateOTPCode() (string, error) {
	code := make([]byte, OTPCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(otpAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate otp code: %w", err)
		}
		code[i] = otpAlphabet[n.Int64()]
	}
	return string(code), nil
}
