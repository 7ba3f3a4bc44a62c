package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	otpMin  = 100000
	otpSpan = 900000
)

// GenerateOTP draws a fixed-width 6-digit code, uniform over
// [100000, 999999], from the crypto source.
func GenerateOTP() (string, error) {
	const op = "auth.GenerateOTP"

	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
