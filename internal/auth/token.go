package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrInvalidToken   = errors.New("invalid token")
)

// TokenService issues and validates HMAC-signed bearer tokens carrying the
// user's email as subject. The signing key is fixed at construction; rotating
// it invalidates every outstanding token.
type TokenService struct {
	signingKey []byte
	tokenTTL   time.Duration
}

func NewTokenService(signingKey []byte, tokenTTL time.Duration) *TokenService {
	return &TokenService{
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
	}
}

// TTL reports the configured token lifetime, so cookie expiry can follow it.
func (s *TokenService) TTL() time.Duration {
	return s.tokenTTL
}

// Issue creates a signed token for the subject, valid from now until now+TTL.
func (s *TokenService) Issue(subject string) (string, error) {
	const op = "auth.Issue"

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Validate fails closed: any parse error, signature mismatch, expired token or
// subject mismatch yields an error wrapping ErrInvalidToken.
func (s *TokenService) Validate(tokenStr, expectedSubject string) error {
	const op = "auth.Validate"

	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject != expectedSubject {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return nil
}

// ExtractSubject decodes the subject without verifying the signature or the
// validity window. Callers must still Validate before trusting it.
func (s *TokenService) ExtractSubject(tokenStr string) (string, error) {
	const op = "auth.ExtractSubject"

	claims := &jwt.RegisteredClaims{}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	return claims.Subject, nil
}
