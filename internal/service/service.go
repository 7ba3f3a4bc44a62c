package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/covid-counter/covid-counter/internal/auth"
	"github.com/covid-counter/covid-counter/internal/mailer"
	"github.com/covid-counter/covid-counter/internal/models"
	"github.com/covid-counter/covid-counter/internal/storage"
)

const challengeMessage = "A one-time code has been sent to your email."

// Auth drives the login state machine: Unverified -> OtpPending -> Verified,
// with every Login restarting the challenge.
type Auth interface {
	Register(ctx context.Context, name, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (models.OTPChallenge, error)
	VerifyOTP(ctx context.Context, email, code string) (models.AuthResult, error)
}

type authService struct {
	storage storage.Storage
	mailer  mailer.Mailer
	tokens  *auth.TokenService
	otpTTL  time.Duration
}

func NewAuthService(st storage.Storage, m mailer.Mailer, tokens *auth.TokenService, otpTTL time.Duration) *authService {
	return &authService{
		storage: st,
		mailer:  m,
		tokens:  tokens,
		otpTTL:  otpTTL,
	}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	const op = "service.Register"

	_, err := s.storage.GetUserByEmail(ctx, email)
	if err == nil {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrEmailAlreadyRegistered)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.CreateUser(ctx, name, email, passwordHash)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// Login checks the password and arms a fresh challenge. A failed mail dispatch
// fails the whole attempt; the user re-initiates login to get a new code.
func (s *authService) Login(ctx context.Context, email, password string) (models.OTPChallenge, error) {
	const op = "service.Login"

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.OTPChallenge{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return models.OTPChallenge{}, fmt.Errorf("%s: %w", op, err)
	}

	if ok := auth.CheckPasswordHash(user.PasswordHash, password); !ok {
		return models.OTPChallenge{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return models.OTPChallenge{}, fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := time.Now().Add(s.otpTTL)

	// The version guard can lose to a concurrent login for the same email;
	// re-read once and arm again on top of the newer state.
	err = s.storage.SetOTP(ctx, user.ID, code, expiresAt, user.Version)
	if errors.Is(err, storage.ErrStaleUser) {
		user, err = s.storage.GetUserByEmail(ctx, email)
		if err != nil {
			return models.OTPChallenge{}, fmt.Errorf("%s: %w", op, err)
		}
		err = s.storage.SetOTP(ctx, user.ID, code, expiresAt, user.Version)
	}
	if err != nil {
		return models.OTPChallenge{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.mailer.SendOTP(ctx, email, code, expiresAt); err != nil {
		return models.OTPChallenge{}, fmt.Errorf("%s: %w: %w", op, ErrNotificationDelivery, err)
	}

	return models.OTPChallenge{
		Status:    "OTP_REQUIRED",
		Message:   challengeMessage,
		Email:     email,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyOTP resolves a pending challenge. Expired or mismatched codes leave
// the stored state untouched; only a match clears it, exactly once.
func (s *authService) VerifyOTP(ctx context.Context, email, code string) (models.AuthResult, error) {
	const op = "service.VerifyOTP"

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !user.ChallengePending() {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrNoChallengePending)
	}

	if time.Now().After(*user.OTPExpiresAt) {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrChallengeExpired)
	}

	if code != *user.OTPCode {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrInvalidCode)
	}

	// A stale clear means a newer login already replaced this challenge; the
	// code we matched no longer counts.
	if err := s.storage.ClearOTP(ctx, user.ID, user.Version); err != nil {
		if errors.Is(err, storage.ErrStaleUser) {
			return models.AuthResult{}, fmt.Errorf("%s: %w", op, ErrNoChallengePending)
		}
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.tokens.Issue(email)
	if err != nil {
		return models.AuthResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.AuthResult{Token: token, Email: email}, nil
}
