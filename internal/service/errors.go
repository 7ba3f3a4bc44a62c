package service

import "errors"

// Authentication failure taxonomy. Handlers map these to HTTP statuses with
// errors.Is; no credential or code value ever rides along in the message.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrNoChallengePending     = errors.New("no challenge pending")
	ErrChallengeExpired       = errors.New("challenge expired")
	ErrInvalidCode            = errors.New("invalid code")
	ErrNotificationDelivery   = errors.New("notification delivery failed")
)
