package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMissingToken       = errors.New("missing token")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("invalid_password")
	ErrSigningKeyMissing  = errors.New("signing key not configured")
)
