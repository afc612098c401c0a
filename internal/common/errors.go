// Package common defines shared constants and sentinel errors used across
// the SecureCloud server and client. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrValidation marks malformed or missing input, including a badly
	// shaped encryption key.
	ErrValidation = errors.New("validation error")

	// ErrDuplicateUser is returned when registering an email that is taken.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password; the two cases are never told apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrWrongKeyOrCorruptData is the single outcome of a failed
	// authenticated decryption. A wrong key and tampered ciphertext are
	// indistinguishable.
	ErrWrongKeyOrCorruptData = errors.New("wrong key or corrupt data")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
