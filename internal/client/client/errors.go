package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUser     = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrWrongKey          = errors.New("incorrect decryption key or corrupted file")
	ErrValidation        = errors.New("validation error")
)

// APIError is a non-2xx reply decoded from the server's error body.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

// Is lets callers match an APIError against the package sentinels.
func (e *APIError) Is(target error) bool {
	switch e.Kind {
	case "unauthorized":
		return target == ErrUnauthorized
	case "not_found":
		return target == ErrNotFound
	case "duplicate_user":
		return target == ErrDuplicateUser
	case "invalid_credentials":
		return target == ErrInvalidCredential
	case "wrong_key_or_corrupt_data":
		return target == ErrWrongKey
	case "validation_error":
		return target == ErrValidation
	}
	return false
}
