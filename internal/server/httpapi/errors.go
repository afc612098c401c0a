package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/securecloud/internal/common"
)

// Error kinds returned in the "kind" field of every error body.
const (
	KindValidation         = "validation_error"
	KindDuplicateUser      = "duplicate_user"
	KindInvalidCredentials = "invalid_credentials"
	KindUnauthorized       = "unauthorized"
	KindNotFound           = "not_found"
	KindWrongKey           = "wrong_key_or_corrupt_data"
	KindServerError        = "server_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorMapping struct {
	target  error
	status  int
	kind    string
	message string
}

// Order matters: ErrTokenExpired wraps together with ErrorUnauthorized and
// needs its own message.
var errorTable = []errorMapping{
	{common.ErrTokenExpired, http.StatusUnauthorized, KindUnauthorized, "Token expired."},
	{common.ErrorUnauthorized, http.StatusUnauthorized, KindUnauthorized, "Invalid token."},
	{common.ErrDuplicateUser, http.StatusBadRequest, KindDuplicateUser, "Email already exists"},
	{common.ErrInvalidCredentials, http.StatusBadRequest, KindInvalidCredentials, "Invalid credentials"},
	{common.ErrWrongKeyOrCorruptData, http.StatusBadRequest, KindWrongKey, "Incorrect decryption key or corrupted file"},
	{common.ErrorNotFound, http.StatusNotFound, KindNotFound, "File not found"},
	{common.ErrValidation, http.StatusBadRequest, KindValidation, ""},
}

// classify maps err to a status and body. Validation errors keep their
// detail message; everything unrecognised becomes a generic server error.
func classify(err error) (int, ErrorResponse) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": ")
			}
			return m.status, ErrorResponse{Kind: m.kind, Message: msg}
		}
	}
	if errors.Is(err, context.Canceled) {
		return 499, ErrorResponse{Kind: KindServerError, Message: "Request cancelled"}
	}
	return http.StatusInternalServerError, ErrorResponse{Kind: KindServerError, Message: "Internal server error"}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	respondJSON(w, status, body)
}

func validationError(msg string) error {
	return &detailedError{base: common.ErrValidation, msg: msg}
}

// detailedError carries a client-facing message for a sentinel.
type detailedError struct {
	base error
	msg  string
}

func (e *detailedError) Error() string { return e.msg }
func (e *detailedError) Unwrap() error { return e.base }
