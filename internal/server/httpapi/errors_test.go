package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   ErrorResponse
	}{
		{
			name:   "expired token",
			err:    fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrTokenExpired),
			status: http.StatusUnauthorized,
			want:   ErrorResponse{Kind: KindUnauthorized, Message: "Token expired."},
		},
		{
			name:   "invalid token",
			err:    fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken),
			status: http.StatusUnauthorized,
			want:   ErrorResponse{Kind: KindUnauthorized, Message: "Invalid token."},
		},
		{
			name:   "duplicate user",
			err:    common.ErrDuplicateUser,
			status: http.StatusBadRequest,
			want:   ErrorResponse{Kind: KindDuplicateUser, Message: "Email already exists"},
		},
		{
			name:   "wrong key",
			err:    fmt.Errorf("download: %w", common.ErrWrongKeyOrCorruptData),
			status: http.StatusBadRequest,
			want:   ErrorResponse{Kind: KindWrongKey, Message: "Incorrect decryption key or corrupted file"},
		},
		{
			name:   "not found",
			err:    common.ErrorNotFound,
			status: http.StatusNotFound,
			want:   ErrorResponse{Kind: KindNotFound, Message: "File not found"},
		},
		{
			name:   "wrapped validation keeps detail",
			err:    fmt.Errorf("%w: filename is required", common.ErrValidation),
			status: http.StatusBadRequest,
			want:   ErrorResponse{Kind: KindValidation, Message: "filename is required"},
		},
		{
			name:   "handler validation",
			err:    validationError("No file uploaded"),
			status: http.StatusBadRequest,
			want:   ErrorResponse{Kind: KindValidation, Message: "No file uploaded"},
		},
		{
			name:   "cancelled",
			err:    context.Canceled,
			status: 499,
			want:   ErrorResponse{Kind: KindServerError, Message: "Request cancelled"},
		},
		{
			name:   "internal detail hidden",
			err:    errors.New("pq: connection refused to 10.0.0.5"),
			status: http.StatusInternalServerError,
			want:   ErrorResponse{Kind: KindServerError, Message: "Internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.want, body)
		})
	}
}
