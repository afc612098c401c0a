package client

import (
	"context"
	"io"
	"time"
)

// Client is the API surface the CLI depends on.
type Client interface {
	Register(ctx context.Context, email string, password []byte) (string, error)
	Login(ctx context.Context, email string, password []byte) (*Session, error)
	List(ctx context.Context, s *Session) ([]FileInfo, error)
	Upload(ctx context.Context, s *Session, in UploadInput) (string, error)
	Download(ctx context.Context, s *Session, fileID, key string) (*Download, error)
	Delete(ctx context.Context, s *Session, fileID string) error
}

// Session is the authenticated state returned by Login. The zero value
// is logged out.
type Session struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Active reports whether s holds a token that has not expired at now.
func (s *Session) Active(now time.Time) bool {
	return s != nil && s.Token != "" && now.Before(s.ExpiresAt)
}

// Clear drops the token; the session is logged out afterwards.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	*s = Session{}
}

// FileInfo is one entry of the file listing.
type FileInfo struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	FileSize     int64     `json:"fileSize"`
	ContentType  string    `json:"contentType"`
	UploadedBy   string    `json:"uploadedBy"`
	UploadedDate time.Time `json:"uploadedDate"`
}

// UnknownSize leaves the fileSize field out of an upload.
const UnknownSize = -1

type UploadInput struct {
	Filename    string
	ContentType string
	// Size is the plaintext length, or UnknownSize.
	Size int64
	Body io.Reader
	Key  string
}

// Download is a decrypted file stream. The caller must close Body.
type Download struct {
	Filename    string
	ContentType string
	// Size is -1 when the server did not send Content-Length.
	Size int64
	Body io.ReadCloser
}
