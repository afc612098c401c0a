package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/common"
)

const maxErrorBody = 64 << 10

// HTTPClient talks to the SecureCloud HTTP API at a base URL such as
// "http://127.0.0.1:8080".
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient returns a client for baseURL. A nil hc uses a client
// without an overall timeout so large transfers are not cut off.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageReply struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type loginReply struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Register creates an account and returns the new user id.
func (c *HTTPClient) Register(ctx context.Context, email string, password []byte) (string, error) {
	var reply messageReply
	err := c.doJSON(ctx, http.MethodPost, "/api/register", nil, credentials{Email: email, Password: string(password)}, &reply)
	if err != nil {
		return "", err
	}
	return reply.ID, nil
}

// Login exchanges credentials for a Session.
func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (*Session, error) {
	var reply loginReply
	err := c.doJSON(ctx, http.MethodPost, "/api/login", nil, credentials{Email: email, Password: string(password)}, &reply)
	if err != nil {
		return nil, err
	}
	return &Session{Email: email, Token: reply.Token, ExpiresAt: reply.ExpiresAt}, nil
}

func (c *HTTPClient) List(ctx context.Context, s *Session) ([]FileInfo, error) {
	if err := checkSession(s); err != nil {
		return nil, err
	}
	var files []FileInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/files", s, nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// Upload streams in.Body to the server and returns the new file id. The
// key and metadata fields are written before the file part.
func (c *HTTPClient) Upload(ctx context.Context, s *Session, in UploadInput) (string, error) {
	if err := checkSession(s); err != nil {
		return "", err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUpload(mw, in))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", pr)
	if err != nil {
		_ = pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	authorize(req, s)

	var reply messageReply
	if err := c.do(req, &reply); err != nil {
		return "", err
	}
	return reply.ID, nil
}

func writeUpload(mw *multipart.Writer, in UploadInput) error {
	fields := [][2]string{
		{common.EncryptionKeyField, in.Key},
		{"filename", in.Filename},
	}
	if in.ContentType != "" {
		fields = append(fields, [2]string{"contentType", in.ContentType})
	}
	if in.Size >= 0 {
		fields = append(fields, [2]string{"fileSize", strconv.FormatInt(in.Size, 10)})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": in.Filename}))
	ct := in.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, in.Body); err != nil {
		return fmt.Errorf("read %s: %w", in.Filename, err)
	}
	return mw.Close()
}

// Download asks the server to decrypt fileID with key. Headers arrive only
// after the first chunk authenticated; a failure later in the file shows
// up as a read error on Body.
func (c *HTTPClient) Download(ctx context.Context, s *Session, fileID, key string) (*Download, error) {
	if err := checkSession(s); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{common.EncryptionKeyField: key})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/download/"+url.PathEscape(fileID), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	authorize(req, s)

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	d := &Download{
		Filename:    fileID,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		d.Filename = params["filename"]
	}
	return d, nil
}

func (c *HTTPClient) Delete(ctx context.Context, s *Session, fileID string) error {
	if err := checkSession(s); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(fileID), s, nil, nil)
}

func checkSession(s *Session) error {
	if s == nil || s.Token == "" {
		return ErrNotLoggedIn
	}
	return nil
}

func authorize(req *http.Request, s *Session) {
	if s != nil {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+s.Token)
	}
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, s *Session, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	authorize(req, s)
	return c.do(req, out)
}

// do sends req and decodes a 2xx JSON body into out (if non-nil).
func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err == nil {
		apiErr.Kind = body.Kind
		apiErr.Message = body.Message
	}
	if apiErr.Kind == "" && resp.StatusCode == http.StatusUnauthorized {
		apiErr.Kind = "unauthorized"
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}

// IsAPIError reports whether err came from a server reply rather than the
// transport.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
