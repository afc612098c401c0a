package httpapi

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/dmitrijs2005/securecloud/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const (
	maxFieldBytes = 4 << 10
	// room for multipart framing and the text fields around the file part
	multipartOverhead = 1 << 20
)

type fileResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	FileSize     int64     `json:"fileSize"`
	ContentType  string    `json:"contentType"`
	UploadedBy   string    `json:"uploadedBy"`
	UploadedDate time.Time `json:"uploadedDate"`
}

type downloadRequest struct {
	EncryptionKey string `json:"encryption_key"`
}

// listFiles handles GET /api/files
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	recs, err := s.files.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]fileResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fileResponse{
			ID:           rec.ID,
			Filename:     rec.Filename,
			FileSize:     rec.SizeBytes,
			ContentType:  rec.ContentType,
			UploadedBy:   rec.OwnerID,
			UploadedDate: rec.UploadedAt.UTC(),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// upload handles POST /api/upload. The body is a streamed multipart form
// whose text fields must come before the "file" part.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, r, validationError("expected a multipart/form-data body"))
		return
	}

	fields := map[string]string{}
	var filePart *multipart.Part
	for filePart == nil {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.writeError(w, r, validationError("malformed multipart body"))
			return
		}

		switch name := part.FormName(); name {
		case "file":
			filePart = part
		case common.EncryptionKeyField, "filename", "fileSize", "contentType":
			v, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			if err != nil || len(v) > maxFieldBytes {
				s.writeError(w, r, validationError("field "+name+" is too large or unreadable"))
				return
			}
			fields[name] = string(v)
		default:
			_, _ = io.Copy(io.Discard, part)
		}
	}

	if filePart == nil {
		s.writeError(w, r, validationError("No file uploaded"))
		return
	}
	defer filePart.Close()

	rawKey, ok := fields[common.EncryptionKeyField]
	if !ok {
		s.writeError(w, r, validationError("encryption_key must be sent before the file part"))
		return
	}
	key, err := cryptox.ParseKey(rawKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer key.Wipe()

	filename := fields["filename"]
	if filename == "" {
		filename = filePart.FileName()
	}
	contentType := fields["contentType"]
	if contentType == "" {
		contentType = filePart.Header.Get("Content-Type")
	}

	declared := services.UnknownSize
	if v := strings.TrimSpace(fields["fileSize"]); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			s.writeError(w, r, validationError("fileSize must be a non-negative integer"))
			return
		}
		declared = n
	}

	rec, err := s.files.Upload(r.Context(), services.UploadRequest{
		OwnerID:      userID,
		Filename:     filename,
		ContentType:  contentType,
		DeclaredSize: declared,
		Body:         filePart,
		Key:          key,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "File uploaded successfully!", ID: rec.ID})
}

// downloadKey extracts encryption_key from a JSON, urlencoded or multipart
// body.
func downloadKey(w http.ResponseWriter, r *http.Request) (string, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		var req downloadRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return "", err
		}
		return req.EncryptionKey, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxJSONBody); err != nil {
			return "", validationError("malformed multipart body")
		}
	} else if err := r.ParseForm(); err != nil {
		return "", validationError("malformed form body")
	}
	return r.PostFormValue(common.EncryptionKeyField), nil
}

// download handles POST /api/download/{fileId}
func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	fileID := chi.URLParam(r, "fileId")

	rawKey, err := downloadKey(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	key, err := cryptox.ParseKey(rawKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer key.Wipe()

	d, err := s.files.Download(r.Context(), userID, fileID, key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer d.Body.Close()

	h := w.Header()
	h.Set("Content-Type", d.Record.ContentType)
	h.Set("Content-Disposition", contentDisposition(d.Record.Filename))
	h.Set("Content-Length", strconv.FormatInt(d.Record.SizeBytes, 10))
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, d.Body); err != nil {
		s.log.Warn(r.Context(), "download aborted", "file_id", fileID, "error", err)
		// headers are gone; only a broken connection tells the client
		panic(http.ErrAbortHandler)
	}
}

// contentDisposition builds an attachment header; non-ASCII names are
// emitted as RFC 2231 filename*.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// deleteFile handles DELETE /api/files/{fileId}
func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if err := s.files.Delete(r.Context(), userID, chi.URLParam(r, "fileId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "File deleted"})
}
