package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/blobstore"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	// DefaultContentType is stored when the client sends none.
	DefaultContentType = "application/octet-stream"
	maxFilenameLen     = 255
)

// UnknownSize marks an UploadRequest without a declared size.
const UnknownSize int64 = -1

// UploadRequest is a validated upload handed over by the transport.
type UploadRequest struct {
	OwnerID      string
	Filename     string
	ContentType  string
	DeclaredSize int64
	Body         io.Reader
	Key          cryptox.Key
}

// Download is an authenticated plaintext stream and the record it belongs
// to. Body must be closed.
type Download struct {
	Record *models.FileRecord
	Body   io.ReadCloser
}

// FileService owns the encrypt/store and load/decrypt pipelines.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	log         logging.Logger
	maxUpload   int64
	chunkSize   int
	now         func() time.Time
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store, maxUpload int64, log logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		log:         log.With("module", "files"),
		maxUpload:   maxUpload,
		chunkSize:   cryptox.DefaultChunkSize,
		now:         time.Now,
	}
}

// ValidateFilename checks a client supplied display name.
func ValidateFilename(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: filename is required", common.ErrValidation)
	case len(name) > maxFilenameLen:
		return fmt.Errorf("%w: filename is too long", common.ErrValidation)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: filename is not valid UTF-8", common.ErrValidation)
	case name == "." || name == "..":
		return fmt.Errorf("%w: invalid filename", common.ErrValidation)
	}
	for _, r := range name {
		if unicode.IsControl(r) || r == '/' || r == '\\' {
			return fmt.Errorf("%w: filename contains forbidden characters", common.ErrValidation)
		}
	}
	return nil
}

// NormalizeContentType returns the canonical form of ct, or the default
// for an empty value.
func NormalizeContentType(ct string) (string, error) {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return DefaultContentType, nil
	}
	mt, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", fmt.Errorf("%w: invalid content type", common.ErrValidation)
	}
	return mime.FormatMediaType(mt, params), nil
}

var errTooLarge = errors.New("upload exceeds size limit")

// uploadReader enforces the size limit and remembers failures of the client
// side of the stream, which are not server errors.
type uploadReader struct {
	r     io.Reader
	limit int64
	n     int64
	err   error
}

func (u *uploadReader) Read(p []byte) (int, error) {
	n, err := u.r.Read(p)
	u.n += int64(n)
	if u.n > u.limit {
		u.err = errTooLarge
		return n, errTooLarge
	}
	if err != nil && !errors.Is(err, io.EOF) {
		u.err = err
	}
	return n, err
}

// Upload encrypts req.Body into a staged blob, commits it, then records it.
// Nothing is left behind when any step fails.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (*models.FileRecord, error) {
	if err := ValidateFilename(req.Filename); err != nil {
		return nil, err
	}
	contentType, err := NormalizeContentType(req.ContentType)
	if err != nil {
		return nil, err
	}
	if req.DeclaredSize > s.maxUpload {
		return nil, fmt.Errorf("%w: file is too large", common.ErrValidation)
	}
	if req.Body == nil {
		return nil, fmt.Errorf("%w: file is required", common.ErrValidation)
	}

	staged, err := s.blobs.Stage(ctx)
	if err != nil {
		s.log.Error(ctx, "stage blob failed", "error", err)
		return nil, common.ErrorInternal
	}
	committed := false
	defer func() {
		if !committed {
			if err := staged.Abort(); err != nil {
				s.log.Warn(ctx, "abort staged blob failed", "storage_key", staged.Key(), "error", err)
			}
		}
	}()

	body := &uploadReader{r: req.Body, limit: s.maxUpload}
	n, err := cryptox.Encrypt(staged, body, req.Key, s.chunkSize)
	if err != nil {
		switch {
		case errors.Is(err, errTooLarge):
			return nil, fmt.Errorf("%w: file is too large", common.ErrValidation)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case body.err != nil:
			s.log.Info(ctx, "upload interrupted", "error", body.err)
			return nil, fmt.Errorf("%w: upload interrupted", common.ErrValidation)
		}
		s.log.Error(ctx, "write blob failed", "error", err)
		return nil, common.ErrorInternal
	}
	if body.err != nil {
		s.log.Info(ctx, "upload interrupted", "error", body.err)
		return nil, fmt.Errorf("%w: upload interrupted", common.ErrValidation)
	}
	if req.DeclaredSize != UnknownSize && n != req.DeclaredSize {
		return nil, fmt.Errorf("%w: declared size %d does not match received %d bytes", common.ErrValidation, req.DeclaredSize, n)
	}

	if err := staged.Commit(ctx); err != nil {
		s.log.Error(ctx, "commit blob failed", "error", err)
		return nil, common.ErrorInternal
	}
	committed = true

	rec := &models.FileRecord{
		ID:          uuid.NewString(),
		OwnerID:     req.OwnerID,
		Filename:    req.Filename,
		SizeBytes:   n,
		ContentType: contentType,
		UploadedAt:  s.now().UTC().Truncate(time.Microsecond),
		StorageKey:  staged.Key(),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Files(tx).Create(ctx, rec)
	})
	if err != nil {
		s.log.Error(ctx, "create file record failed", "error", err)
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), rec.StorageKey); derr != nil {
			s.log.Error(ctx, "delete orphan blob failed", "storage_key", rec.StorageKey, "error", derr)
		}
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "file stored", "file_id", rec.ID, "owner_id", rec.OwnerID, "size", n)
	return rec, nil
}

// lookup returns the record when it exists and belongs to ownerID. Foreign
// and malformed ids are indistinguishable from unknown ones.
func (s *FileService) lookup(ctx context.Context, db dbx.DBTX, ownerID, fileID string) (*models.FileRecord, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, common.ErrorNotFound
	}
	rec, err := s.repomanager.Files(db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.log.Error(ctx, "load file record failed", "error", err)
		return nil, common.ErrorInternal
	}
	if rec.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return rec, nil
}

// Download authenticates the header and first chunk of the blob with key
// before returning, so a wrong key fails with ErrWrongKeyOrCorruptData
// before any plaintext is produced.
func (s *FileService) Download(ctx context.Context, requesterID, fileID string, key cryptox.Key) (*Download, error) {
	rec, err := s.lookup(ctx, s.db, requesterID, fileID)
	if err != nil {
		return nil, err
	}

	blob, err := s.blobs.Open(ctx, rec.StorageKey)
	if err != nil {
		s.log.Error(ctx, "open blob failed", "file_id", rec.ID, "error", err)
		return nil, common.ErrorInternal
	}

	r, err := cryptox.NewReader(blob, key)
	if err != nil {
		_ = blob.Close()
		if errors.Is(err, cryptox.ErrAuthFailed) {
			s.log.Info(ctx, "decryption rejected", "file_id", rec.ID)
			return nil, common.ErrWrongKeyOrCorruptData
		}
		s.log.Error(ctx, "read blob failed", "file_id", rec.ID, "error", err)
		return nil, common.ErrorInternal
	}

	return &Download{Record: rec, Body: &plaintext{r: r, blob: blob}}, nil
}

// plaintext maps authentication failures in later chunks to
// ErrWrongKeyOrCorruptData.
type plaintext struct {
	r    *cryptox.Reader
	blob io.Closer
}

func (p *plaintext) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if errors.Is(err, cryptox.ErrAuthFailed) {
		err = common.ErrWrongKeyOrCorruptData
	}
	return n, err
}

func (p *plaintext) Close() error { return p.blob.Close() }

// List returns the owner's records, newest first.
func (s *FileService) List(ctx context.Context, ownerID string) ([]*models.FileRecord, error) {
	recs, err := s.repomanager.Files(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		s.log.Error(ctx, "list files failed", "error", err)
		return nil, common.ErrorInternal
	}
	return recs, nil
}

// Delete removes the record and its blob. The record deletion is rolled back
// when the blob cannot be removed.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := s.lookup(ctx, tx, ownerID, fileID)
		if err != nil {
			return err
		}
		if err := s.repomanager.Files(tx).Delete(ctx, rec.ID, ownerID); err != nil {
			return err
		}
		if err := s.blobs.Delete(ctx, rec.StorageKey); err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("delete blob: %w", err)
			}
			s.log.Warn(ctx, "blob already gone", "file_id", rec.ID)
		}
		return nil
	})
	switch {
	case err == nil:
		s.log.Info(ctx, "file deleted", "file_id", fileID, "owner_id", ownerID)
		return nil
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrorNotFound
	case errors.Is(err, common.ErrorInternal):
		return err
	default:
		s.log.Error(ctx, "delete file failed", "error", err)
		return common.ErrorInternal
	}
}
