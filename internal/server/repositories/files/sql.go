package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
)

const selectColumns = `id, owner_id, filename, size_bytes, content_type, uploaded_at, storage_key`

// SQLRepository implements file metadata storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLRepository struct {
	db dbx.DBTX
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

// Create inserts a new record. Ids are never reused, so a collision is
// reported as common.ErrorAlreadyExists.
func (r *SQLRepository) Create(ctx context.Context, file *models.FileRecord) error {
	query := `
		INSERT INTO files (id, owner_id, filename, size_bytes, content_type, uploaded_at, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.OwnerID, file.Filename, file.SizeBytes, file.ContentType, file.UploadedAt.UTC(), file.StorageKey)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the record with the given id regardless of owner.
// Callers enforce ownership.
func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM files WHERE id = $1`

	item, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return item, nil
}

// ListByOwner returns the owner's records, newest upload first.
func (r *SQLRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.FileRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM files
		WHERE owner_id = $1
		ORDER BY uploaded_at DESC, id DESC
		`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := []*models.FileRecord{}
	for rows.Next() {
		item, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the record if it belongs to ownerID. Exactly one row must
// be affected, otherwise common.ErrorNotFound is returned.
func (r *SQLRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM files WHERE id = $1 AND owner_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.FileRecord, error) {
	var (
		item     models.FileRecord
		uploaded dbx.Timestamp
	)
	if err := s.Scan(&item.ID, &item.OwnerID, &item.Filename, &item.SizeBytes, &item.ContentType, &uploaded, &item.StorageKey); err != nil {
		return nil, err
	}
	item.UploadedAt = uploaded.Time
	return &item, nil
}
