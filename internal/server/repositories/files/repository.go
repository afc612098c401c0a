package files

import (
	"context"

	"github.com/dmitrijs2005/securecloud/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.FileRecord) error
	GetByID(ctx context.Context, id string) (*models.FileRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.FileRecord, error)
	Delete(ctx context.Context, id, ownerID string) error
}
