package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/dbx"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
)

// SQLRepository stores users in a table shared by the postgres and sqlite
// schemas. Queries use $n placeholders, which both drivers accept.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

// Create inserts user. A duplicate email yields common.ErrorAlreadyExists.
func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, email, salt, verifier, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Salt, user.Verifier, user.CreatedAt.UTC())

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLRepository) GetUserByLogin(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, salt, verifier, created_at FROM users
		 WHERE email = $1
		 `

	user := &models.User{}
	var created dbx.Timestamp
	err := r.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.Salt, &user.Verifier, &created)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.CreatedAt = created.Time

	return user, nil
}
