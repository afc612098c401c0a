package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/auth"
	"github.com/dmitrijs2005/securecloud/internal/server/blobstore"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// fastHasher keeps argon2id cheap in tests.
var fastHasher = cryptox.PasswordHasher{Time: 1, MemoryKiB: 1024, Threads: 1, KeyLen: 32}

type env struct {
	db      *sql.DB
	rm      repomanager.RepositoryManager
	blobDir string
	blobs   *blobstore.FSStore
	users   *UserService
	files   *FileService
}

// newEnv wires both services over an in-memory sqlite database and a
// temporary blob directory.
func newEnv(t *testing.T) *env {
	t.Helper()

	db, rm, err := repomanager.Open(context.Background(), "sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir := t.TempDir()
	blobs, err := blobstore.NewFSStore(dir)
	require.NoError(t, err)

	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)

	return &env{
		db:      db,
		rm:      rm,
		blobDir: dir,
		blobs:   blobs,
		users:   NewUserService(db, rm, fastHasher, tokens, logging.Nop{}),
		files:   NewFileService(db, rm, blobs, 1<<20, logging.Nop{}),
	}
}

func (e *env) register(t *testing.T, email string) string {
	t.Helper()
	u, err := e.users.Register(context.Background(), email, "correct horse")
	require.NoError(t, err)
	return u.ID
}

func mustKey(t *testing.T, s string) cryptox.Key {
	t.Helper()
	k, err := cryptox.ParseKey(s)
	require.NoError(t, err)
	return k
}
