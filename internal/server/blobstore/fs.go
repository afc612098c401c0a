package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/common"
)

const stagingDir = ".staging"

// FSStore keeps blobs as files below a root directory. Staged blobs live in
// root/.staging and are renamed into place on commit.
type FSStore struct {
	root string
	now  func() time.Time
}

func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(filepath.Join(root, stagingDir), 0o700); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FSStore{root: root, now: time.Now}, nil
}

func (s *FSStore) Stage(ctx context.Context) (Staged, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(filepath.Join(s.root, stagingDir), "blob-*")
	if err != nil {
		return nil, fmt.Errorf("create staged blob: %w", err)
	}
	return &fsStaged{store: s, file: f, key: NewStorageKey(s.now())}, nil
}

func (s *FSStore) path(key string) (string, error) {
	if !validKey(key) {
		return "", common.ErrorNotFound
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

type fsStaged struct {
	store *FSStore
	file  *os.File
	key   string
	done  bool
}

func (b *fsStaged) Key() string { return b.key }

func (b *fsStaged) Write(p []byte) (int, error) {
	if b.done {
		return 0, os.ErrClosed
	}
	return b.file.Write(p)
}

func (b *fsStaged) Commit(ctx context.Context) error {
	if b.done {
		return errors.New("blob already finished")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.done = true
	tmp := b.file.Name()

	if err := b.file.Sync(); err != nil {
		_ = b.file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync staged blob: %w", err)
	}
	if err := b.file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close staged blob: %w", err)
	}

	final, err := b.store.path(b.key)
	if err == nil {
		err = os.MkdirAll(filepath.Dir(final), 0o700)
	}
	if err == nil {
		err = os.Rename(tmp, final)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit blob: %w", err)
	}
	return nil
}

func (b *fsStaged) Abort() error {
	if b.done {
		return nil
	}
	b.done = true
	_ = b.file.Close()
	if err := os.Remove(b.file.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staged blob: %w", err)
	}
	return nil
}
