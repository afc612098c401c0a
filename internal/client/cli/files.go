package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dmitrijs2005/securecloud/internal/client/client"
	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/dmitrijs2005/securecloud/internal/filex"
	"github.com/dustin/go-humanize"
)

// getKey is a test seam for the no-echo key prompt.
var getKey = GetSecret

var errKeyMismatch = errors.New("encryption keys do not match")

// List prints the caller's files, newest first.
func (a *App) List(ctx context.Context) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	files, err := a.api.List(ctx, s)
	if err != nil {
		return a.checkAuth(err)
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tTYPE\tUPLOADED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.Filename, humanize.IBytes(uint64(f.FileSize)), f.ContentType, humanize.Time(f.UploadedDate))
	}
	return tw.Flush()
}

// Upload sends the file at args[0]. The encryption key is asked twice
// because a mistyped key makes the file unrecoverable.
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: upload <path> [content-type]")
	}
	s, err := a.requireSession()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory", args[0])
	}

	key, err := a.readKey(true)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	contentType := mime.TypeByExtension(filepath.Ext(fi.Name()))
	if len(args) > 1 {
		contentType = args[1]
	}

	id, err := a.api.Upload(ctx, s, client.UploadInput{
		Filename:    fi.Name(),
		ContentType: contentType,
		Size:        fi.Size(),
		Body:        f,
		Key:         string(key),
	})
	if err != nil {
		return a.checkAuth(err)
	}

	fmt.Fprintf(a.out, "File uploaded successfully! id=%s\n", id)
	return nil
}

// Download fetches args[0] into args[1], or into the download directory
// under the server-side filename. A partial file is removed on failure.
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: download <id> [destination]")
	}
	s, err := a.requireSession()
	if err != nil {
		return err
	}

	key, err := a.readKey(false)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	d, err := a.api.Download(ctx, s, args[0], string(key))
	if err != nil {
		return a.checkAuth(err)
	}
	defer d.Body.Close()

	out, err := a.createOutput(args[1:], d.Filename)
	if err != nil {
		return err
	}

	n, err := io.Copy(out, d.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out.Name())
		return fmt.Errorf("download interrupted, nothing saved: %w", err)
	}

	fmt.Fprintf(a.out, "Saved %s (%s)\n", out.Name(), humanize.IBytes(uint64(n)))
	return nil
}

func (a *App) createOutput(dest []string, filename string) (*os.File, error) {
	if len(dest) == 0 {
		dir, err := filex.EnsureSubdDir(a.config.DownloadDir)
		if err != nil {
			return nil, err
		}
		return filex.CreateUnique(dir, filename)
	}
	if fi, err := os.Stat(dest[0]); err == nil && fi.IsDir() {
		return filex.CreateUnique(dest[0], filename)
	}
	return os.OpenFile(dest[0], os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
}

// Delete removes args[0] from the server.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: rm <id>")
	}
	s, err := a.requireSession()
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.api.Delete(ctx, s, args[0]); err != nil {
		return a.checkAuth(err)
	}
	fmt.Fprintln(a.out, "File deleted")
	return nil
}

// readKey prompts for the encryption key and checks its format locally.
func (a *App) readKey(confirm bool) ([]byte, error) {
	key, err := getKey(a.out, "Enter encryption key (64 hex or 32 characters): ")
	if err != nil {
		return nil, err
	}
	parsed, err := cryptox.ParseKey(string(key))
	if err != nil {
		common.WipeByteArray(key)
		return nil, err
	}
	parsed.Wipe()

	if confirm {
		again, err := getKey(a.out, "Repeat encryption key: ")
		if err != nil {
			common.WipeByteArray(key)
			return nil, err
		}
		defer common.WipeByteArray(again)
		if !bytes.Equal(key, again) {
			common.WipeByteArray(key)
			return nil, errKeyMismatch
		}
	}
	return key, nil
}
