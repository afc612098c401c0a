package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/client/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func stubKeys(t *testing.T, keys ...string) {
	t.Helper()
	orig := getKey
	i := 0
	getKey = func(io.Writer, string) ([]byte, error) {
		if i >= len(keys) {
			return nil, errors.New("no more keys")
		}
		k := []byte(keys[i])
		i++
		return k, nil
	}
	t.Cleanup(func() { getKey = orig })
}

type failingBody struct{ data []byte }

func (f *failingBody) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, errors.New("stream reset")
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func (f *failingBody) Close() error { return nil }

func TestList(t *testing.T) {
	api := &fakeAPI{listOut: []client.FileInfo{
		{ID: "id-1", Filename: "hello.txt", FileSize: 2048, ContentType: "text/plain", UploadedDate: time.Now()},
	}}
	var out bytes.Buffer
	a := newTestApp(api, activeSession(), &out)

	require.NoError(t, a.List(context.Background()))
	assert.Contains(t, out.String(), "hello.txt")
	assert.Contains(t, out.String(), "2.0 KiB")
	assert.Contains(t, out.String(), "id-1")
}

func TestList_Empty(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(&fakeAPI{}, activeSession(), &out)

	require.NoError(t, a.List(context.Background()))
	assert.Contains(t, out.String(), "No files")
}

func TestCommands_RequireLogin(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(&fakeAPI{}, nil, &out)
	ctx := context.Background()

	assert.ErrorIs(t, a.List(ctx), client.ErrNotLoggedIn)
	assert.ErrorIs(t, a.Upload(ctx, []string{"x"}), client.ErrNotLoggedIn)
	assert.ErrorIs(t, a.Download(ctx, []string{"x"}), client.ErrNotLoggedIn)
	assert.ErrorIs(t, a.Delete(ctx, []string{"x"}), client.ErrNotLoggedIn)
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello, vlt"), 0o600))

	stubKeys(t, testKey, testKey)
	api := &fakeAPI{upID: "new-id"}
	var out bytes.Buffer
	a := newTestApp(api, activeSession(), &out)

	require.NoError(t, a.Upload(context.Background(), []string{path}))
	assert.Equal(t, "notes.txt", api.upIn.Filename)
	assert.Equal(t, int64(10), api.upIn.Size)
	assert.Equal(t, testKey, api.upIn.Key)
	assert.Contains(t, api.upIn.ContentType, "text/plain")
	assert.Equal(t, "hello, vlt", string(api.upContent))
	assert.Contains(t, out.String(), "new-id")
}

func TestUpload_KeyProblems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(path, []byte{1}, 0o600))

	t.Run("mismatch", func(t *testing.T) {
		stubKeys(t, testKey, "a very secret thirty-two byte k!")
		api := &fakeAPI{}
		var out bytes.Buffer
		a := newTestApp(api, activeSession(), &out)

		assert.ErrorIs(t, a.Upload(context.Background(), []string{path}), errKeyMismatch)
		assert.Empty(t, api.upIn.Filename, "nothing sent")
	})

	t.Run("bad format", func(t *testing.T) {
		stubKeys(t, "short")
		var out bytes.Buffer
		a := newTestApp(&fakeAPI{}, activeSession(), &out)

		err := a.Upload(context.Background(), []string{path})
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "short")
	})
}

func TestUpload_BadArgs(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(&fakeAPI{}, activeSession(), &out)

	assert.Error(t, a.Upload(context.Background(), nil))
	assert.Error(t, a.Upload(context.Background(), []string{filepath.Join(t.TempDir(), "missing")}))
	assert.Error(t, a.Upload(context.Background(), []string{t.TempDir()}))
}

func TestDownload_ToDownloadDir(t *testing.T) {
	stubKeys(t, testKey)
	api := &fakeAPI{downOut: &client.Download{
		Filename: "../report.pdf",
		Body:     io.NopCloser(bytes.NewReader([]byte("%PDF"))),
	}}
	var out bytes.Buffer
	a := newTestApp(api, activeSession(), &out)
	a.config.DownloadDir = t.TempDir()

	require.NoError(t, a.Download(context.Background(), []string{"id-1"}))
	assert.Equal(t, "id-1", api.downID)
	assert.Equal(t, testKey, api.downKey)

	got, err := os.ReadFile(filepath.Join(a.config.DownloadDir, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(got))
}

func TestDownload_ExplicitDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.bin")

	stubKeys(t, testKey)
	api := &fakeAPI{downOut: &client.Download{Filename: "x", Body: io.NopCloser(bytes.NewReader([]byte("abc")))}}
	var out bytes.Buffer
	a := newTestApp(api, activeSession(), &out)

	require.NoError(t, a.Download(context.Background(), []string{"id-1", dest}))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	stubKeys(t, testKey)
	api.downOut = &client.Download{Filename: "x", Body: io.NopCloser(bytes.NewReader([]byte("new")))}
	assert.Error(t, a.Download(context.Background(), []string{"id-1", dest}), "existing file is not overwritten")
}

func TestDownload_InterruptedLeavesNoFile(t *testing.T) {
	dir := t.TempDir()

	stubKeys(t, testKey)
	api := &fakeAPI{downOut: &client.Download{Filename: "big.bin", Body: &failingBody{data: []byte("partial")}}}
	var out bytes.Buffer
	a := newTestApp(api, activeSession(), &out)

	err := a.Download(context.Background(), []string{"id-1", dir})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownload_WrongKey(t *testing.T) {
	stubKeys(t, testKey)
	api := &fakeAPI{downErr: &client.APIError{Status: 400, Kind: "wrong_key_or_corrupt_data", Message: "Incorrect decryption key or corrupted file"}}
	var out bytes.Buffer
	a := newTestApp(api, activeSession(), &out)

	err := a.Download(context.Background(), []string{"id-1"})
	assert.ErrorIs(t, err, client.ErrWrongKey)
}

func TestDelete(t *testing.T) {
	api := &fakeAPI{}
	var out bytes.Buffer
	a := newTestApp(api, activeSession(), &out)

	require.NoError(t, a.Delete(context.Background(), []string{"id-9"}))
	assert.Equal(t, "id-9", api.delID)
	assert.Contains(t, out.String(), "File deleted")

	assert.Error(t, a.Delete(context.Background(), nil))
}
