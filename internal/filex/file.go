// Package filex holds file helpers for the client: resolving the download
// directory and creating output files without clobbering existing ones.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxCollisions bounds the "name (n).ext" probing in CreateUnique.
const maxCollisions = 1000

// EnsureSubdDir makes sure dirName exists and returns its absolute path.
// Relative names are resolved against the working directory.
func EnsureSubdDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SafeBaseName reduces a server-supplied filename to a single path element
// so it cannot point outside the target directory.
func SafeBaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.FromSlash(name))
	switch name {
	case ".", "..", string(filepath.Separator), "":
		return "download"
	}
	return name
}

// CreateUnique creates a new file for name inside dir. If the name is taken
// it tries "name (1).ext", "name (2).ext" and so on.
func CreateUnique(dir, name string) (*os.File, error) {
	name = SafeBaseName(name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxCollisions; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no free name for %s in %s", name, dir)
}
