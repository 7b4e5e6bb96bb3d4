// Package fileio writes output files without ever leaving a partial file
// behind. Data is written to a temporary file in the destination directory
// and published in a single filesystem operation.
package fileio

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/activecm/genhash/errors"
)

// WriteExclusive creates path with data. It fails with errors.ErrOutputExists
// if path already exists, and never replaces an existing file.
func WriteExclusive(path string, data []byte, perm fs.FileMode) error {
	if _, err := os.Lstat(path); err == nil {
		return errors.Wrap(errors.ErrOutputExists, path)
	}

	tmp, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	// link fails with EEXIST if another writer published first
	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return errors.Wrap(errors.ErrOutputExists, path)
		}
		return errors.Wrapf(err, "publish %s", path)
	}
	return nil
}

// WriteAtomic writes data to path, replacing any existing file.
func WriteAtomic(path string, data []byte, perm fs.FileMode) error {
	tmp, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "publish %s", path)
	}
	return nil
}

func writeTemp(path string, data []byte, perm fs.FileMode) (string, error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", errors.Wrapf(err, "create temp file in %s", dir)
	}
	name := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", errors.Wrapf(err, "write %s", name)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", errors.Wrapf(err, "sync %s", name)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", errors.Wrapf(err, "close %s", name)
	}
	if err := os.Chmod(name, perm); err != nil {
		os.Remove(name)
		return "", errors.Wrapf(err, "chmod %s", name)
	}
	return name, nil
}

// Backups is how many rotated copies Backup keeps.
const Backups = 3

// Backup rotates path.back1..path.back3 and copies the current contents of
// path to path.back1. A missing path is not an error.
func Backup(path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read file for backup")
	}

	if err := os.Remove(backupName(path, Backups)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", backupName(path, Backups))
	}
	for i := Backups - 1; i >= 1; i-- {
		from := backupName(path, i)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		if err := os.Rename(from, backupName(path, i+1)); err != nil {
			return errors.Wrapf(err, "rotate %s", from)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "stat file for backup")
	}
	return WriteAtomic(backupName(path, 1), content, info.Mode().Perm())
}

func backupName(path string, n int) string {
	return path + ".back" + string(rune('0'+n))
}
