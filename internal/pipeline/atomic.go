package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// WriteFileAtomic replaces path with data through a scratch file in the same
// directory, so a reader of path sees the old document or the new one and a
// failed run leaves the old one in place. Symlinks and directories are not
// valid targets.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("output path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	switch info, err := os.Lstat(abs); {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("stat %s: %w", abs, err)
	case info.Mode()&fs.ModeSymlink != 0:
		return fmt.Errorf("refusing symlinked file target: %s", abs)
	case info.IsDir():
		return fmt.Errorf("refusing directory write target: %s", abs)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".informes-tmp-*")
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	if err := fill(tmp, data, perm); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", abs, err)
	}
	return nil
}

// fill writes, chmods and syncs f, closing it in every case.
func fill(f *os.File, data []byte, perm os.FileMode) error {
	_, err := f.Write(data)
	if err == nil {
		err = f.Chmod(perm)
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write scratch file: %w", err)
	}
	return nil
}
