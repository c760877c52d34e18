// Package fileutil holds the small filesystem primitives the list writer and
// quarantine mover share: directory creation, atomic replace and verified,
// mode-preserving copies.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrDirectoryCreate reports that a required directory could not be created.
var ErrDirectoryCreate = errors.New("directory create failed")

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDirectoryCreate, dir, err)
	}
	return nil
}

// WriteFileAtomic replaces path with data. The content is written to a
// temporary file in the same directory, synced, then renamed over path, so a
// reader sees either the previous content or the new content in full. The
// temporary file is removed on any failure.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	committed = true
	syncDir(dir)
	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// CopyFilePreserveMode copies src to a new file dst carrying src's permission
// bits. dst must not exist. Size and SHA-256 of the copy are verified against
// the source; dst is removed on any failure.
func CopyFilePreserveMode(src, dst string) (err error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	mode := srcInfo.Mode().Perm()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	if written != srcInfo.Size() {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	// O_CREATE applies the umask; restore the exact source bits.
	if err = os.Chmod(dst, mode); err != nil {
		return err
	}
	return nil
}

// IsCrossDevice reports whether err is a rename failure across filesystems.
func IsCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

// Exists reports whether path names an existing filesystem entry.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
