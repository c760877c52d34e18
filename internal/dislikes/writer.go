package dislikes

import (
	"pegasus/internal/listfile"
)

// BatchWriter persists one batch and returns the checksum of what it wrote.
type BatchWriter interface {
	WriteBatch(batch []string) (checksum string, err error)
}

// FileWriter replaces the list file under the shared guard.
type FileWriter struct {
	Path  string
	Guard *listfile.Guard
}

// WriteBatch formats batch and atomically replaces the list file.
func (w FileWriter) WriteBatch(batch []string) (string, error) {
	data := listfile.Format(batch)
	if err := w.Guard.Replace(w.Path, data); err != nil {
		return "", err
	}
	return listfile.Checksum(data), nil
}
