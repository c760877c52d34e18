// Package listfile reads and writes the dislike list: a UTF-8 text file with
// optional '#' comment lines, blank lines and one path per remaining line.
// Relative paths are interpreted against the list file's own directory.
package listfile

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pegasus/internal/fileutil"
	"pegasus/internal/pathutil"
)

// Header is the comment line written at the top of every list file.
const Header = "# List of disliked files, one path per line"

const filePerm = 0o644

// ErrOpen reports that the list file exists but could not be read or written.
var ErrOpen = errors.New("list file open failed")

// HeaderLines returns the fixed preamble of a written list: the header
// comment followed by a blank separator line.
func HeaderLines() []string {
	return []string{Header, ""}
}

// Format renders lines as LF-terminated text.
func Format(lines []string) []byte {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Parse returns the path lines of r, trimmed, skipping blanks and comments.
func Parse(r io.Reader) ([]string, error) {
	var entries []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ResolvePath turns a list entry into a cleaned absolute path, resolving
// relative entries against the directory holding listPath.
func ResolvePath(listPath, entry string) string {
	return pathutil.Resolve(filepath.Dir(listPath), entry)
}

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Guard serializes list file replacement against readers. A reader holding
// the guard always sees either the previous or the new complete file.
type Guard struct {
	mu sync.RWMutex
}

// Read parses the list file at path. A missing file is reported with
// exists=false and no error; any other failure wraps ErrOpen.
func (g *Guard) Read(path string) (entries []string, exists bool, err error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return read(path)
}

// Replace atomically writes data to path. A missing parent directory that
// cannot be created reports fileutil.ErrDirectoryCreate; every other failure
// wraps ErrOpen.
func (g *Guard) Replace(path string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := fileutil.WriteFileAtomic(path, data, filePerm); err != nil {
		if errors.Is(err, fileutil.ErrDirectoryCreate) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return nil
}

// Read parses the list file at path without any guard.
func Read(path string) ([]string, bool, error) {
	return read(path)
}

func read(path string) ([]string, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, true, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer file.Close()

	entries, err := Parse(file)
	if err != nil {
		return nil, true, fmt.Errorf("%w: read %s: %w", ErrOpen, path, err)
	}
	return entries, true, nil
}
