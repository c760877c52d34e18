// Package pathutil normalizes the filesystem paths stored in the dislike list
// and used as catalog lookup keys.
package pathutil

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Clean collapses separators and dot segments without making p absolute.
// An empty or blank input stays empty.
func Clean(p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	return filepath.Clean(p)
}

// CleanAbs returns the cleaned absolute form of p, resolved against the
// working directory when p is relative.
func CleanAbs(p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// Resolve interprets p relative to baseDir when it is not absolute and
// returns the cleaned absolute result.
func Resolve(baseDir, p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return CleanAbs(filepath.Join(baseDir, p))
}

// RelativeTo returns p expressed relative to root, cleaned. When no relative
// form exists the cleaned absolute path is returned.
func RelativeTo(root, p string) string {
	abs := CleanAbs(p)
	rel, err := filepath.Rel(CleanAbs(root), abs)
	if err != nil {
		return abs
	}
	return filepath.Clean(rel)
}

// Key returns the lookup key for p: cleaned and NFC-normalized, so names
// written by filesystems that decompose accents still match.
func Key(p string) string {
	return norm.NFC.String(Clean(p))
}
