package dislikes

import (
	"os"

	"pegasus/internal/catalog"
	"pegasus/internal/listfile"
	"pegasus/internal/pathutil"
)

// BatchOptions controls how file paths are written.
type BatchOptions struct {
	// BaseDir is the directory holding the list file. Portable entries are
	// relative to it, matching how the loader resolves them.
	BaseDir string
	// Portable writes existing files relative to BaseDir.
	Portable bool
}

// BuildBatch returns the full content of the list file for games: the header
// lines followed by one line per file of every disliked game. Files missing
// on disk keep their stored path, cleaned; existing files are written as
// cleaned absolute paths, or relative to the list directory in portable
// mode. The first
// occurrence of a path wins and empty results are dropped.
func BuildBatch(games []*catalog.Game, opts BatchOptions) []string {
	lines := listfile.HeaderLines()
	seen := make(map[string]struct{})
	for _, game := range games {
		if game == nil || !game.Disliked() {
			continue
		}
		for _, file := range game.Files {
			line := batchPath(file, opts)
			if line == "" {
				continue
			}
			if _, dup := seen[line]; dup {
				continue
			}
			seen[line] = struct{}{}
			lines = append(lines, line)
		}
	}
	return lines
}

func batchPath(file *catalog.File, opts BatchOptions) string {
	if file == nil {
		return ""
	}
	// URIs are identifiers, cleaning would collapse "scheme://" separators.
	if file.IsURI() {
		return file.Path
	}
	if _, err := os.Stat(file.Path); err != nil {
		return pathutil.Clean(file.Path)
	}
	abs := pathutil.CleanAbs(file.Path)
	if opts.Portable && opts.BaseDir != "" {
		return pathutil.RelativeTo(opts.BaseDir, abs)
	}
	return abs
}
