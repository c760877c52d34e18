package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pegasus/internal/logging"
)

// Scan builds games from ROM directories. Each directory's subdirectories
// are collections and each regular file inside a collection is a game. A
// subdirectory of a collection holding "<name>.m3u" is one multi-disc game
// whose files are the playlist followed by the other entries of that folder.
// Missing directories are skipped with a warning.
func Scan(dirs []string, logger *slog.Logger) []*Game {
	logger = logging.NewComponentLogger(logger, "catalog")
	var games []*Game
	for _, dir := range dirs {
		found, err := scanRoot(dir)
		if err != nil {
			logging.WarnWithContext(logger, "rom directory skipped", "catalog_scan_skipped",
				logging.String("dir", dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.rom_dirs or mount the storage"),
				logging.String(logging.FieldImpact, "games from this directory are not in the catalog"),
			)
			continue
		}
		logger.Debug("rom directory scanned", logging.String("dir", dir), logging.Int("games", len(found)))
		games = append(games, found...)
	}
	return games
}

func scanRoot(root string) ([]*Game, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading rom dir: %w", err)
	}
	var games []*Game
	var loose []*Game
	for _, e := range entries {
		if isHidden(e.Name()) {
			continue
		}
		full := filepath.Join(root, e.Name())
		if e.IsDir() {
			collection, err := scanCollection(full, e.Name())
			if err != nil {
				return nil, err
			}
			games = append(games, collection...)
			continue
		}
		if e.Type().IsRegular() {
			loose = append(loose, &Game{Title: displayTitle(e.Name()), Files: []*File{{Path: full}}})
		}
	}
	return append(games, loose...), nil
}

func scanCollection(dir, name string) ([]*Game, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading collection dir: %w", err)
	}
	var games []*Game
	for _, e := range entries {
		if isHidden(e.Name()) {
			continue
		}
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if game := scanMultiDisc(full, e.Name(), name); game != nil {
				games = append(games, game)
			}
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		games = append(games, &Game{
			Title:      displayTitle(e.Name()),
			Collection: name,
			Files:      []*File{{Path: full}},
		})
	}
	sort.SliceStable(games, func(i, j int) bool {
		return strings.ToLower(games[i].Title) < strings.ToLower(games[j].Title)
	})
	return games, nil
}

func scanMultiDisc(dir, name, collection string) *Game {
	playlist := filepath.Join(dir, name+".m3u")
	if info, err := os.Stat(playlist); err != nil || !info.Mode().IsRegular() {
		return nil
	}
	game := &Game{Title: displayTitle(name), Collection: collection, Files: []*File{{Path: playlist}}}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return game
	}
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if isHidden(e.Name()) || !e.Type().IsRegular() || full == playlist {
			continue
		}
		game.Files = append(game.Files, &File{Path: full})
	}
	return game
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// displayTitle turns "super_mario-world.sfc" into "Super Mario World".
func displayTitle(fileName string) string {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	stem = strings.Join(strings.Fields(stem), " ")
	if stem == "" {
		return fileName
	}
	return cases.Title(language.Und).String(stem)
}
