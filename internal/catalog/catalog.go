// Package catalog holds the in-memory set of known games and their files.
//
// The dislike subsystem consumes it through two lookups (by logical URI and
// by cleaned absolute file path), a traversal of all games, and a change
// notification fired whenever a user toggles a game's disliked flag.
package catalog

import (
	"strings"
	"sync"
	"sync/atomic"

	"pegasus/internal/pathutil"
)

// File is one file entry of a game. Path is either a filesystem path or a
// logical URI such as "steam:620".
type File struct {
	Path string
}

// IsURI reports whether the file is addressed by a logical identifier rather
// than a filesystem path.
func (f *File) IsURI() bool {
	return isURI(f.Path)
}

func isURI(p string) bool {
	idx := strings.Index(p, ":")
	if idx < 2 {
		return false
	}
	for _, r := range p[:idx] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return true
}

// Game is a catalog entry with one or more files.
type Game struct {
	Title      string
	Collection string
	Files      []*File

	disliked atomic.Bool
}

// Disliked reports the current flag.
func (g *Game) Disliked() bool {
	return g.disliked.Load()
}

// MarkDisliked sets the flag without notifying listeners. It is meant for
// bulk reconciliation such as loading the list file.
func (g *Game) MarkDisliked(v bool) {
	g.disliked.Store(v)
}

// ChangeListener receives the full game traversal after a flag change.
type ChangeListener func(games []*Game)

// Catalog indexes games by URI and by file path.
type Catalog struct {
	mu        sync.RWMutex
	games     []*Game
	byURI     map[string]*Game
	byPath    map[string]*Game
	nextID    int
	listeners map[int]ChangeListener
}

// New builds a catalog over games, in traversal order.
func New(games ...*Game) *Catalog {
	c := &Catalog{listeners: make(map[int]ChangeListener)}
	c.Replace(games)
	return c
}

// Replace swaps the game set, rebuilding the indexes. Listeners are kept.
func (c *Catalog) Replace(games []*Game) {
	byURI := make(map[string]*Game)
	byPath := make(map[string]*Game)
	for _, game := range games {
		for _, file := range game.Files {
			if file.IsURI() {
				if _, ok := byURI[file.Path]; !ok {
					byURI[file.Path] = game
				}
				continue
			}
			key := pathutil.Key(pathutil.CleanAbs(file.Path))
			if _, ok := byPath[key]; !ok {
				byPath[key] = game
			}
		}
	}

	c.mu.Lock()
	c.games = append([]*Game(nil), games...)
	c.byURI = byURI
	c.byPath = byPath
	c.mu.Unlock()
}

// Games returns a snapshot of all games in traversal order.
func (c *Catalog) Games() []*Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Game(nil), c.games...)
}

// GameByURI finds the game owning a file with the given logical identifier.
func (c *Catalog) GameByURI(uri string) *Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byURI[uri]
}

// GameByFilePath finds the game owning the file at path. path is expected to
// be cleaned and absolute.
func (c *Catalog) GameByFilePath(path string) *Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byPath[pathutil.Key(path)]
}

// OnDislikeChanged registers fn for user-driven flag changes.
func (c *Catalog) OnDislikeChanged(fn ChangeListener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// SetDisliked changes a game's flag and notifies listeners when it changed.
func (c *Catalog) SetDisliked(game *Game, disliked bool) {
	if game == nil || game.disliked.Swap(disliked) == disliked {
		return
	}
	c.notify()
}

// ClearDisliked resets every flag without notifying listeners.
func (c *Catalog) ClearDisliked() {
	for _, game := range c.Games() {
		game.MarkDisliked(false)
	}
}

// DislikedCount returns the number of flagged games.
func (c *Catalog) DislikedCount() int {
	n := 0
	for _, game := range c.Games() {
		if game.Disliked() {
			n++
		}
	}
	return n
}

func (c *Catalog) notify() {
	c.mu.RLock()
	games := append([]*Game(nil), c.games...)
	listeners := make([]ChangeListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(games)
	}
}
