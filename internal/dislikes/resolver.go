package dislikes

import (
	"pegasus/internal/catalog"
	"pegasus/internal/listfile"
)

// Lookup is the catalog surface needed to resolve list entries.
type Lookup interface {
	GameByURI(uri string) *catalog.Game
	GameByFilePath(path string) *catalog.Game
}

// Resolver maps list entries to catalog games. Relative entries are
// interpreted against the directory of the list file.
type Resolver struct {
	listPath string
}

// NewResolver returns a resolver for entries of the list file at listPath.
func NewResolver(listPath string) Resolver {
	return Resolver{listPath: listPath}
}

// AbsPath returns the cleaned absolute path an entry refers to.
func (r Resolver) AbsPath(entry string) string {
	return listfile.ResolvePath(r.listPath, entry)
}

// Resolve returns the game an entry refers to, or nil.
func (r Resolver) Resolve(lookup Lookup, entry string) *catalog.Game {
	if game := lookup.GameByURI(entry); game != nil {
		return game
	}
	return lookup.GameByFilePath(r.AbsPath(entry))
}
