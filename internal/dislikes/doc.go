// Package dislikes keeps the on-disk dislike list in step with the catalog.
//
// Loading happens once per catalog (re)scan: every list entry is resolved
// to a game, first by logical URI and then by cleaned absolute path, and the
// match is flagged silently. Writing goes the other way: each flag change
// rebuilds the full list and submits it to a coalescing single-flight queue
// whose writer replaces the file atomically. Only the most recent submission
// is guaranteed to reach disk.
package dislikes
