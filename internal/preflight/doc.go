// Package preflight checks the filesystem and tools pegasus relies on.
//
// The CLI "pegasus status" command renders RunAll results, and the daemon
// logs failures at startup without refusing to run: a missing ROM directory
// only yields an empty catalog.
package preflight
