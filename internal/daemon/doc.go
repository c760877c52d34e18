// Package daemon wires the catalog, the dislike list provider, the
// quarantine manager and the platform launcher into a single Service.
//
// A Service holds an advisory lock on the persistence root for its whole
// lifetime, so only one pegasus process ever writes the list file. The CLI
// opens a Service for each one-shot command; `pegasus watch` keeps one open
// and reacts to storage hot-plug and hand edits of the list file.
package daemon
