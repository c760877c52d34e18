// Package config loads, normalizes, and validates pegasus configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the PEGASUS_CONFIG_DIR and
// PEGASUS_PORTABLE environment overrides. The persistence root returned here
// anchors the dislike list, the Trash quarantine directory, the quarantine
// journal and the instance lock file.
package config
