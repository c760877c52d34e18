// Package monitor turns external changes into catalog work for watch mode:
// udev block device events trigger a ROM rescan, and hand edits of the list
// file trigger a reload. Both are debounced.
package monitor
