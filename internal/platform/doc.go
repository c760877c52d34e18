// Package platform launches Android activities from `am start` style argument
// lists. A Bridge wraps the in-process foreign call and turns any failure,
// panics included, into ErrForeignCall so callers can fall back to running
// the `am` binary through AmCommand.
package platform
