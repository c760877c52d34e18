package daemon

import (
	"context"
	"errors"
	"fmt"

	"pegasus/internal/catalog"
	"pegasus/internal/dislikes"
	"pegasus/internal/events"
	"pegasus/internal/logging"
	"pegasus/internal/pathutil"
	"pegasus/internal/quarantine"
)

// ListEntry is one path line of the list file with its resolution.
type ListEntry struct {
	Entry    string `json:"entry"`
	Path     string `json:"path"`
	Resolved bool   `json:"resolved"`
	Title    string `json:"title,omitempty"`
}

// Rescan rebuilds the catalog from the ROM directories and reapplies the
// dislike list to it.
func (s *Service) Rescan(ctx context.Context) {
	logger := logging.WithContext(ctx, s.logger)
	games := catalog.Scan(s.cfg.Paths.RomDirs, logger)
	s.catalog.Replace(games)
	s.provider.Run(s.catalog)
	logger.Info("catalog scanned",
		logging.String(logging.FieldEventType, "catalog_scanned"),
		logging.Int("games", len(games)),
		logging.Int("disliked", s.catalog.DislikedCount()),
	)
}

// Reload clears every flag and reloads the list file.
func (s *Service) Reload(ctx context.Context) {
	s.provider.Reload(s.catalog)
	logging.WithContext(ctx, s.logger).Info("dislike list reloaded",
		logging.String(logging.FieldEventType, "dislikes_reloaded"),
		logging.Int("disliked", s.catalog.DislikedCount()),
	)
}

// SetDisliked sets the flag of the games owning each target and returns the
// targets no game matched. A target is a URI or a filesystem path relative
// to the working directory. The list write is queued, not awaited.
func (s *Service) SetDisliked(targets []string, disliked bool) (unmatched []string, err error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	for _, target := range targets {
		game := s.findGame(target)
		if game == nil {
			unmatched = append(unmatched, target)
			continue
		}
		s.catalog.SetDisliked(game, disliked)
	}
	return unmatched, nil
}

func (s *Service) findGame(target string) *catalog.Game {
	if game := s.catalog.GameByURI(target); game != nil {
		return game
	}
	return s.catalog.GameByFilePath(pathutil.CleanAbs(target))
}

// Flush waits until queued list writes have reached disk.
func (s *Service) Flush(ctx context.Context) error {
	return s.provider.Flush(ctx)
}

// ListEntries parses the durable list file and resolves each entry against
// the catalog. A missing list file yields no entries.
func (s *Service) ListEntries() ([]ListEntry, error) {
	entries, _, err := s.guard.Read(s.cfg.Paths.ListFile)
	if err != nil {
		return nil, err
	}
	resolver := dislikes.NewResolver(s.cfg.Paths.ListFile)
	out := make([]ListEntry, 0, len(entries))
	for _, entry := range entries {
		item := ListEntry{Entry: entry, Path: entry}
		if !catalogURI(entry) {
			item.Path = resolver.AbsPath(entry)
		}
		if game := resolver.Resolve(s.catalog, entry); game != nil {
			item.Resolved = true
			item.Title = game.Title
		}
		out = append(out, item)
	}
	return out, nil
}

func catalogURI(entry string) bool {
	f := catalog.File{Path: entry}
	return f.IsURI()
}

// Trash flushes pending list writes, then moves every listed file into the
// quarantine directory on the task pool and waits for the outcome.
func (s *Service) Trash(ctx context.Context) (quarantine.Result, error) {
	if s.isClosed() {
		return quarantine.Result{Op: events.OpMove}, ErrClosed
	}
	if err := s.Flush(ctx); err != nil {
		return quarantine.Result{Op: events.OpMove}, fmt.Errorf("flush list: %w", err)
	}
	return s.runQuarantine(ctx, events.OpMove, s.quarantine.StartMoveFlagged)
}

// Purge permanently empties the quarantine directory and waits for the
// outcome.
func (s *Service) Purge(ctx context.Context) (quarantine.Result, error) {
	return s.runQuarantine(ctx, events.OpPurge, s.quarantine.StartPurge)
}

func (s *Service) runQuarantine(ctx context.Context, op string, start func(context.Context) bool) (quarantine.Result, error) {
	if s.isClosed() {
		return quarantine.Result{Op: op}, ErrClosed
	}
	done := make(chan events.Event, 1)
	unsubscribe := s.bus.Subscribe(func(evt events.Event) {
		if evt.Kind != events.DeleteFinished || evt.Op != op {
			return
		}
		select {
		case done <- evt:
		default:
		}
	})
	defer unsubscribe()

	if !start(ctx) {
		return quarantine.Result{Op: op}, ErrClosed
	}
	select {
	case evt := <-done:
		return quarantine.Result{Op: op, Success: evt.Success, Failed: evt.Failed}, nil
	case <-ctx.Done():
		return quarantine.Result{Op: op}, ctx.Err()
	}
}

// TrashEntries lists the quarantine directory.
func (s *Service) TrashEntries(ctx context.Context) ([]quarantine.Entry, error) {
	return s.quarantine.Entries(ctx)
}

// Restore moves a quarantined file back to where it came from. The game is
// not re-flagged; rescan to pick it up again.
func (s *Service) Restore(ctx context.Context, id string) (quarantine.Record, error) {
	if s.isClosed() {
		return quarantine.Record{}, ErrClosed
	}
	rec, err := s.quarantine.Restore(ctx, id)
	if err != nil {
		if errors.Is(err, quarantine.ErrNotFound) {
			return rec, fmt.Errorf("no trash entry with id %s", id)
		}
		return rec, err
	}
	return rec, nil
}

// Launch starts an activity through the platform bridge, falling back to
// the `am` command.
func (s *Service) Launch(ctx context.Context, args []string) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.launcher.StartActivity(ctx, args)
}
