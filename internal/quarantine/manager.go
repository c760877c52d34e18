package quarantine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"pegasus/internal/events"
	"pegasus/internal/fileutil"
	"pegasus/internal/listfile"
	"pegasus/internal/logging"
)

// Dispatcher runs a named unit of work in the background.
type Dispatcher interface {
	Go(name string, fn func()) bool
}

// Options locates the list file and the quarantine directory.
type Options struct {
	ListPath string
	Dir      string
}

// Result is the outcome of one bulk operation.
type Result struct {
	Op      string `json:"op"`
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
}

// Entry is a file currently held in the quarantine directory, with journal
// metadata when available.
type Entry struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
	Record    *Record   `json:"record,omitempty"`
}

// Manager moves flagged files into the quarantine directory and purges it.
// The two operations are serialized against each other. Neither returns an
// error: failures are logged and counted.
type Manager struct {
	opts       Options
	guard      *listfile.Guard
	journal    *Journal
	dispatcher Dispatcher
	bus        *events.Bus
	logger     *slog.Logger
	now        func() time.Time

	mu sync.Mutex
}

// NewManager builds a manager. journal may be nil.
func NewManager(opts Options, guard *listfile.Guard, journal *Journal, dispatcher Dispatcher, bus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		opts:       opts,
		guard:      guard,
		journal:    journal,
		dispatcher: dispatcher,
		bus:        bus,
		logger:     logging.NewComponentLogger(logger, "quarantine"),
		now:        time.Now,
	}
}

// Dir returns the quarantine directory.
func (m *Manager) Dir() string { return m.opts.Dir }

// StartMoveFlagged runs MoveFlagged in the background.
func (m *Manager) StartMoveFlagged(ctx context.Context) bool {
	ctx = context.WithoutCancel(ctx)
	return m.dispatcher.Go("quarantine-move", func() { m.MoveFlagged(ctx) })
}

// StartPurge runs Purge in the background.
func (m *Manager) StartPurge(ctx context.Context) bool {
	ctx = context.WithoutCancel(ctx)
	return m.dispatcher.Go("quarantine-purge", func() { m.Purge(ctx) })
}

// MoveFlagged reads the list file and moves every listed regular file into
// the quarantine directory. Missing and non-regular targets count as failures.
func (m *Manager) MoveFlagged(ctx context.Context) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx = logging.WithOperation(ctx, events.OpMove)
	logger := logging.WithContext(ctx, m.logger)
	m.bus.Publish(events.Event{Kind: events.DeleteStarted, Op: events.OpMove})
	result := Result{Op: events.OpMove}
	defer func() { m.finish(logger, result) }()

	entries, _, err := m.guard.Read(m.opts.ListPath)
	if err != nil {
		logging.ErrorWithContext(logger, "dislike list unreadable", "quarantine_list_failed",
			logging.String("path", m.opts.ListPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the list file permissions"),
		)
		return result
	}
	if len(entries) == 0 {
		return result
	}
	if err := fileutil.EnsureDir(m.opts.Dir); err != nil {
		logging.ErrorWithContext(logger, "quarantine directory unavailable", "quarantine_dir_failed",
			logging.String("dir", m.opts.Dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions of the persistence root"),
		)
		result.Failed = len(entries)
		return result
	}

	for _, entry := range entries {
		src := listfile.ResolvePath(m.opts.ListPath, entry)
		if err := m.moveOne(ctx, logger, src); err != nil {
			result.Failed++
			logging.WarnWithContext(logger, "file not quarantined", "quarantine_move_failed",
				logging.String("path", src),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the file exists and both directories are writable"),
				logging.String(logging.FieldImpact, "the file stays in place"),
			)
			continue
		}
		result.Success++
	}
	return result
}

func (m *Manager) moveOne(ctx context.Context, logger *slog.Logger, src string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMove, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrMove, src)
	}

	movedAt := m.now()
	name := uniqueName(m.opts.Dir, filepath.Base(src), movedAt)
	dst := filepath.Join(m.opts.Dir, name)
	crossDevice, err := moveFile(src, dst)
	if err != nil {
		return err
	}
	logger.Debug("file quarantined",
		logging.String("path", src),
		logging.String("stored_name", name),
		logging.Bool("copied", crossDevice),
	)

	if m.journal != nil {
		if _, err := m.journal.Add(ctx, src, name, info.Size(), movedAt); err != nil {
			logging.WarnWithContext(logger, "journal write failed", "quarantine_journal_failed",
				logging.String("stored_name", name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the file is quarantined but cannot be restored by id"),
			)
		}
	}
	return nil
}

// Purge permanently deletes every regular file directly inside the
// quarantine directory. A missing directory yields zero counts.
func (m *Manager) Purge(ctx context.Context) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx = logging.WithOperation(ctx, events.OpPurge)
	logger := logging.WithContext(ctx, m.logger)
	m.bus.Publish(events.Event{Kind: events.DeleteStarted, Op: events.OpPurge})
	result := Result{Op: events.OpPurge}
	defer func() { m.finish(logger, result) }()

	dirEntries, err := os.ReadDir(m.opts.Dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.ErrorWithContext(logger, "quarantine directory unreadable", "quarantine_purge_failed",
				logging.String("dir", m.opts.Dir),
				logging.Error(err),
			)
		}
		return result
	}

	for _, entry := range dirEntries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(m.opts.Dir, entry.Name())
		if err := os.Remove(path); err != nil {
			result.Failed++
			logging.WarnWithContext(logger, "quarantined file not purged", "quarantine_purge_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions of the quarantine directory"),
				logging.String(logging.FieldImpact, "the file still uses disk space"),
			)
			continue
		}
		result.Success++
		if m.journal != nil {
			if err := m.journal.RemoveByName(ctx, entry.Name()); err != nil {
				logger.Debug("journal cleanup failed", logging.String("stored_name", entry.Name()), logging.Error(err))
			}
		}
	}
	return result
}

func (m *Manager) finish(logger *slog.Logger, result Result) {
	logger.Info("quarantine operation finished",
		logging.String(logging.FieldEventType, "quarantine_"+result.Op+"_finished"),
		logging.Int("success", result.Success),
		logging.Int("failed", result.Failed),
	)
	m.bus.Publish(events.Event{
		Kind:    events.DeleteFinished,
		Op:      result.Op,
		Success: result.Success,
		Failed:  result.Failed,
	})
}

// Entries lists the regular files in the quarantine directory, joined with
// journal records by stored name.
func (m *Manager) Entries(ctx context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(m.opts.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read quarantine dir: %w", err)
	}

	records := map[string]Record{}
	if m.journal != nil {
		list, err := m.journal.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range list {
			records[rec.StoredName] = rec
		}
	}

	var out []Entry
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entry := Entry{Name: de.Name(), SizeBytes: info.Size(), ModTime: info.ModTime()}
		if rec, ok := records[de.Name()]; ok {
			entry.Record = &rec
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Restore moves a journaled file back to its original path. It refuses to
// overwrite an existing file at that path.
func (m *Manager) Restore(ctx context.Context, id string) (Record, error) {
	if m.journal == nil {
		return Record{}, errors.New("restore requires the quarantine journal")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.journal.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if fileutil.Exists(rec.OriginalPath) {
		return Record{}, fmt.Errorf("restore %s: %s already exists", id, rec.OriginalPath)
	}
	if err := fileutil.EnsureDir(filepath.Dir(rec.OriginalPath)); err != nil {
		return Record{}, err
	}
	src := filepath.Join(m.opts.Dir, rec.StoredName)
	if _, err := moveFile(src, rec.OriginalPath); err != nil {
		return Record{}, err
	}
	if err := m.journal.RemoveByName(ctx, rec.StoredName); err != nil {
		logging.WarnWithContext(m.logger, "journal cleanup failed after restore", "quarantine_journal_failed",
			logging.String("id", id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a stale entry remains in trash list"),
		)
	}
	m.logger.Info("file restored",
		logging.String(logging.FieldEventType, "quarantine_restored"),
		logging.String("path", rec.OriginalPath),
	)
	return rec, nil
}
