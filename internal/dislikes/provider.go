package dislikes

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"pegasus/internal/catalog"
	"pegasus/internal/events"
	"pegasus/internal/listfile"
	"pegasus/internal/logging"
)

// Options configures a Provider.
type Options struct {
	// ListPath is the absolute path of the list file. Portable entries are
	// written relative to its directory.
	ListPath string
	Portable bool
}

// LoadStats summarizes the last load.
type LoadStats struct {
	Exists     bool `json:"exists"`
	Entries    int  `json:"entries"`
	Matched    int  `json:"matched"`
	Unresolved int  `json:"unresolved"`
}

// Reloadable is a catalog whose flags can be reset before a reload.
type Reloadable interface {
	Lookup
	ClearDisliked()
}

// Provider loads the list into a catalog and writes catalog changes back.
type Provider struct {
	opts     Options
	guard    *listfile.Guard
	resolver Resolver
	queue    *WriteQueue
	logger   *slog.Logger

	mu   sync.Mutex
	last LoadStats
}

// NewProvider wires a provider whose writes replace opts.ListPath under guard
// and run on dispatcher.
func NewProvider(opts Options, guard *listfile.Guard, dispatcher Dispatcher, bus *events.Bus, logger *slog.Logger) *Provider {
	return &Provider{
		opts:     opts,
		guard:    guard,
		resolver: NewResolver(opts.ListPath),
		queue:    NewWriteQueue(FileWriter{Path: opts.ListPath, Guard: guard}, dispatcher, bus, logger),
		logger:   logging.NewComponentLogger(logger, "dislikes"),
	}
}

// Run reads the list file and flags every game it resolves. A missing file
// is a no-op; an unreadable one is logged and skipped. Flags are set without
// change notifications.
func (p *Provider) Run(lookup Lookup) *Provider {
	entries, exists, err := p.guard.Read(p.opts.ListPath)
	stats := LoadStats{Exists: exists}
	if err != nil {
		logging.ErrorWithContext(p.logger, "dislike list unreadable", "dislikes_load_failed",
			logging.String("path", p.opts.ListPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the list file permissions"),
		)
		p.setLast(stats)
		return p
	}

	for _, entry := range entries {
		stats.Entries++
		game := p.resolver.Resolve(lookup, entry)
		if game == nil {
			stats.Unresolved++
			p.logger.Debug("list entry unresolved", logging.String("entry", entry))
			continue
		}
		game.MarkDisliked(true)
		stats.Matched++
	}
	p.setLast(stats)
	if exists {
		p.logger.Info("dislike list loaded",
			logging.String(logging.FieldEventType, "dislikes_loaded"),
			logging.Int("entries", stats.Entries),
			logging.Int("matched", stats.Matched),
		)
	}
	return p
}

// Reload clears every flag and runs the loader again.
func (p *Provider) Reload(c Reloadable) *Provider {
	c.ClearDisliked()
	return p.Run(c)
}

// OnDislikeChanged rebuilds the list from games and queues it for writing.
// It returns immediately.
func (p *Provider) OnDislikeChanged(games []*catalog.Game) {
	p.queue.Submit(BuildBatch(games, BatchOptions{BaseDir: filepath.Dir(p.opts.ListPath), Portable: p.opts.Portable}))
}

// Attach subscribes the provider to c's change notifications.
func (p *Provider) Attach(c *catalog.Catalog) (detach func()) {
	return c.OnDislikeChanged(p.OnDislikeChanged)
}

// ListPath returns the list file path.
func (p *Provider) ListPath() string { return p.opts.ListPath }

// LastLoad returns statistics of the most recent Run.
func (p *Provider) LastLoad() LoadStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Queue exposes the write queue for status reporting.
func (p *Provider) Queue() *WriteQueue { return p.queue }

// LastWritten returns the checksum of the last list content this process wrote.
func (p *Provider) LastWritten() string { return p.queue.LastWritten() }

// Flush waits for queued writes to reach disk.
func (p *Provider) Flush(ctx context.Context) error { return p.queue.Flush(ctx) }

// Close stops the write queue.
func (p *Provider) Close() { p.queue.Close() }

func (p *Provider) setLast(stats LoadStats) {
	p.mu.Lock()
	p.last = stats
	p.mu.Unlock()
}
