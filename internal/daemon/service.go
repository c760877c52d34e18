package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"pegasus/internal/catalog"
	"pegasus/internal/config"
	"pegasus/internal/dislikes"
	"pegasus/internal/events"
	"pegasus/internal/listfile"
	"pegasus/internal/logging"
	"pegasus/internal/platform"
	"pegasus/internal/quarantine"
	"pegasus/internal/tasks"
)

// ErrAlreadyRunning is returned by Open when another process holds the lock.
var ErrAlreadyRunning = errors.New("another pegasus instance is using this config directory")

// ErrClosed is returned by operations attempted after Close.
var ErrClosed = errors.New("service closed")

const flushTimeout = 10 * time.Second

// Option customizes a Service.
type Option func(*Service)

// WithForeignCall installs the in-process activity start call tried before
// the `am` fallback.
func WithForeignCall(call platform.ForeignFunc) Option {
	return func(s *Service) { s.foreign = call }
}

// WithLauncher replaces the launcher chain entirely.
func WithLauncher(l platform.ActivityLauncher) Option {
	return func(s *Service) { s.launcher = l }
}

// Service owns every long-lived component of a pegasus process.
type Service struct {
	cfg    *config.Config
	logger *slog.Logger

	lock       *flock.Flock
	pool       *tasks.Pool
	bus        *events.Bus
	guard      *listfile.Guard
	catalog    *catalog.Catalog
	provider   *dislikes.Provider
	detach     func()
	journal    *quarantine.Journal
	quarantine *quarantine.Manager
	foreign    platform.ForeignFunc
	launcher   platform.ActivityLauncher

	// flushTimeout bounds every wait on the write queue.
	flushTimeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

// Open acquires the instance lock, scans the ROM directories and loads the
// dislike list. A journal that cannot be opened is logged and quarantine
// keeps working without restore support.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("service requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, cfg.LockPath())
	}

	s := &Service{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "service"),
		lock:    lock,
		pool:    tasks.New(cfg.Tasks.MaxWorkers, logger),
		bus:     events.NewBus(logger),
		guard:   &listfile.Guard{},
		catalog: catalog.New(),
		closed:  make(chan struct{}),

		flushTimeout: flushTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.provider = dislikes.NewProvider(dislikes.Options{
		ListPath: cfg.Paths.ListFile,
		Portable: cfg.General.Portable,
	}, s.guard, s.pool, s.bus, logger)

	journal, err := quarantine.OpenJournal(cfg.JournalPath())
	if err != nil {
		logging.WarnWithContext(s.logger, "quarantine journal unavailable", "journal_open_failed",
			logging.String("path", cfg.JournalPath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove a corrupt trash.db to recreate it"),
			logging.String(logging.FieldImpact, "trash list and restore are unavailable"),
		)
		journal = nil
	}
	s.journal = journal
	s.quarantine = quarantine.NewManager(quarantine.Options{
		ListPath: cfg.Paths.ListFile,
		Dir:      cfg.QuarantineDir(),
	}, s.guard, journal, s.pool, s.bus, logger)

	if s.launcher == nil {
		timeout := time.Duration(cfg.Launcher.TimeoutSeconds) * time.Second
		s.launcher = platform.Fallback{
			platform.NewBridge(s.foreign, logger),
			platform.NewAmCommand(cfg.Launcher.AmBinary, timeout, logger),
		}
	}

	s.Rescan(ctx)
	s.detach = s.provider.Attach(s.catalog)

	s.logger.Debug("service opened",
		logging.String("config_dir", cfg.Paths.ConfigDir),
		logging.String("list_file", cfg.Paths.ListFile),
	)
	return s, nil
}

// Close flushes pending list writes, stops background work and releases the
// lock. It is safe to call more than once.
func (s *Service) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.detach != nil {
			s.detach()
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.flushTimeout)
		if err := s.provider.Flush(ctx); err != nil {
			logging.WarnWithContext(s.logger, "pending list write not flushed", "dislikes_flush_timeout",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the newest flag changes may be lost"),
			)
		}
		cancel()

		s.provider.Close()
		s.pool.Close()
		if s.journal != nil {
			if err := s.journal.Close(); err != nil {
				closeErr = errors.Join(closeErr, fmt.Errorf("close journal: %w", err))
			}
		}
		if err := s.lock.Unlock(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("release lock: %w", err))
		}
	})
	return closeErr
}

func (s *Service) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Catalog returns the in-memory catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Bus returns the lifecycle event bus.
func (s *Service) Bus() *events.Bus { return s.bus }

// Provider returns the dislike list provider.
func (s *Service) Provider() *dislikes.Provider { return s.provider }
