package daemon

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"pegasus/internal/events"
	"pegasus/internal/fileutil"
	"pegasus/internal/logging"
	"pegasus/internal/monitor"
	"pegasus/internal/preflight"
)

// Watch runs until ctx is cancelled or the service is closed. It rescans the
// catalog when block storage comes or goes, reloads the list when it is
// edited by hand, and logs every lifecycle event.
func (s *Service) Watch(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	ctx = logging.WithSessionID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, s.logger)

	if removed := logging.CleanupOldLogs(logger, s.cfg.Paths.LogDir, "", s.cfg.Logging.RetentionDays); removed > 0 {
		logger.Info("old logs removed", logging.Int("count", removed))
	}
	for _, r := range preflight.Failed(preflight.RunAll(s.cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldImpact, "watch continues; affected games may be missing"),
		)
	}

	unsubscribe := s.bus.Subscribe(func(evt events.Event) {
		logger.Info("lifecycle event",
			logging.String(logging.FieldEventType, string(evt.Kind)),
			logging.String("op", evt.Op),
			logging.Int("success", evt.Success),
			logging.Int("failed", evt.Failed),
		)
	})
	defer unsubscribe()

	delay := time.Duration(s.cfg.Watch.DebounceMS) * time.Millisecond
	taskCtx := context.WithoutCancel(ctx)

	if s.cfg.Watch.StorageEvents {
		rescan := monitor.NewDebouncer(delay, func(string) { s.scheduleRescan(taskCtx) })
		defer rescan.Stop()

		storage := monitor.NewStorageMonitor(logger, func(string, string) { rescan.Add("storage") })
		if err := storage.Start(ctx); err == nil {
			defer storage.Stop()
		}
	}

	if s.cfg.Watch.ListEdits {
		if err := fileutil.EnsureDir(filepath.Dir(s.cfg.Paths.ListFile)); err != nil {
			return err
		}
		watcher, err := monitor.NewListWatcher(s.cfg.Paths.ListFile, delay,
			func(sum string) bool { return sum == s.provider.LastWritten() },
			func() { s.pool.Go("reload", func() { s.Reload(taskCtx) }) },
			logger,
		)
		if err != nil {
			logging.WarnWithContext(logger, "list watcher unavailable", "list_watch_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "hand edits need a restart to take effect"),
			)
		} else {
			watcher.Start(ctx)
			defer watcher.Stop()
		}
	}

	logger.Info("watch started",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.Bool("storage_events", s.cfg.Watch.StorageEvents),
		logging.Bool("list_edits", s.cfg.Watch.ListEdits),
	)
	select {
	case <-ctx.Done():
	case <-s.closed:
	}
	logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stopped"))
	return nil
}

// scheduleRescan drains queued list writes, then rescans on the pool so the
// flags the user just set are on disk when the rescan reloads them. It must
// not be called from a pool task: the writer loop needs a pool slot.
func (s *Service) scheduleRescan(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(ctx, s.flushTimeout)
	err := s.Flush(flushCtx)
	cancel()
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "flush before rescan failed", "dislikes_flush_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "recent flag changes may be dropped by the rescan"),
		)
	}
	s.pool.Go("rescan", func() { s.Rescan(ctx) })
}
