// Package tasks runs short-lived background operations (list flushes,
// quarantine moves, purges) on a bounded set of goroutines. Nothing stays
// alive between operations and a panicking task is logged, never fatal.
package tasks

import (
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"pegasus/internal/logging"
)

// Pool dispatches tasks with at most maxWorkers running at once.
type Pool struct {
	wg     conc.WaitGroup
	sem    chan struct{}
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New returns a pool allowing maxWorkers concurrent tasks (minimum 1).
func New(maxWorkers int, logger *slog.Logger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Pool{
		sem:    make(chan struct{}, maxWorkers),
		logger: logging.NewComponentLogger(logger, "tasks"),
	}
}

// Go schedules fn and returns immediately. It reports false when the pool is
// closed and fn was dropped.
func (p *Pool) Go(name string, fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Debug("task dropped after close", logging.String("task", name))
		return false
	}
	p.wg.Go(func() {
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		p.run(name, fn)
	})
	return true
}

func (p *Pool) run(name string, fn func()) {
	var catcher panics.Catcher
	catcher.Try(fn)
	if recovered := catcher.Recovered(); recovered != nil {
		logging.ErrorWithContext(p.logger, "task panicked", "task_panic",
			logging.String("task", name),
			logging.Any("panic", recovered.Value),
			logging.String("stack", string(recovered.Stack)),
			logging.String(logging.FieldErrorHint, "report this crash with the stack trace"),
		)
	}
}

// Close stops accepting tasks and waits for running ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	already := p.closed
	p.closed = true
	p.mu.Unlock()
	if already {
		return
	}
	p.wg.Wait()
}
