package dislikes

import (
	"context"
	"log/slog"
	"sync"

	"pegasus/internal/events"
	"pegasus/internal/logging"
)

// State is the write queue's scheduling state.
type State int

const (
	Idle State = iota
	Writing
)

func (s State) String() string {
	if s == Writing {
		return "writing"
	}
	return "idle"
}

// Dispatcher runs a named unit of work in the background. It reports false
// when the work was not scheduled.
type Dispatcher interface {
	Go(name string, fn func()) bool
}

// WriteQueue is a single-flight coalescing queue in front of a BatchWriter.
//
// At most one writer loop runs at a time. Submissions while it runs replace
// the single pending slot, so intermediate batches may never reach disk; the
// newest one always does unless the queue is closed first. The mutex guards
// field swaps only and is never held across disk I/O.
type WriteQueue struct {
	writer     BatchWriter
	dispatcher Dispatcher
	bus        *events.Bus
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	pending     []string
	active      []string
	idle        chan struct{}
	closed      bool
	lastWritten string
	writes      int
}

// NewWriteQueue returns an idle queue.
func NewWriteQueue(writer BatchWriter, dispatcher Dispatcher, bus *events.Bus, logger *slog.Logger) *WriteQueue {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &WriteQueue{
		writer:     writer,
		dispatcher: dispatcher,
		bus:        bus,
		logger:     logging.NewComponentLogger(logger, "dislikes"),
		ctx:        ctx,
		cancel:     cancel,
		idle:       idle,
	}
}

// Submit records batch as the newest desired list content and starts the
// writer loop if none is running. It never blocks on disk I/O.
func (q *WriteQueue) Submit(batch []string) {
	batch = append([]string{}, batch...)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Debug("batch dropped after close", logging.Int("lines", len(batch)))
		return
	}
	q.pending = batch
	start := q.state == Idle
	if start {
		q.active, q.pending = q.pending, nil
		q.state = Writing
		q.idle = make(chan struct{})
	}
	q.mu.Unlock()

	if !start {
		q.logger.Debug("batch coalesced into pending slot", logging.Int("lines", len(batch)))
		return
	}
	if !q.dispatcher.Go("dislikes-write", q.loop) {
		q.mu.Lock()
		q.active, q.pending = nil, nil
		q.state = Idle
		done := q.idle
		q.mu.Unlock()
		close(done)
		logging.WarnWithContext(q.logger, "write loop not started", "dislikes_write_dropped",
			logging.String(logging.FieldErrorHint, "the task pool is shutting down"),
			logging.String(logging.FieldImpact, "the latest dislike change was not saved"),
		)
	}
}

func (q *WriteQueue) loop() {
	q.mu.Lock()
	done := q.idle
	q.mu.Unlock()

	q.bus.Publish(events.Event{Kind: events.WriteStarted})
	defer func() {
		// Still Writing here only when the writer panicked.
		q.mu.Lock()
		if q.state == Writing {
			q.active, q.pending = nil, nil
			q.state = Idle
		}
		q.mu.Unlock()
		q.bus.Publish(events.Event{Kind: events.WriteFinished})
		close(done)
	}()

	for {
		q.mu.Lock()
		batch := q.active
		if batch == nil {
			q.state = Idle
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()

		checksum, err := q.writer.WriteBatch(batch)

		q.mu.Lock()
		q.active = nil
		if err != nil {
			q.pending = nil
			q.state = Idle
			q.mu.Unlock()
			logging.ErrorWithContext(q.logger, "dislike list write failed", "dislikes_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the list file and its directory are writable"),
				logging.String(logging.FieldImpact, "the previous list content is kept; the next change retries"),
			)
			return
		}
		q.lastWritten = checksum
		q.writes++
		if q.ctx.Err() != nil {
			dropped := q.pending != nil
			q.pending = nil
			q.state = Idle
			q.mu.Unlock()
			if dropped {
				q.logger.Debug("pending batch dropped on shutdown")
			}
			return
		}
		if q.pending != nil {
			q.active, q.pending = q.pending, nil
			q.mu.Unlock()
			continue
		}
		q.state = Idle
		q.mu.Unlock()
		q.logger.Debug("dislike list written", logging.Int("lines", len(batch)))
		return
	}
}

// State returns the current scheduling state.
func (q *WriteQueue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// LastWritten returns the checksum of the last committed list content.
func (q *WriteQueue) LastWritten() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastWritten
}

// Writes returns the number of batches committed to disk.
func (q *WriteQueue) Writes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.writes
}

// Flush blocks until the writer loop has drained or ctx is done.
func (q *WriteQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	done := q.idle
	q.mu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue. A write already in progress completes; a pending
// batch may be dropped. Close blocks until the writer loop has exited.
func (q *WriteQueue) Close() {
	q.mu.Lock()
	q.closed = true
	done := q.idle
	q.mu.Unlock()
	q.cancel()
	<-done
}
