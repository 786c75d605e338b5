package store

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OpKind tags a queued write-behind operation.
type OpKind uint8

const (
	OpUpsert OpKind = iota
	OpDelete
	OpClear
)

// Op is one queued mutation, translated from a quickleaf.Event by the
// cache package before handing it to the worker (store stays ignorant
// of the Value/Event types to avoid an import cycle).
type Op struct {
	Kind             OpKind
	Key              string
	Value            string
	CreatedAtUnixSec int64
	TTLSeconds       *int64
}

// tickInterval is the worker's receive timeout (5: "a short receive
// timeout (e.g. 100 ms)"), ported from the teacher's janitor.go ticker
// cadence but driven by a channel receive instead of a fixed scan.
const tickInterval = 100 * time.Millisecond

// Worker is the single-threaded background applier for I (4.C). It
// generalizes the teacher's startJanitor/ticker.C select loop
// (tempuscache's janitor.go) from "rescan the in-memory list" to "drain
// a queue, with a periodic prune as the timeout fallback action".
type Worker struct {
	store   *Store
	ops     chan Op
	stop    chan struct{}
	done    chan struct{}
	logger  zerolog.Logger
	healthy atomic.Bool

	// runID tags every log line from this worker instance, so warnings
	// from two Cache/Worker pairs sharing a process (e.g. in tests) don't
	// get attributed to the wrong store file.
	runID string
}

// NewWorker starts the background goroutine and returns the handle used
// to enqueue operations. The queue is buffered so a burst of mutations
// doesn't stall the caller; when it is full, Enqueue drops the new op
// and EnqueueBlocking waits (best-effort durability, 4.C).
func NewWorker(s *Store, logger zerolog.Logger) *Worker {
	w := &Worker{
		store:  s,
		ops:    make(chan Op, 1024),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
		runID:  uuid.NewString(),
	}
	w.healthy.Store(true)
	go w.run()
	return w
}

// Enqueue submits an op without blocking. It returns false if the queue
// is full or the worker has already been closed — callers must treat
// that as a dropped write, never as a reason to fail the in-memory
// operation (7: "Background worker errors ... never escape into the
// facade").
func (w *Worker) Enqueue(op Op) bool {
	select {
	case <-w.stop:
		return false
	default:
	}
	select {
	case w.ops <- op:
		return true
	default:
		return false
	}
}

// EnqueueBlocking submits an op, blocking until it is accepted or the
// worker is closed. The fan-out goroutine (fanout.go) uses this instead
// of Enqueue because a dropped durable write there is the one failure
// mode that ends fan-out entirely (4.D) rather than just losing one
// row, so it cannot tolerate a full queue silently discarding the op.
// It returns false only once the worker has been told to stop.
func (w *Worker) EnqueueBlocking(op Op) bool {
	select {
	case w.ops <- op:
		return true
	case <-w.stop:
		return false
	}
}

// Healthy reports whether the worker is still healthy; it turns false,
// for good, after the first failed write. The facade checks this before attempting
// further synchronous writes (7: "A failing worker degrades the cache
// to in-memory-only for the rest of its lifetime").
func (w *Worker) Healthy() bool {
	return w.healthy.Load()
}

// Close signals the worker to drain its queue and stop. It blocks until
// the worker goroutine has exited.
func (w *Worker) Close() {
	close(w.stop)
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case op := <-w.ops:
			if err := w.apply(op); err != nil {
				w.logger.Warn().Err(err).Str("run_id", w.runID).Str("op", opName(op.Kind)).Str("key", op.Key).Msg("store write failed")
			}
		case <-ticker.C:
			if err := w.store.PruneExpired(Now()); err != nil {
				w.logger.Warn().Err(err).Str("run_id", w.runID).Msg("store prune failed")
			}
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// drain flushes any ops already queued before the worker exits, so a
// Close doesn't discard writes that were already accepted by Enqueue.
func (w *Worker) drain() {
	for {
		select {
		case op := <-w.ops:
			if err := w.apply(op); err != nil {
				w.logger.Warn().Err(err).Str("run_id", w.runID).Str("op", opName(op.Kind)).Str("key", op.Key).Msg("store write failed during drain")
			}
		default:
			return
		}
	}
}

func (w *Worker) apply(op Op) error {
	var err error
	switch op.Kind {
	case OpUpsert:
		err = w.store.UpsertSync(op.Key, op.Value, op.CreatedAtUnixSec, op.TTLSeconds)
	case OpDelete:
		err = w.store.DeleteSync(op.Key)
	case OpClear:
		err = w.store.ClearSync()
	}
	if err != nil {
		// Any failed write flips the worker to unhealthy so the facade
		// stops attempting synchronous writes.
		w.healthy.Store(false)
	}
	return err
}

func opName(k OpKind) string {
	switch k {
	case OpUpsert:
		return "upsert"
	case OpDelete:
		return "delete"
	case OpClear:
		return "clear"
	default:
		return "unknown"
	}
}
