package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultQueueSize bounds the pending writes.
const DefaultQueueSize = 256

const writeTimeout = 5 * time.Second

type entry struct {
	decision *Decision
	event    *Event
}

// Writer queues records and writes them on a background goroutine. Record
// calls never block: a full queue drops the record with a warning.
type Writer struct {
	db    *DB
	log   *zap.Logger
	queue chan entry

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64

	wg sync.WaitGroup
}

// NewWriter starts the background goroutine. Close flushes and stops it.
func NewWriter(db *DB, log *zap.Logger, queueSize int) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	w := &Writer{db: db, log: log, queue: make(chan entry, queueSize)}
	w.wg.Add(1)
	go w.loop()
	return w
}

// RecordDecision enqueues d.
func (w *Writer) RecordDecision(d Decision) { w.enqueue(entry{decision: &d}) }

// RecordEvent enqueues ev.
func (w *Writer) RecordEvent(ev Event) { w.enqueue(entry{event: &ev}) }

func (w *Writer) enqueue(e entry) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.queue <- e:
	default:
		n := w.dropped.Add(1)
		w.log.Warn("journal queue full, dropping record", zap.Int64("dropped_total", n))
	}
}

// Dropped counts records lost to a full queue.
func (w *Writer) Dropped() int64 { return w.dropped.Load() }

// Close drains the queue and waits for pending writes. It does not close db.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for e := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		var err error
		switch {
		case e.decision != nil:
			err = w.db.InsertDecision(ctx, *e.decision)
		case e.event != nil:
			err = w.db.InsertEvent(ctx, *e.event)
		}
		cancel()
		if err != nil {
			w.log.Warn("journal write failed", zap.Error(err))
		}
	}
}
