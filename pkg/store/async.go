package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-headpilot/internal/log"
)

// AsyncWriter saves snapshots on a background goroutine so callers on the
// frame path never wait on disk. Only the newest pending snapshot is kept:
// when a write is still queued, it is replaced.
type AsyncWriter struct {
	name  string
	store Store
	queue chan []byte
	done  chan struct{}

	mu     sync.Mutex
	closed bool

	written  atomic.Uint64
	replaced atomic.Uint64
	failed   atomic.Uint64
}

// WriterStats reports AsyncWriter activity.
type WriterStats struct {
	Written  uint64 `json:"written"`
	Replaced uint64 `json:"replaced"`
	Failed   uint64 `json:"failed"`
}

// NewAsyncWriter starts a writer for s. name labels log lines.
func NewAsyncWriter(name string, s Store) *AsyncWriter {
	w := &AsyncWriter{
		name:  name,
		store: s,
		queue: make(chan []byte, 1),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *AsyncWriter) run() {
	defer close(w.done)
	for data := range w.queue {
		if err := w.store.Save(data); err != nil {
			w.failed.Add(1)
			log.Warn("persist failed", "store", w.name, "error", err)
			continue
		}
		w.written.Add(1)
	}
}

// WriteJSON snapshots v and queues it for saving. It never blocks.
func (w *AsyncWriter) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return w.Write(data)
}

// Write queues data for saving, replacing any snapshot still waiting.
func (w *AsyncWriter) Write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	select {
	case w.queue <- data:
		return nil
	default:
	}

	// Queue holds a stale snapshot; swap it for this one. Senders are
	// serialized by mu, so the slot is free after the drain.
	select {
	case <-w.queue:
		w.replaced.Add(1)
	default:
	}
	w.queue <- data
	return nil
}

// Stats returns counters for the writer.
func (w *AsyncWriter) Stats() WriterStats {
	return WriterStats{
		Written:  w.written.Load(),
		Replaced: w.replaced.Load(),
		Failed:   w.failed.Load(),
	}
}

// Close flushes the pending snapshot and stops the writer.
func (w *AsyncWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done
	return w.store.Close()
}
