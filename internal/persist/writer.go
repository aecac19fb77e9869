package persist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/coachbook/internal/durable"
)

// DefaultWriteTimeout bounds a single adapter write.
const DefaultWriteTimeout = 10 * time.Second

// Writer accepts serialized collections for durable storage.
//
// Write never returns an error: failures are logged by the writer and the
// payload is dropped. Close flushes whatever the writer still holds.
type Writer interface {
	Write(key string, payload []byte)
	Close(ctx context.Context) error
}

// Stats counts writer outcomes.
type Stats struct {
	Written int64
	Skipped int64
	Failed  int64
}

type counters struct {
	written atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{Written: c.written.Load(), Skipped: c.skipped.Load(), Failed: c.failed.Load()}
}

// payloadDigest hashes a payload with its key as domain prefix.
// Format: SHA256(key + 0x00 + payload)
func payloadDigest(key string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(key))
	h.Write([]byte{0x00})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	logger  *slog.Logger
	timeout time.Duration
}

// WithWriterLogger sets the logger for write failures.
func WithWriterLogger(l *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.logger = l }
}

// WithWriteTimeout bounds each adapter write.
//
// Default: 10s (DefaultWriteTimeout)
func WithWriteTimeout(d time.Duration) WriterOption {
	return func(c *writerConfig) { c.timeout = d }
}

func newWriterConfig(opts []WriterOption) writerConfig {
	cfg := writerConfig{logger: slog.Default(), timeout: DefaultWriteTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// AsyncWriter queues writes and applies them in order on one goroutine.
//
// A payload identical to the last successfully written payload for the same
// key is skipped. Failed writes are logged and dropped, never retried.
//
// Thread-safety model:
//   - Write(): safe from any goroutine, never blocks on storage
//   - Close(): safe from any goroutine; later writes are dropped
type AsyncWriter struct {
	adapter durable.Adapter
	cfg     writerConfig
	queue   *writeQueue
	done    chan struct{}
	stats   counters

	// digests is owned by the drain goroutine.
	digests map[string]string
}

// NewAsyncWriter starts the drain goroutine.
func NewAsyncWriter(adapter durable.Adapter, opts ...WriterOption) *AsyncWriter {
	w := &AsyncWriter{
		adapter: adapter,
		cfg:     newWriterConfig(opts),
		queue:   newWriteQueue(),
		done:    make(chan struct{}),
		digests: make(map[string]string),
	}
	go w.run()
	return w
}

// Write enqueues payload for key.
func (w *AsyncWriter) Write(key string, payload []byte) {
	if !w.queue.Enqueue(write{key: key, payload: payload}) {
		w.cfg.logger.Warn("durable write dropped: writer closed", "key", key)
	}
}

// Close stops accepting writes and waits until the queue is drained or ctx ends.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.queue.Close()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the outcome counters.
func (w *AsyncWriter) Stats() Stats { return w.stats.snapshot() }

// Pending returns the number of queued writes.
func (w *AsyncWriter) Pending() int { return w.queue.Len() }

func (w *AsyncWriter) run() {
	defer close(w.done)

	for {
		if next, ok := w.queue.TryDequeue(); ok {
			w.apply(next)
			continue
		}

		<-w.queue.Wait()
		// The signal channel closes with the queue; a closed, empty
		// queue ends the loop.
		if w.queue.Drained() {
			return
		}
	}
}

func (w *AsyncWriter) apply(next write) {
	digest := payloadDigest(next.key, next.payload)
	if w.digests[next.key] == digest {
		w.stats.skipped.Add(1)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.timeout)
	defer cancel()

	if err := w.adapter.Set(ctx, next.key, next.payload); err != nil {
		w.stats.failed.Add(1)
		w.cfg.logger.Error("durable write failed",
			"key", next.key,
			"bytes", len(next.payload),
			"error", err)
		return
	}

	w.digests[next.key] = digest
	w.stats.written.Add(1)
	w.cfg.logger.Debug("durable write", "key", next.key, "bytes", len(next.payload))
}

// DirectWriter writes inline on the caller's goroutine. Failures are logged
// and dropped just like AsyncWriter's.
type DirectWriter struct {
	adapter durable.Adapter
	cfg     writerConfig
	stats   counters
}

// NewDirectWriter creates a synchronous writer.
func NewDirectWriter(adapter durable.Adapter, opts ...WriterOption) *DirectWriter {
	return &DirectWriter{adapter: adapter, cfg: newWriterConfig(opts)}
}

// Write stores payload before returning.
func (w *DirectWriter) Write(key string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.timeout)
	defer cancel()

	if err := w.adapter.Set(ctx, key, payload); err != nil {
		w.stats.failed.Add(1)
		w.cfg.logger.Error("durable write failed", "key", key, "error", err)
		return
	}
	w.stats.written.Add(1)
}

// Close is a no-op.
func (w *DirectWriter) Close(context.Context) error { return nil }

// Stats returns the outcome counters.
func (w *DirectWriter) Stats() Stats { return w.stats.snapshot() }
