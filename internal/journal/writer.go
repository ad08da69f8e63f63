package journal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	"github.com/AarushDarne/shelftrack-webapp/pkg/metrics"
)

const (
	defaultFlushInterval = 250 * time.Millisecond
	defaultBatchSize     = 100
	defaultWriteTimeout  = 5 * time.Second
	maxRetryBackoff      = 30 * time.Second
)

// Sink persists a batch of changesets atomically and in order.
type Sink interface {
	Persist(ctx context.Context, batch []Changeset) error
}

// WriterParams configure the background journal writer.
type WriterParams struct {
	Queue         *Queue
	Sink          Sink
	Logger        *logger.Logger
	Metrics       *metrics.CirculationMetrics
	FlushInterval time.Duration
	BatchSize     int
	WriteTimeout  time.Duration
}

// Writer drains the queue into the sink, retrying failed batches.
type Writer struct {
	queue         *Queue
	sink          Sink
	logg          *logger.Logger
	metrics       *metrics.CirculationMetrics
	flushInterval time.Duration
	batchSize     int
	writeTimeout  time.Duration
}

// NewWriter validates params and builds a Writer.
func NewWriter(params WriterParams) (*Writer, error) {
	if params.Queue == nil {
		return nil, fmt.Errorf("journal queue required")
	}
	if params.Sink == nil {
		return nil, fmt.Errorf("journal sink required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	w := &Writer{
		queue:         params.Queue,
		sink:          params.Sink,
		logg:          params.Logger,
		metrics:       params.Metrics,
		flushInterval: params.FlushInterval,
		batchSize:     params.BatchSize,
		writeTimeout:  params.WriteTimeout,
	}
	if w.flushInterval <= 0 {
		w.flushInterval = defaultFlushInterval
	}
	if w.batchSize <= 0 {
		w.batchSize = defaultBatchSize
	}
	if w.writeTimeout <= 0 {
		w.writeTimeout = defaultWriteTimeout
	}
	return w, nil
}

// Run persists changesets until ctx is canceled, then makes one final drain
// attempt bounded by the write timeout.
func (w *Writer) Run(ctx context.Context) error {
	ctx = w.logg.WithField(ctx, "component", "journal")
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return w.shutdown(ctx)
		case <-w.queue.Ready():
		case <-ticker.C:
		}

		if err := w.Flush(ctx); err != nil {
			failures++
			backoff := w.backoff(failures)
			w.logg.Error(w.logg.WithFields(ctx, map[string]any{
				"pending":    w.queue.Len(),
				"attempt":    failures,
				"backoff_ms": backoff.Milliseconds(),
			}), "journal flush failed", err)
			select {
			case <-ctx.Done():
				return w.shutdown(ctx)
			case <-time.After(backoff):
			}
			continue
		}
		failures = 0
	}
}

// Flush persists everything currently queued. A failed batch is restored to
// the head of the queue and the error returned.
func (w *Writer) Flush(ctx context.Context) error {
	for {
		batch := w.queue.take(w.batchSize)
		if len(batch) == 0 {
			return nil
		}
		writeCtx, cancel := context.WithTimeout(ctx, w.writeTimeout)
		err := w.sink.Persist(writeCtx, batch)
		cancel()
		if err != nil {
			w.queue.putBack(batch)
			w.metrics.IncJournalFailure()
			return err
		}
		w.metrics.AddJournalFlushed(len(batch))
		w.metrics.SetJournalPending(w.queue.Len())
	}
}

func (w *Writer) shutdown(ctx context.Context) error {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.writeTimeout)
	defer cancel()
	flushErr := w.Flush(drainCtx)
	if flushErr != nil {
		w.logg.Error(w.logg.WithField(ctx, "pending", w.queue.Len()), "journal final flush failed", flushErr)
	} else {
		w.logg.Info(ctx, "journal drained")
	}
	return multierr.Combine(flushErr, ctx.Err())
}

func (w *Writer) backoff(failures int) time.Duration {
	d := w.flushInterval
	for i := 1; i < failures && d < maxRetryBackoff; i++ {
		d *= 2
	}
	if d > maxRetryBackoff {
		d = maxRetryBackoff
	}
	return d
}
