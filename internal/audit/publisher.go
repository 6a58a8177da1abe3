package audit

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
	shutdownFlushTimeout = 5 * time.Second
)

// Sink receives batches of events from the worker.
type Sink interface {
	Write(ctx context.Context, events []Event) error
}

// Publisher accepts events from request paths without blocking and hands
// them to a Sink from a single background loop.
type Publisher struct {
	buffer        *Buffer
	sink          Sink
	logger        *slog.Logger
	metrics       *Metrics
	batchSize     int
	flushInterval time.Duration
	wake          chan struct{}
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets the logger used for failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBufferSize bounds the number of undelivered events held in memory.
func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		p.buffer = NewBuffer(n)
	}
}

// WithBatchSize caps how many events go to the sink per write.
func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushInterval sets how often the worker drains the buffer when not
// woken by new events.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// NewPublisher creates a publisher that delivers to sink.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		buffer:        NewBuffer(defaultBufferSize),
		sink:          sink,
		logger:        slog.Default(),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		wake:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit enriches event from ctx and queues it. It never blocks on the sink
// and never fails the caller.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	event = event.enrich(ctx)
	if p.buffer.Push(event) {
		p.metrics.incDropped()
		p.logger.WarnContext(ctx, "audit buffer full, dropped oldest event",
			"action", string(event.Action),
			"dropped_total", p.buffer.Dropped(),
		)
	}
	p.metrics.incEmitted()
	p.metrics.setBuffered(p.buffer.Len())

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of events not yet handed to the sink.
func (p *Publisher) Pending() int {
	return p.buffer.Len()
}

// Run drains the buffer until ctx is cancelled, then flushes what is left
// with a bounded timeout.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			p.Flush(flushCtx)
			cancel()
			return nil
		case <-p.wake:
			p.Flush(ctx)
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush writes every buffered event to the sink in batches. Failed batches
// are logged and discarded.
func (p *Publisher) Flush(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		batch := p.buffer.PopBatch(p.batchSize)
		if len(batch) == 0 {
			p.metrics.setBuffered(0)
			return
		}
		if err := p.sink.Write(ctx, batch); err != nil {
			p.metrics.incSinkFailures()
			p.logger.ErrorContext(ctx, "audit sink write failed",
				"error", err,
				"batch_size", len(batch),
			)
			continue
		}
		p.metrics.addDelivered(len(batch))
		p.metrics.setBuffered(p.buffer.Len())
	}
}
