package events

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

// Sink is an egress target: actuation, notification, time series, metrics.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev models.Event) error
}

// AsyncSink decouples a sink from the engine loop with a bounded queue.
// When the queue is full the event is dropped, so delivery is at most once.
type AsyncSink struct {
	sink    Sink
	queue   chan models.Event
	dropped atomic.Uint64
	failed  atomic.Uint64
	onDrop  func(sink string)
	logger  *zap.Logger

	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	done      chan struct{}
}

func NewAsyncSink(sink Sink, size int, onDrop func(sink string)) *AsyncSink {
	if size <= 0 {
		size = 256
	}
	return &AsyncSink{
		sink:   sink,
		queue:  make(chan models.Event, size),
		onDrop: onDrop,
		done:   make(chan struct{}),
		logger: common.GetLoggerWith(common.LoggerNameDispatcher,
			zap.String(common.LoggerFieldCategory, common.LoggerCategoryEgress),
			zap.String("sink", sink.Name()),
		),
	}
}

// Start drains the queue until Close is called or ctx ends.
func (a *AsyncSink) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		go a.run(ctx)
	})
}

func (a *AsyncSink) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.queue:
			if !ok {
				return
			}
			if err := a.sink.Deliver(ctx, ev); err != nil {
				a.failed.Add(1)
				a.logger.Warn("Delivery failed", zap.String("event_type", string(ev.EventType())), zap.Error(err))
			}
		}
	}
}

// Handler enqueues without blocking; it never returns an error to the publisher.
func (a *AsyncSink) Handler() Handler {
	return func(_ context.Context, ev models.Event) error {
		a.Enqueue(ev)
		return nil
	}
}

func (a *AsyncSink) Enqueue(ev models.Event) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return false
	}
	select {
	case a.queue <- ev:
		return true
	default:
		a.dropped.Add(1)
		a.logger.Warn("Queue full, event dropped", zap.String("event_type", string(ev.EventType())))
		if a.onDrop != nil {
			a.onDrop(a.sink.Name())
		}
		return false
	}
}

// Close stops accepting events and waits for the queue to drain.
func (a *AsyncSink) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	a.startOnce.Do(func() { close(a.done) })
	<-a.done
}

func (a *AsyncSink) Dropped() uint64 { return a.dropped.Load() }
func (a *AsyncSink) Failed() uint64  { return a.failed.Load() }

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, ev models.Event) error
}

func (f SinkFunc) Name() string { return f.SinkName }
func (f SinkFunc) Deliver(ctx context.Context, ev models.Event) error {
	return f.Fn(ctx, ev)
}
