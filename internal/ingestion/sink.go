package ingestion

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/domain"
)

// Sink consumes decoded domain events.
type Sink interface {
	Handle(ctx context.Context, ev domain.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev domain.Event) error

// Handle implements Sink.
func (f SinkFunc) Handle(ctx context.Context, ev domain.Event) error { return f(ctx, ev) }

// DefaultWriteTimeout bounds a single durable write.
const DefaultWriteTimeout = 30 * time.Second

// Dispatcher routes every event to the durable sink and then to the
// broadcast sinks.
//
// The durable write runs on a context detached from cancellation so a
// shutdown never interrupts it halfway. Broadcast sinks only see events the
// durable sink accepted; their errors are logged and never retried.
type Dispatcher struct {
	durable      Sink
	broadcast    []Sink
	writeTimeout time.Duration
	logger       *logrus.Entry
}

// NewDispatcher creates a dispatcher. durable may be nil.
func NewDispatcher(durable Sink, broadcast ...Sink) *Dispatcher {
	return &Dispatcher{
		durable:      durable,
		broadcast:    broadcast,
		writeTimeout: DefaultWriteTimeout,
		logger:       logrus.WithField("component", "dispatcher"),
	}
}

// WithLogger sets the logger.
func (d *Dispatcher) WithLogger(logger *logrus.Entry) *Dispatcher {
	d.logger = logger
	return d
}

// Dispatch delivers one event. The returned error is a durable-write
// failure the caller must retry.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) error {
	if d.durable != nil {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.writeTimeout)
		err := d.durable.Handle(writeCtx, ev)
		cancel()
		if err != nil {
			return err
		}
	}

	for _, s := range d.broadcast {
		if err := s.Handle(ctx, ev); err != nil {
			d.logger.WithError(err).WithField("event", ev.Type()).Warn("broadcast sink failed")
		}
	}
	return nil
}
