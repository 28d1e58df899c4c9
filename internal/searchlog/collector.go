package searchlog

import (
	"context"
	"log/slog"

	"github.com/deepsearch-io/deepsearch/pkg/kafka"
)

// Collector buffers search events and publishes them to Kafka in the
// background. Track never blocks; events are dropped with a warning
// when the buffer is full.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan SearchEvent
	logger   *slog.Logger
	done     chan struct{}
}

// NewCollector creates a Collector with the given buffer size.
func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan SearchEvent, bufferSize),
		logger:   slog.Default().With("component", "searchlog-collector"),
		done:     make(chan struct{}),
	}
}

// Start launches the publish loop.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				if err := c.producer.Publish(ctx, kafka.Event{
					Key:   event.Query,
					Value: event,
				}); err != nil {
					c.logger.Error("failed to publish search event", "error", err)
				}
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("searchlog collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event without blocking the caller.
func (c *Collector) Track(event SearchEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("search event dropped (buffer full)")
	}
}

// Close flushes buffered events and stops the publish loop.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			if err := c.producer.Publish(context.Background(), kafka.Event{
				Key:   event.Query,
				Value: event,
			}); err != nil {
				c.logger.Error("failed to publish remaining event", "error", err)
			}
		default:
			return
		}
	}
}

// HandleEvent returns a Kafka MessageHandler that writes search events
// through the store. Store failures are logged and the message is
// still committed; search history is best effort.
func HandleEvent(store *Store) kafka.MessageHandler {
	logger := slog.Default().With("component", "searchlog-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			logger.Error("failed to decode search event", "error", err)
			return nil
		}
		if err := store.Log(ctx, event); err != nil {
			logger.Error("failed to store search event", "query", event.Query, "error", err)
		}
		return nil
	}
}
