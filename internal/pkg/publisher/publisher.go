// Package publisher fans engine/scheduler events out to external
// push/chat/notification collaborators, N registered subscribers each
// consuming from its own bounded channel.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// Sink receives every event a subscriber's buffer delivers. Sinks run their
// own Run loop over the channel returned by Subscribe; the publisher itself
// only owns fan-out and back-pressure.
type Sink interface {
	Name() string
	Send(ctx context.Context, event models.Event) error
}

type subscriber struct {
	name    string
	ch      chan models.Event
	dropped atomic.Int64
}

// Publisher is the event fan-out: one subscribe/unsubscribe registration
// API plus one event channel per subscriber, with a bounded
// buffer and drop-oldest overflow so one slow consumer never blocks the
// pipeline.
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	bufferSize  int
	logger      *slog.Logger
}

func New(bufferSize int, logger *slog.Logger) *Publisher {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{subscribers: make(map[string]*subscriber), bufferSize: bufferSize, logger: logger}
}

// Subscribe registers name and returns the channel it will receive events
// on. Calling Subscribe twice with the same name replaces the prior
// registration.
func (p *Publisher) Subscribe(name string) <-chan models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	sub := &subscriber{name: name, ch: make(chan models.Event, p.bufferSize)}
	p.subscribers[name] = sub
	return sub.ch
}

// Unsubscribe removes name and closes its channel.
func (p *Publisher) Unsubscribe(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sub, ok := p.subscribers[name]; ok {
		close(sub.ch)
		delete(p.subscribers, name)
	}
}

// Publish delivers event to every subscriber. Events for the same match
// must be published in order by the caller; Publish itself never reorders or
// parallelizes a single call's delivery across subscribers' buffers.
func (p *Publisher) Publish(event models.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, sub := range p.subscribers {
		select {
		case sub.ch <- event:
		default:
			// Buffer full: drop the oldest queued event to make room,
			// rather than block the pipeline on a slow consumer.
			select {
			case <-sub.ch:
				sub.dropped.Add(1)
			default:
			}
			select {
			case sub.ch <- event:
			default:
				sub.dropped.Add(1)
			}
		}
	}
}

// DroppedCount reports how many events have been dropped for name since
// startup, for the /stats surface.
func (p *Publisher) DroppedCount(name string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if sub, ok := p.subscribers[name]; ok {
		return sub.dropped.Load()
	}
	return 0
}

// RunSink drains ch through sink until ctx is cancelled, logging send
// failures without stopping the loop — a single bad delivery must not
// starve the rest of the cycle's events.
func RunSink(ctx context.Context, sink Sink, ch <-chan models.Event, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := sink.Send(ctx, event); err != nil {
				logger.Error("publisher: sink send failed", "sink", sink.Name(), "error", err)
			}
		}
	}
}
