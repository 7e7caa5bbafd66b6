// Package feed fans engine state snapshots out to live subscribers, such as
// the HTTP event stream.
package feed

import (
	"sync"
	"sync/atomic"

	"github.com/okian/statline/internal/domain/engine"
	"github.com/okian/statline/pkg/metrics"
	"github.com/puzpuzpuz/xsync/v4"
)

const defaultBuffer = 8

// Option applies a configuration option to the Broker.
type Option func(*Broker)

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// subscriber owns one outgoing channel. Sends never block: when the channel is
// full the oldest snapshot is discarded so the reader always catches up to the
// newest state.
type subscriber struct {
	ch     chan engine.State
	mu     sync.Mutex
	sent   bool
	closed bool
}

func (s *subscriber) trySend(state engine.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.sent = true
	for {
		select {
		case s.ch <- state:
			return
		default:
		}
		select {
		case <-s.ch:
			metrics.RecordStreamDropped()
		default:
		}
	}
}

// seed delivers the initial snapshot unless a publish already got there first.
func (s *subscriber) seed(state engine.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent || s.closed {
		return
	}
	s.sent = true
	select {
	case s.ch <- state:
	default:
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

type topic = xsync.Map[uint64, *subscriber]

// Broker keeps subscribers per session.
type Broker struct {
	topics *xsync.Map[string, *topic]
	nextID atomic.Uint64
	count  *xsync.Counter
	buffer int
}

// NewBroker creates an empty broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		topics: xsync.NewMap[string, *topic](),
		count:  xsync.NewCounter(),
		buffer: defaultBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a subscriber for the session and seeds it with current().
// The returned function unsubscribes and closes the channel; it is safe to call
// more than once.
//
//	ch, unsubscribe := b.Subscribe(id, eng.State)
//	defer unsubscribe()
func (b *Broker) Subscribe(sessionID string, current func() engine.State) (<-chan engine.State, func()) {
	id := b.nextID.Add(1)
	sub := &subscriber{ch: make(chan engine.State, b.buffer)}

	subs, _ := b.topics.LoadOrStore(sessionID, xsync.NewMap[uint64, *subscriber]())
	subs.Store(id, sub)
	b.count.Inc()
	metrics.UpdateStreamSubscribers(int(b.count.Value()))

	if current != nil {
		sub.seed(current())
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			if removed, ok := subs.LoadAndDelete(id); ok {
				removed.close()
				b.count.Dec()
				metrics.UpdateStreamSubscribers(int(b.count.Value()))
			}
		})
	}
	return sub.ch, unsubscribe
}

// Publish delivers a snapshot to every subscriber of the session.
func (b *Broker) Publish(sessionID string, state engine.State) {
	subs, ok := b.topics.Load(sessionID)
	if !ok {
		return
	}
	subs.Range(func(_ uint64, sub *subscriber) bool {
		sub.trySend(state.Clone())
		return true
	})
}

// Close ends every subscription to the session, e.g. when it is deleted.
func (b *Broker) Close(sessionID string) {
	subs, ok := b.topics.LoadAndDelete(sessionID)
	if !ok {
		return
	}
	subs.Range(func(id uint64, sub *subscriber) bool {
		if _, ok := subs.LoadAndDelete(id); ok {
			sub.close()
			b.count.Dec()
		}
		return true
	})
	metrics.UpdateStreamSubscribers(int(b.count.Value()))
}

// CloseAll ends every subscription.
func (b *Broker) CloseAll() {
	b.topics.Range(func(sessionID string, _ *topic) bool {
		b.Close(sessionID)
		return true
	})
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	return int(b.count.Value())
}
