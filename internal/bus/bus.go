// Package bus carries "data changed" signals between independently
// constructed components. It is a plain observer: subscribers registered
// at dispatch time receive the event, late subscribers miss it, and no
// ordering is guaranteed across subscribers.
package bus

import (
	"sync"

	"github.com/sourcegraph/conc"
)

// Topic names a class of change events.
type Topic string

const (
	// TopicCartChanged fires after any cart mutation.
	TopicCartChanged Topic = "cart.changed"
	// TopicProfileChanged fires after any user/profile mutation.
	TopicProfileChanged Topic = "profile.changed"
	// TopicStoreChanged mirrors a mutation made by another process, the
	// equivalent of the browser's native storage event. Best effort only.
	TopicStoreChanged Topic = "store.changed"
)

// Event is the payload delivered to subscribers. It says what changed and
// for whom, never what the new state is; subscribers re-read on receipt.
type Event struct {
	Topic  Topic  `json:"topic"`
	UserID string `json:"userId,omitempty"`
	// Remote marks events injected by a relay from another process.
	Remote bool `json:"-"`
}

const subscriptionBuffer = 16

// Subscription is one subscriber's receive side. Consume from C; call
// Cancel when done.
type Subscription struct {
	C      chan Event
	topics map[Topic]bool
	bus    *Bus
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

// Cancel detaches the subscription and closes C.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.remove(s)
		s.mu.Lock()
		s.closed = true
		close(s.C)
		s.mu.Unlock()
	})
}

// deliver drops the oldest pending event instead of blocking when the
// subscriber's buffer is full.
func (s *Subscription) deliver(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.C <- evt:
		return
	default:
	}
	select {
	case <-s.C:
	default:
	}
	select {
	case s.C <- evt:
	default:
	}
}

// Bus fans events out to current subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs []*Subscription
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers interest in the given topics (all topics when none
// are named).
func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	sub := &Subscription{
		C:      make(chan Event, subscriptionBuffer),
		topics: make(map[Topic]bool, len(topics)),
		bus:    b,
	}
	for _, topic := range topics {
		sub.topics[topic] = true
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub
}

func (b *Bus) remove(target *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == target {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers evt to every matching subscriber. Delivery never
// blocks the publisher: a subscriber that has fallen subscriptionBuffer
// events behind loses its oldest pending event.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if len(sub.topics) == 0 || sub.topics[evt.Topic] {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	var wg conc.WaitGroup
	for _, sub := range targets {
		wg.Go(func() {
			sub.deliver(evt)
		})
	}
	wg.Wait()
}
