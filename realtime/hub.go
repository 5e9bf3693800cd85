// Package realtime fans change events out to topic subscribers.
//
// Delivery is subscribe-and-append: events of a topic reach each subscriber in publishing order,
// nothing is replayed, and a subscriber that cannot keep up is dropped.
package realtime

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const DefaultBuffer = 64

var ErrClosed = errors.New("realtime: closed")

// Broker publishes events and hands out subscriptions.
type Broker interface {
	core.EventPublisher
	Subscribe(topic string) (*Subscription, error)
	Close() error
}

type Subscription struct {
	topic string
	ch    chan core.Event
	hub   *Hub
}

func (s *Subscription) Topic() string { return s.topic }

// Events is closed when the subscription ends: on Close, when the hub closes or when the subscriber is too slow.
func (s *Subscription) Events() <-chan core.Event { return s.ch }

func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub is an in-process Broker.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[*Subscription]struct{}
	buffer int
	closed bool
	logger core.Logger
}

var _ Broker = (*Hub)(nil)

func NewHub(buffer int, logger core.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

func (h *Hub) Subscribe(topic string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	sub := &Subscription{topic: topic, ch: make(chan core.Event, h.buffer), hub: h}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub, nil
}

// Publish never blocks: subscribers whose buffer is full are dropped.
func (h *Hub) Publish(_ context.Context, evt core.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for sub := range h.topics[evt.Topic] {
		select {
		case sub.ch <- evt:
		default:
			h.logger.Warn("realtime: dropping slow subscriber of " + evt.Topic)
			h.removeLocked(sub)
		}
	}
	return nil
}

// Subscribers returns the number of subscribers of `topic`.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

// Close ends every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, subs := range h.topics {
		for sub := range subs {
			close(sub.ch)
		}
	}
	h.topics = nil
	return nil
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	subs, ok := h.topics[sub.topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, sub.topic)
	}
	close(sub.ch)
}
