// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"sync"

	"github.com/samber/lo"
)

const subscriptionBuffer = 10

// Subscription is one open stream on a topic. Messages arrive on C until
// Close is called; C is closed afterwards.
type Subscription struct {
	C <-chan string

	ch         chan string
	topic      string
	subscriber string
	hub        *Hub
	once       sync.Once
}

// Close detaches the subscription from its hub. It is safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Stats is a snapshot of the hub.
type Stats struct {
	Streams     int
	Topics      int
	Subscribers int
}

// Hub fans messages out to subscriptions grouped by topic. Results
// streams use the voting event ID as topic and the admin ID as subscriber,
// so one admin may watch several events from several tabs.
type Hub struct {
	mu     sync.RWMutex
	topics map[string][]*Subscription
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string][]*Subscription)}
}

// Subscribe opens a buffered subscription on topic.
func (h *Hub) Subscribe(topic, subscriber string) *Subscription {
	ch := make(chan string, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, topic: topic, subscriber: subscriber, hub: h}

	h.mu.Lock()
	h.topics[topic] = append(h.topics[topic], sub)
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rest := lo.Without(h.topics[sub.topic], sub)
	if len(rest) == 0 {
		delete(h.topics, sub.topic)
	} else {
		h.topics[sub.topic] = rest
	}
	close(sub.ch)
}

// Publish queues message for every subscription on topic and returns how
// many accepted it. A subscription whose buffer is full misses the message;
// the next results frame supersedes it anyway.
func (h *Hub) Publish(topic, message string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.topics[topic] {
		select {
		case sub.ch <- message:
			delivered++
		default:
		}
	}
	return delivered
}

// HasSubscribers reports whether any stream is open on topic.
func (h *Hub) HasSubscribers(topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic]) > 0
}

// Stats counts open streams, topics and distinct subscribers.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	all := lo.Flatten(lo.Values(h.topics))
	subscribers := lo.Uniq(lo.Map(all, func(s *Subscription, _ int) string { return s.subscriber }))
	return Stats{
		Streams:     len(all),
		Topics:      len(h.topics),
		Subscribers: len(subscribers),
	}
}
