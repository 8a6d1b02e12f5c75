// Package stream fans dashboard snapshots out to live subscribers.
package stream

import (
	"context"
	"sync"
	"time"

	"zellax/internal/journal"
)

// HubConfig holds configuration for the snapshot hub.
type HubConfig struct {
	// BufferSize is the size of the internal publish channel buffer.
	BufferSize int
	// SubscriberBufferSize is the size of each subscriber's channel buffer.
	SubscriberBufferSize int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BufferSize:           16,
		SubscriberBufferSize: 4,
	}
}

// Hub distributes dashboard snapshots from a single producer to any number
// of subscribers. Sends never block the producer: a subscriber whose buffer
// is full loses its oldest pending snapshot.
type Hub struct {
	config      HubConfig
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	latest      *journal.Dashboard
	publishCh   chan journal.Dashboard
	done        chan struct{}
	started     bool

	// Metrics
	published uint64
	delivered uint64
	dropped   uint64
	metricsMu sync.Mutex
}

// Subscriber is one consumer of the snapshot feed.
type Subscriber struct {
	ID           string
	C            chan journal.Dashboard
	DroppedCount int
	CreatedAt    time.Time
}

// HubMetrics contains hub counters.
type HubMetrics struct {
	Published   uint64
	Delivered   uint64
	Dropped     uint64
	Subscribers int
}

// NewHub creates a hub with the default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a hub with a custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	if config.BufferSize <= 0 {
		config.BufferSize = 1
	}
	if config.SubscriberBufferSize <= 0 {
		config.SubscriberBufferSize = 1
	}
	return &Hub{
		config:      config,
		subscribers: make(map[*Subscriber]struct{}),
		publishCh:   make(chan journal.Dashboard, config.BufferSize),
		done:        make(chan struct{}),
	}
}

// Start begins the distribution loop. It returns immediately; the loop ends
// when ctx is done or Stop is called.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return
	}
	h.started = true
	go h.broadcastLoop(ctx)
}

func (h *Hub) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case d := <-h.publishCh:
			h.broadcast(d)
		}
	}
}

// Stop ends the distribution loop and closes every subscriber channel.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return
	}
	h.started = false
	close(h.done)

	for sub := range h.subscribers {
		close(sub.C)
		delete(h.subscribers, sub)
	}
}

// Subscribe registers a subscriber. When a snapshot has already been
// published, the newest one is queued for it straight away.
func (h *Hub) Subscribe(id string) *Subscriber {
	sub := &Subscriber{
		ID:        id,
		C:         make(chan journal.Dashboard, h.config.SubscriberBufferSize),
		CreatedAt: time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest != nil {
		sub.C <- *h.latest
	}
	h.subscribers[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Calling it for a
// subscriber that is already gone is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub]; !ok {
		return
	}
	delete(h.subscribers, sub)
	close(sub.C)
}

// Publish hands a snapshot to the hub for distribution. It never blocks; if
// the internal buffer is full the snapshot is dropped.
func (h *Hub) Publish(d journal.Dashboard) {
	h.metricsMu.Lock()
	h.published++
	h.metricsMu.Unlock()

	select {
	case h.publishCh <- d:
	default:
		h.metricsMu.Lock()
		h.dropped++
		h.metricsMu.Unlock()
	}
}

// broadcast sends a snapshot to every subscriber without blocking.
func (h *Hub) broadcast(d journal.Dashboard) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = &d
	for sub := range h.subscribers {
		if h.offer(sub, d) {
			h.metricsMu.Lock()
			h.delivered++
			h.metricsMu.Unlock()
		}
	}
}

// offer queues d for sub, evicting the oldest pending snapshot when the
// buffer is full. The caller holds h.mu.
func (h *Hub) offer(sub *Subscriber, d journal.Dashboard) bool {
	select {
	case sub.C <- d:
		return true
	default:
	}

	select {
	case <-sub.C:
		sub.DroppedCount++
		h.metricsMu.Lock()
		h.dropped++
		h.metricsMu.Unlock()
	default:
	}

	select {
	case sub.C <- d:
		return true
	default:
		return false
	}
}

// Latest returns the most recently broadcast snapshot.
func (h *Hub) Latest() (journal.Dashboard, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return journal.Dashboard{}, false
	}
	return *h.latest, true
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// GetMetrics returns hub metrics.
func (h *Hub) GetMetrics() HubMetrics {
	subs := h.SubscriberCount()

	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	return HubMetrics{
		Published:   h.published,
		Delivered:   h.delivered,
		Dropped:     h.dropped,
		Subscribers: subs,
	}
}
