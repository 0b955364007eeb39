package notifications

import (
	"context"
	"errors"
	"sync"
)

const (
	// subscriberBuffer is the number of events queued per stream before new
	// events for that stream are dropped.
	subscriberBuffer = 8
	// maxSubscribers caps open result streams per process.
	maxSubscribers = 5000
)

// ErrHubFull is returned when the subscriber limit is reached.
var ErrHubFull = errors.New("results hub subscriber limit reached")

// ErrHubClosed is returned after Shutdown.
var ErrHubClosed = errors.New("results hub is shut down")

// Hub fans vote events out to the live result streams open in this process.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint]map[chan VoteEvent]struct{}
	total  int
	closed bool
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "results hub" }

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint]map[chan VoteEvent]struct{})}
}

// Subscribe registers a stream for questionID. The returned cancel func must
// be called once the stream ends; the channel is closed on cancel or Shutdown.
func (h *Hub) Subscribe(questionID uint) (<-chan VoteEvent, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, nil, ErrHubClosed
	}
	if h.total >= maxSubscribers {
		return nil, nil, ErrHubFull
	}

	ch := make(chan VoteEvent, subscriberBuffer)
	m, ok := h.subs[questionID]
	if !ok {
		m = make(map[chan VoteEvent]struct{})
		h.subs[questionID] = m
	}
	m[ch] = struct{}{}
	h.total++

	var once sync.Once
	cancel := func() {
		once.Do(func() { h.unsubscribe(questionID, ch) })
	}
	return ch, cancel, nil
}

func (h *Hub) unsubscribe(questionID uint, ch chan VoteEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.subs[questionID]
	if !ok {
		return
	}
	if _, exists := m[ch]; !exists {
		return
	}
	delete(m, ch)
	close(ch)
	h.total--
	if len(m) == 0 {
		delete(h.subs, questionID)
	}
}

// Broadcast delivers ev to every stream of its question without blocking.
func (h *Hub) Broadcast(ev VoteEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.QuestionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of open streams for questionID.
func (h *Hub) Subscribers(questionID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[questionID])
}

// StartWiring forwards vote events received from Redis into this hub.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartVoteSubscriber(ctx, h.Broadcast)
}

// Shutdown closes every open stream.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, m := range h.subs {
		for ch := range m {
			close(ch)
		}
	}
	h.subs = make(map[uint]map[chan VoteEvent]struct{})
	h.total = 0
	return nil
}
