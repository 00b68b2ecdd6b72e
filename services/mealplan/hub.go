package mealplan

import "sync"

// Publisher fans a diff out to whoever is interested in "today's menu
// changed". Delivery is best-effort.
type Publisher interface {
	Publish(diff CanteenMealDiff)
}

const subscriberBuffer = 8

// DiffHub is the in-process broadcast implementation of Publisher. Each
// subscriber owns a buffered channel; a subscriber that cannot keep up
// misses notifications instead of blocking the publisher or its
// siblings.
type DiffHub struct {
	mu          sync.Mutex
	subscribers map[chan CanteenMealDiff]struct{}
}

func NewDiffHub() *DiffHub {
	return &DiffHub{
		subscribers: make(map[chan CanteenMealDiff]struct{}),
	}
}

// Subscribe returns a receive channel and a cancel function. The
// channel is closed on cancel.
func (h *DiffHub) Subscribe() (<-chan CanteenMealDiff, func()) {
	ch := make(chan CanteenMealDiff, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		_, ok := h.subscribers[ch]
		delete(h.subscribers, ch)
		h.mu.Unlock()
		if ok {
			close(ch)
		}
	}
	return ch, cancel
}

func (h *DiffHub) Publish(diff CanteenMealDiff) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- diff:
		default:
			// subscriber's buffer is full, it misses this one
		}
	}
}
