package notification

import (
	"context"
	"errors"

	"trade-orders/src/helpers"
	"trade-orders/src/logger"
)

var (
	ErrHubStopped       = errors.New("notification hub stopped")
	ErrSubscriberClosed = errors.New("subscriber already closed")
)

// -----------------------------------------------------------------------------
// Subscriber
// -----------------------------------------------------------------------------

// Subscriber is one live real-time channel. The Hub is its only writer.
type Subscriber interface {
	// Send queues message for delivery without blocking. An error means the
	// channel is broken or too slow and must be dropped.
	Send(message string) error

	// Close ends the outbound stream. Called once, by the Hub, on unregister.
	Close()

	// Done is closed once the subscriber is closed or its connection is gone.
	Done() <-chan struct{}
}

// -----------------------------------------------------------------------------
// Hub
// -----------------------------------------------------------------------------

type registration struct {
	subscriber Subscriber
	result     chan error
}

type removal struct {
	subscriber Subscriber
	done       chan struct{}
}

type delivery struct {
	message string
	result  chan int
}

// Hub owns the set of registered subscribers. A single loop goroutine (Run)
// serialises register, unregister and broadcast, so every subscriber observes
// broadcasts in the order the loop accepted them and a failed subscriber is
// removed before the next broadcast starts.
type Hub struct {
	logger *logger.Logger

	subscribers map[Subscriber]struct{}

	register   chan registration
	unregister chan removal
	broadcast  chan delivery
	count      chan chan int

	stopped chan struct{}
}

// -----------------------------------------------------------------------------

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:      log,
		subscribers: make(map[Subscriber]struct{}),
		register:    make(chan registration),
		unregister:  make(chan removal),
		broadcast:   make(chan delivery),
		count:       make(chan chan int),
		stopped:     make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Run is the Hub loop. It must be started exactly once and returns when ctx
// is cancelled, after closing every remaining subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			for sub := range h.subscribers {
				h.drop(sub)
			}
			h.logger.Info("Notification hub stopped")
			return

		case r := <-h.register:
			r.result <- h.add(r.subscriber)

		case r := <-h.unregister:
			if _, ok := h.subscribers[r.subscriber]; ok {
				h.drop(r.subscriber)
			}
			close(r.done)

		case d := <-h.broadcast:
			d.result <- h.fanOut(d.message)

		case reply := <-h.count:
			reply <- len(h.subscribers)
		}
	}
}

// -----------------------------------------------------------------------------

func (h *Hub) add(sub Subscriber) error {
	if _, ok := h.subscribers[sub]; ok {
		return nil
	}

	// No resurrection of a closed handle
	select {
	case <-sub.Done():
		return ErrSubscriberClosed
	default:
	}

	h.subscribers[sub] = struct{}{}
	h.logger.Debug("Subscriber registered (%d active)", len(h.subscribers))
	return nil
}

// -----------------------------------------------------------------------------

func (h *Hub) drop(sub Subscriber) {
	delete(h.subscribers, sub)
	sub.Close()
	h.logger.Debug("Subscriber unregistered (%d active)", len(h.subscribers))
}

// -----------------------------------------------------------------------------

func (h *Hub) fanOut(message string) int {
	delivered := 0
	for sub := range h.subscribers {
		if err := sub.Send(message); err != nil {
			h.logger.Warning("Dropping subscriber: %v", helpers.NewConnectionError(err))
			h.drop(sub)
			continue
		}
		delivered++
	}
	return delivered
}

// -----------------------------------------------------------------------------
// Public API (safe for concurrent use)
// -----------------------------------------------------------------------------

// Register adds sub to the active set. Registering twice is a no-op. Only
// broadcasts accepted after Register returns reach sub.
func (h *Hub) Register(sub Subscriber) error {
	req := registration{subscriber: sub, result: make(chan error, 1)}
	select {
	case h.register <- req:
		return <-req.result
	case <-h.stopped:
		return ErrHubStopped
	}
}

// -----------------------------------------------------------------------------

// Unregister removes and closes sub. Unknown subscribers are ignored.
func (h *Hub) Unregister(sub Subscriber) {
	req := removal{subscriber: sub, done: make(chan struct{})}
	select {
	case h.unregister <- req:
		<-req.done
	case <-h.stopped:
	}
}

// -----------------------------------------------------------------------------

// Broadcast queues message on every registered subscriber and returns the
// number of subscribers that accepted it. Subscribers that fail are
// unregistered; their failure never reaches the caller.
func (h *Hub) Broadcast(message string) int {
	req := delivery{message: message, result: make(chan int, 1)}
	select {
	case h.broadcast <- req:
		return <-req.result
	case <-h.stopped:
		return 0
	}
}

// -----------------------------------------------------------------------------

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.stopped:
		return 0
	}
}

// -----------------------------------------------------------------------------

// Stopped is closed when Run has returned.
func (h *Hub) Stopped() <-chan struct{} {
	return h.stopped
}
