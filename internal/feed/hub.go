package feed

import (
	"sync/atomic"
)

// Hub manages subscriber connections and broadcasts row change events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable
// state (the subscriber map). Public methods communicate with this loop
// through channels, so no mutexes are required. Events are delivered only to
// subscribers in the event's audience.
type Hub struct {
	clientBuf int

	subscribeCh   chan subscriber
	unsubscribeCh chan chan Event
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

type subscriber struct {
	userID string
	ch     chan Event
}

// NewHub creates a hub. clientBuf is the per-subscriber channel buffer; slow
// subscribers drop events once their buffer fills.
func NewHub(clientBuf int) *Hub {
	if clientBuf <= 0 {
		clientBuf = 64
	}

	h := &Hub{
		clientBuf:     clientBuf,
		subscribeCh:   make(chan subscriber),
		unsubscribeCh: make(chan chan Event),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)

	clients := make(map[chan Event]string)

	broadcast := func(e Event) {
		for ch, userID := range clients {
			if !e.visibleTo(userID) {
				continue
			}
			select {
			case ch <- e:
			default:
				// Client buffer full; skip to avoid blocking hub loop.
			}
		}
	}

	for {
		select {
		case <-h.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-h.subscribeCh:
			clients[sub.ch] = sub.userID

		case ch := <-h.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case e := <-h.publishCh:
			broadcast(e)

		case resp := <-h.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops the hub loop and closes all subscriber channels.
func (h *Hub) Close() {
	if h.closed.CompareAndSwap(false, true) {
		close(h.stopCh)
	}
	<-h.stopped
}

// Subscribe registers a subscriber for the given user and returns its
// channel. The channel is closed on Unsubscribe or hub Close.
func (h *Hub) Subscribe(userID string) chan Event {
	ch := make(chan Event, h.clientBuf)
	if h.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case h.subscribeCh <- subscriber{userID: userID, ch: ch}:
	case <-h.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(ch chan Event) {
	if h.closed.Load() {
		return
	}
	select {
	case h.unsubscribeCh <- ch:
	case <-h.stopped:
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	if h.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case h.countReqCh <- resp:
	case <-h.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-h.stopped:
		return 0
	}
}

// Publish broadcasts an event to every subscriber in its audience.
func (h *Hub) Publish(e Event) {
	if h.closed.Load() {
		return
	}
	select {
	case h.publishCh <- e:
	case <-h.stopped:
	}
}
