// Package notifier fans board change pings out to live SSE streams.
package notifier

import "sync"

// Notifier broadcasts update pings to listeners grouped by board.
// Listeners receive an empty struct and should re-read the board.
type Notifier struct {
	mu     sync.RWMutex
	topics map[string]map[chan struct{}]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		topics: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel that receives a ping whenever board changes.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe(board string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	listeners, ok := n.topics[board]
	if !ok {
		listeners = make(map[chan struct{}]struct{})
		n.topics[board] = listeners
	}
	listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(board string, ch chan struct{}) {
	n.mu.Lock()
	if listeners, ok := n.topics[board]; ok {
		delete(listeners, ch)
		if len(listeners) == 0 {
			delete(n.topics, board)
		}
	}
	n.mu.Unlock()
	close(ch)
}

// Listeners returns the number of subscribers of board.
func (n *Notifier) Listeners(board string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.topics[board])
}

// Broadcast pings every listener of board.
// Non-blocking: a listener with a pending ping is skipped.
func (n *Notifier) Broadcast(board string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ping(n.topics[board])
}

// BroadcastAll pings every listener of every board.
func (n *Notifier) BroadcastAll() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, listeners := range n.topics {
		ping(listeners)
	}
}

func ping(listeners map[chan struct{}]struct{}) {
	for ch := range listeners {
		select {
		case ch <- struct{}{}:
		default:
			// already has a pending ping
		}
	}
}
