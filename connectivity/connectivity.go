// Package connectivity provides the online/offline signal that gates queue
// replay and live reads.
package connectivity

import "sync"

// Signal reports connectivity and notifies subscribers of changes
type Signal interface {
	IsOnline() bool
	// Subscribe returns a channel receiving the new state on every
	// transition, and a function that ends the subscription. A slow
	// subscriber only sees the latest state.
	Subscribe() (<-chan bool, func())
}

type broadcaster struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan bool
	next   int
}

func newBroadcaster(initial bool) *broadcaster {
	return &broadcaster{online: initial, subs: make(map[int]chan bool)}
}

func (b *broadcaster) IsOnline() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online
}

func (b *broadcaster) Subscribe() (<-chan bool, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan bool, 1)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// set stores v and reports whether it changed
func (b *broadcaster) set(v bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.online == v {
		return false
	}
	b.online = v
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
	return true
}

// Manual is a Signal driven by the host application
type Manual struct {
	*broadcaster
}

// NewManual returns a Manual signal in the given initial state
func NewManual(online bool) *Manual {
	return &Manual{broadcaster: newBroadcaster(online)}
}

// SetOnline updates the state; subscribers hear only actual transitions
func (m *Manual) SetOnline(online bool) {
	m.set(online)
}
