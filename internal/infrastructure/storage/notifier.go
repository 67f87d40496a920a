package storage

import (
	"sync"

	"github.com/doeshing/phishnet-go/internal/ports"
)

// notifier fans storage changes out to subscribers.
type notifier struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(ports.StorageChange)
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]func(ports.StorageChange))}
}

func (n *notifier) subscribe(fn func(ports.StorageChange)) func() {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// publish runs subscribers outside the lock so they may read the store.
func (n *notifier) publish(change ports.StorageChange) {
	n.mu.RLock()
	fns := make([]func(ports.StorageChange), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()
	for _, fn := range fns {
		fn(change)
	}
}
