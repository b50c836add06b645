package store

import (
	"context"
	"sync"
)

// notifier fans out change notifications to per-session watchers. Each
// watcher channel has room for one pending signal, so a burst of commits
// coalesces into a single wake-up.
type notifier struct {
	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
}

func newNotifier() *notifier {
	return &notifier{watchers: make(map[string]map[chan struct{}]struct{})}
}

func (n *notifier) watch(ctx context.Context, sessionID string) <-chan struct{} {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	set := n.watchers[sessionID]
	if set == nil {
		set = make(map[chan struct{}]struct{})
		n.watchers[sessionID] = set
	}
	set[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.watchers[sessionID], ch)
		if len(n.watchers[sessionID]) == 0 {
			delete(n.watchers, sessionID)
		}
		close(ch)
		n.mu.Unlock()
	}()
	return ch
}

func (n *notifier) notify(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.watchers[sessionID] {
		select {
		case ch <- struct{}{}:
		default:
			// already signalled
		}
	}
}
