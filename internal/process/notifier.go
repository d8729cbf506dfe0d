package process

import "sync"

type stateChange struct {
	id       string
	oldState State
	newState State
	err      error
}

// notifier delivers state changes to the callback in the order they were
// pushed, on a goroutine that holds no pool lock. At most one drain
// goroutine runs at a time.
type notifier struct {
	fn       StateChangeCallback
	mu       sync.Mutex
	queue    []stateChange
	draining bool
	inflight sync.WaitGroup
}

func (n *notifier) push(c stateChange) {
	if n.fn == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inflight.Add(1)
	n.queue = append(n.queue, c)
	if !n.draining {
		n.draining = true
		go n.drain()
	}
}

func (n *notifier) drain() {
	for {
		n.mu.Lock()
		if len(n.queue) == 0 {
			n.draining = false
			n.mu.Unlock()
			return
		}
		c := n.queue[0]
		n.queue = n.queue[1:]
		n.mu.Unlock()

		n.fn(c.id, c.oldState, c.newState, c.err)
		n.inflight.Done()
	}
}

// wait blocks until every pushed change has been delivered.
func (n *notifier) wait() {
	n.inflight.Wait()
}
