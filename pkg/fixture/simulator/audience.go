package simulator

import "sync"

// audience counts live observers per process.
//
// A process is only garbage-collectable when it HAS been observed and every
// observer has since left. Never-observed processes keep running: plain
// request/poll clients do not hold a stream open.
type audience struct {
	mu   sync.Mutex
	subs map[string]int
	seen map[string]bool
}

func (a *audience) add(processID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.subs == nil {
		a.subs = map[string]int{}
		a.seen = map[string]bool{}
	}
	a.subs[processID] += 1
	a.seen[processID] = true
}

func (a *audience) remove(processID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if 0 < a.subs[processID] {
		a.subs[processID] -= 1
	}
}

func (a *audience) abandoned(processID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seen[processID] && a.subs[processID] == 0
}

func (a *audience) forget(processID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.subs, processID)
	delete(a.seen, processID)
}
