package txq

import (
	"sort"
	"sync"
)

// Queues are registered by ID so diagnostics can find them without holding
// references.
var (
	regMu sync.RWMutex
	reg   = map[string]*Queue{}
)

func register(q *Queue) {
	if q.id == "" {
		return
	}
	regMu.Lock()
	reg[q.id] = q
	regMu.Unlock()
}

func unregister(q *Queue) {
	regMu.Lock()
	if reg[q.id] == q {
		delete(reg, q.id)
	}
	regMu.Unlock()
}

// Lookup returns the open queue registered under id.
func Lookup(id string) (*Queue, bool) {
	regMu.RLock()
	q, ok := reg[id]
	regMu.RUnlock()
	return q, ok
}

// All returns the registered queues ordered by ID.
func All() []*Queue {
	regMu.RLock()
	out := make([]*Queue, 0, len(reg))
	for _, q := range reg {
		out = append(out, q)
	}
	regMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
