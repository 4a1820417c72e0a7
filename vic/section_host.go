//go:build !rp2040 && !rp2350

package vic

import "sync"

// MutexSection is the host Section. It is not reentrant.
type MutexSection struct{ mu sync.Mutex }

func (m *MutexSection) Enter() State { m.mu.Lock(); return 0 }
func (m *MutexSection) Exit(State)   { m.mu.Unlock() }

func DefaultSection() Section { return &MutexSection{} }
