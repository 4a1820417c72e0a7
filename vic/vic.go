// Package vic manages a vectored interrupt controller: sixteen priority
// slots, each bound to one channel and one handler, plus a per-channel enable
// bit and IRQ/FIQ selection that are independent of slot assignment.
//
// Slot 0 has the highest priority and slot 15 the lowest. An enabled IRQ
// channel without a slot is dispatched through the shared default handler.
// A channel occupies at most one slot at a time.
package vic

import (
	"context"
	"errors"
	"sync/atomic"
)

const (
	NumSlots    = 16
	NumChannels = 32

	PrioMax Priority = 0
	PrioMin Priority = NumSlots - 1
	// NonVectored marks "no slot": returned when a channel has no vector or
	// when every slot is taken, and accepted by Install to request a
	// non-vectored IRQ.
	NonVectored Priority = NumSlots
)

var ErrInvalidChannel = errors.New("invalid_channel")

type (
	Channel  uint8
	Priority uint8
)

// Class selects how a channel is delivered.
type Class uint8

const (
	IRQ Class = iota
	FIQ
)

func (c Class) String() string {
	if c == FIQ {
		return "FIQ"
	}
	return "IRQ"
}

func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

var ErrInvalidClass = errors.New("invalid_class")

func (c *Class) UnmarshalText(b []byte) error {
	switch string(b) {
	case "IRQ", "irq", "":
		*c = IRQ
	case "FIQ", "fiq":
		*c = FIQ
	default:
		return ErrInvalidClass
	}
	return nil
}

// Handler is the code run when a channel fires.
type Handler interface {
	Fire()
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func()

func (f HandlerFunc) Fire() { f() }

// Named returns a handler that reports name to diagnostics.
func Named(name string, fn func()) Handler {
	return namedHandler{name: name, fn: fn}
}

type namedHandler struct {
	name string
	fn   func()
}

func (h namedHandler) Fire()        { h.fn() }
func (h namedHandler) Name() string { return h.name }

type slot struct {
	ch       Channel
	assigned bool
	h        Handler // nil on an assigned slot means an unconfigured vector
}

// Table is one interrupt controller instance. Mutations run inside the
// table's Section so a firing interrupt never observes a half-written
// slot/enable pair.
type Table struct {
	sec Section

	slots   [NumSlots]slot
	enabled atomic.Uint32 // bit per channel
	fiq     atomic.Uint32 // bit per channel; set = FIQ
	pending atomic.Uint32 // latched requests

	def    Handler
	fiqH   Handler
	trapFn func(Fault)

	wake chan struct{}
}

// NewTable returns an initialised table. A nil sec selects the platform
// default section; a nil def leaves the unvectored-IRQ trap in place.
func NewTable(sec Section, def Handler) *Table {
	if sec == nil {
		sec = DefaultSection()
	}
	t := &Table{
		sec:    sec,
		trapFn: Halt,
		wake:   make(chan struct{}, 1),
	}
	t.Init(def)
	return t
}

// Init clears every slot, disables every channel and installs def as the
// handler for enabled channels that have no slot.
func (t *Table) Init(def Handler) {
	s := t.sec.Enter()
	for i := range t.slots {
		t.slots[i] = slot{}
	}
	t.enabled.Store(0)
	t.fiq.Store(0)
	t.pending.Store(0)
	t.def = def
	t.sec.Exit(s)
}

// SetDefaultHandler replaces the non-vectored handler without touching slots.
func (t *Table) SetDefaultHandler(h Handler) {
	s := t.sec.Enter()
	t.def = h
	t.sec.Exit(s)
}

// SetFIQHandler sets the single handler used for FIQ channels.
func (t *Table) SetFIQHandler(h Handler) {
	s := t.sec.Enter()
	t.fiqH = h
	t.sec.Exit(s)
}

// SetTrap replaces the fault trap. The default trap is Halt.
func (t *Table) SetTrap(fn func(Fault)) {
	if fn == nil {
		fn = Halt
	}
	s := t.sec.Enter()
	t.trapFn = fn
	t.sec.Exit(s)
}

// Install binds ch. With class FIQ the channel is selected as FIQ and is never
// vectored. With class IRQ and prio < NumSlots, slot prio is assigned to ch
// with handler h, replacing whatever held it; a larger prio makes ch a
// non-vectored IRQ served by the default handler. Any other slot ch held is
// released. The channel is masked for the duration and enabled on return.
// Reassignment always succeeds.
func (t *Table) Install(ch Channel, class Class, prio Priority, h Handler) error {
	if ch >= NumChannels {
		return ErrInvalidChannel
	}
	bit := uint32(1) << ch

	s := t.sec.Enter()
	t.enabled.And(^bit)

	for i := range t.slots {
		if t.slots[i].assigned && t.slots[i].ch == ch {
			t.slots[i] = slot{}
		}
	}
	if class == FIQ {
		t.fiq.Or(bit)
	} else {
		t.fiq.And(^bit)
		if prio < NumSlots {
			t.slots[prio] = slot{ch: ch, assigned: true, h: h}
		}
	}

	t.enabled.Or(bit)
	t.sec.Exit(s)
	t.kick(bit)
	return nil
}

// Uninstall releases ch's slot and disables it.
func (t *Table) Uninstall(ch Channel) {
	if ch >= NumChannels {
		return
	}
	s := t.sec.Enter()
	t.enabled.And(^(uint32(1) << ch))
	for i := range t.slots {
		if t.slots[i].assigned && t.slots[i].ch == ch {
			t.slots[i] = slot{}
		}
	}
	t.sec.Exit(s)
}

// DisableChannel clears the enable bit of ch. Its slot is kept.
func (t *Table) DisableChannel(ch Channel) {
	if ch >= NumChannels {
		return
	}
	s := t.sec.Enter()
	t.enabled.And(^(uint32(1) << ch))
	t.sec.Exit(s)
}

// EnableChannel sets the enable bit of ch; a previously installed vector is
// used again without reinstalling.
func (t *Table) EnableChannel(ch Channel) {
	if ch >= NumChannels {
		return
	}
	s := t.sec.Enter()
	t.enabled.Or(uint32(1) << ch)
	t.sec.Exit(s)
	t.kick(uint32(1) << ch)
}

// kick wakes Run when a request latched while masked becomes deliverable.
func (t *Table) kick(bit uint32) {
	if t.pending.Load()&bit == 0 {
		return
	}
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Table) ChannelEnabled(ch Channel) bool {
	return ch < NumChannels && t.enabled.Load()&(uint32(1)<<ch) != 0
}

func (t *Table) IsFIQ(ch Channel) bool {
	return ch < NumChannels && t.fiq.Load()&(uint32(1)<<ch) != 0
}

// HighestFreePriority returns the first unassigned slot counting from slot 0,
// or NonVectored when all are taken.
func (t *Table) HighestFreePriority() Priority {
	s := t.sec.Enter()
	defer t.sec.Exit(s)
	for i := range t.slots {
		if !t.slots[i].assigned {
			return Priority(i)
		}
	}
	return NonVectored
}

// PriorityOf returns the slot assigned to ch, or NonVectored.
func (t *Table) PriorityOf(ch Channel) Priority {
	s := t.sec.Enter()
	defer t.sec.Exit(s)
	return t.priorityOf(ch)
}

func (t *Table) priorityOf(ch Channel) Priority {
	for i := range t.slots {
		if t.slots[i].assigned && t.slots[i].ch == ch {
			return Priority(i)
		}
	}
	return NonVectored
}

// Raise latches an interrupt request on ch, as the peripheral would. The
// request is delivered by Service (or Run) once the channel is enabled.
func (t *Table) Raise(ch Channel) {
	if ch >= NumChannels {
		return
	}
	t.pending.Or(uint32(1) << ch)
	t.kick(uint32(1) << ch)
}

// Pending returns the latched request bits.
func (t *Table) Pending() uint32 { return t.pending.Load() }

// Service delivers the highest-priority pending, enabled IRQ: vectored slots
// first in slot order, then the lowest-numbered non-vectored channel through
// the default handler. The handler runs inside the section and must not call
// back into the table. It reports whether anything was delivered.
func (t *Table) Service() bool {
	s := t.sec.Enter()
	defer t.sec.Exit(s)

	ready := t.pending.Load() & t.enabled.Load() &^ t.fiq.Load()
	if ready == 0 {
		return false
	}
	for i := range t.slots {
		sl := &t.slots[i]
		if !sl.assigned || ready&(uint32(1)<<sl.ch) == 0 {
			continue
		}
		t.pending.And(^(uint32(1) << sl.ch))
		if sl.h == nil {
			t.trapFn(Fault{Kind: FaultUnconfiguredVector, Channel: sl.ch, Slot: Priority(i)})
			return true
		}
		sl.h.Fire()
		return true
	}

	for ch := Channel(0); ch < NumChannels; ch++ {
		if ready&(uint32(1)<<ch) == 0 {
			continue
		}
		t.pending.And(^(uint32(1) << ch))
		if t.def == nil {
			t.trapFn(Fault{Kind: FaultUnvectoredIRQ, Channel: ch, Slot: NonVectored})
			return true
		}
		t.def.Fire()
		return true
	}
	return false
}

// ServiceFIQ delivers one pending, enabled FIQ channel to the FIQ handler.
func (t *Table) ServiceFIQ() bool {
	s := t.sec.Enter()
	defer t.sec.Exit(s)

	ready := t.pending.Load() & t.enabled.Load() & t.fiq.Load()
	for ch := Channel(0); ch < NumChannels; ch++ {
		if ready&(uint32(1)<<ch) == 0 {
			continue
		}
		t.pending.And(^(uint32(1) << ch))
		if t.fiqH == nil {
			t.trapFn(Fault{Kind: FaultUnvectoredIRQ, Channel: ch, Slot: NonVectored})
			return true
		}
		t.fiqH.Fire()
		return true
	}
	return false
}

// Run delivers raised interrupts until ctx is cancelled. FIQ requests are
// always served before IRQ requests.
func (t *Table) Run(ctx context.Context) {
	for {
		for t.ServiceFIQ() || t.Service() {
		}
		select {
		case <-ctx.Done():
			return
		case <-t.wake:
		}
	}
}

// Exclusive runs fn with interrupt delivery deferred, so fn never overlaps a
// handler of this table. fn must not call back into the table.
func (t *Table) Exclusive(fn func()) {
	s := t.sec.Enter()
	defer t.sec.Exit(s)
	fn()
}
