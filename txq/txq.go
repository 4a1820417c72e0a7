// Package txq is an interrupt-driven transmit queue. The producer appends to a
// RingBuffer; a handler installed in a vic.Table moves buffered bytes into a
// hardware FIFO whenever the FIFO has room, consuming them from the ring only
// after the FIFO accepted them.
package txq

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"alds-go/errcode"
	"alds-go/ringbuffer"
	"alds-go/vic"
	"alds-go/x/mathx"
)

// Sink is the hardware side of a queue, usually a transmit FIFO.
type Sink interface {
	// TxSpace reports how many bytes Send would accept right now.
	TxSpace() int
	// Send accepts up to len(p) bytes and returns how many it took.
	Send(p []byte) int
}

// SpaceNotifier is implemented by sinks that signal when room frees up, the
// way a UART raises its transmit-empty interrupt.
type SpaceNotifier interface {
	Writable() <-chan struct{}
}

const (
	// chunk bounds how much a single Fire moves; it sizes the scratch buffer.
	chunk = 64

	pollInterval = 2 * time.Millisecond
)

var (
	ErrClosed  = errors.New("closed")
	ErrNoStore = errors.New("txq: store must hold at least 2 bytes")
	ErrNoSink  = errors.New("txq: nil sink")
)

type Config struct {
	ID       string
	Channel  vic.Channel
	Priority vic.Priority
	// Auto takes the highest free slot instead of Priority.
	Auto  bool
	Store []byte
	Sink  Sink
}

// Queue binds one ring buffer, one sink and one interrupt channel.
type Queue struct {
	id   string
	tbl  *vic.Table
	ch   vic.Channel
	prio vic.Priority
	rb   ringbuffer.RingBuffer
	sink Sink
	h    vic.Handler

	scratch [chunk]byte

	writable chan struct{}
	closed   atomic.Bool
	done     chan struct{}

	// forwarded closes when the forward goroutine returns.
	forwarded chan struct{}

	accepted  atomic.Uint64
	sent      atomic.Uint64
	rejected  atomic.Uint64
	retracted atomic.Uint64
	discarded atomic.Uint64
	fires     atomic.Uint64
}

// New builds the queue, installs its handler on cfg.Channel and enables the
// channel. The queue is registered under cfg.ID for diagnostics.
func New(tbl *vic.Table, cfg Config) (*Queue, error) {
	if cfg.Sink == nil {
		return nil, ErrNoSink
	}
	q := &Queue{
		id:       cfg.ID,
		tbl:      tbl,
		ch:       cfg.Channel,
		prio:     cfg.Priority,
		sink:     cfg.Sink,
		writable: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if err := q.rb.Init(cfg.Store); err != nil {
		return nil, ErrNoStore
	}
	if cfg.Auto {
		q.prio = tbl.HighestFreePriority()
	}
	// The default handler is shared, so a queue needs its own slot.
	if q.prio >= vic.NonVectored {
		return nil, errcode.NoFreeSlot
	}
	q.h = vic.Named(q.HandlerName(), q.Fire)
	if err := tbl.Install(cfg.Channel, vic.IRQ, q.prio, q.h); err != nil {
		return nil, err
	}
	if sn, ok := cfg.Sink.(SpaceNotifier); ok {
		q.forwarded = make(chan struct{})
		go q.forward(sn.Writable())
	}
	register(q)
	return q, nil
}

// HandlerName is the diagnostic name of the queue's interrupt handler.
func (q *Queue) HandlerName() string {
	if q.id == "" {
		return "txq"
	}
	return q.id + "_tx"
}

func (q *Queue) ID() string                { return q.id }
func (q *Queue) Table() *vic.Table         { return q.tbl }
func (q *Queue) Channel() vic.Channel      { return q.ch }
func (q *Queue) Priority() vic.Priority    { return q.prio }
func (q *Queue) Writable() <-chan struct{} { return q.writable }

// Handler returns the transmit handler so it can be installed again, for
// example at a different priority.
func (q *Queue) Handler() vic.Handler { return q.h }

// forward turns sink space notifications into interrupt requests.
// Sinks never close their channel, so Close stops it through done.
func (q *Queue) forward(space <-chan struct{}) {
	defer close(q.forwarded)
	for {
		select {
		case <-q.done:
			return
		case _, ok := <-space:
			if !ok {
				return
			}
			if !q.rb.IsEmpty() {
				q.tbl.Raise(q.ch)
			}
		}
	}
}

// Fire is the transmit handler: copy what the sink can take, hand it over and
// drop only what was accepted. It re-raises its channel while it makes
// progress and data remains.
func (q *Queue) Fire() {
	q.fires.Add(1)
	room := mathx.Min(q.sink.TxSpace(), len(q.scratch))
	if room <= 0 {
		return
	}
	n := q.rb.PeekInto(q.scratch[:room])
	if n == 0 {
		q.notify()
		return
	}
	sent := q.sink.Send(q.scratch[:n])
	if sent <= 0 {
		return
	}
	q.rb.Skip(1, sent)
	q.sent.Add(uint64(sent))
	q.notify()
	if !q.rb.IsEmpty() {
		q.tbl.Raise(q.ch)
	}
}

func (q *Queue) notify() {
	select {
	case q.writable <- struct{}{}:
	default:
	}
}

// TryWrite queues all of p or nothing and returns len(p) or 0. A successful
// write requests the transmit interrupt.
func (q *Queue) TryWrite(p []byte) int {
	if q.closed.Load() || len(p) == 0 {
		return 0
	}
	if q.rb.Write(p, 1, len(p)) == 0 {
		q.rejected.Add(1)
		return 0
	}
	q.accepted.Add(uint64(len(p)))
	q.tbl.Raise(q.ch)
	return len(p)
}

// WriteRecords queues count fixed-size records from p, all or nothing.
func (q *Queue) WriteRecords(p []byte, size, count int) int {
	if q.closed.Load() {
		return 0
	}
	n := q.rb.Write(p, size, count)
	if n == 0 {
		q.rejected.Add(1)
		return 0
	}
	q.accepted.Add(uint64(size * count))
	q.tbl.Raise(q.ch)
	return n
}

// Write queues p in chunks no larger than the ring can hold, waiting for the
// handler to make room. It returns the bytes queued and ctx.Err() or ErrClosed
// if it stopped early.
func (q *Queue) Write(ctx context.Context, p []byte) (int, error) {
	max := q.rb.Cap() - 1
	done := 0
	t := time.NewTimer(pollInterval)
	defer t.Stop()
	for done < len(p) {
		if q.closed.Load() {
			return done, ErrClosed
		}
		n := mathx.Min(len(p)-done, mathx.Min(max, q.rb.Free()))
		if n > 0 && q.TryWrite(p[done:done+n]) == n {
			done += n
			continue
		}
		if err := q.wait(ctx, t); err != nil {
			return done, err
		}
	}
	return done, nil
}

// Flush waits until every queued byte has been handed to the sink.
func (q *Queue) Flush(ctx context.Context) error {
	t := time.NewTimer(pollInterval)
	defer t.Stop()
	for !q.rb.IsEmpty() {
		if q.closed.Load() {
			return ErrClosed
		}
		q.tbl.Raise(q.ch)
		if err := q.wait(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) wait(ctx context.Context, t *time.Timer) error {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(pollInterval)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.writable:
	case <-t.C:
		// A stalled sink without space notifications is polled.
		q.tbl.Raise(q.ch)
	}
	return nil
}

// Retract takes back up to n bytes that were queued but not yet sent, newest
// first. The handler is held off so it cannot send bytes being retracted.
func (q *Queue) Retract(n int) int {
	var got int
	q.tbl.Exclusive(func() { got = q.rb.Revert(1, n) })
	q.retracted.Add(uint64(got))
	return got
}

// Discard drops everything still queued.
func (q *Queue) Discard() {
	q.tbl.Exclusive(func() {
		q.discarded.Add(uint64(q.rb.Used()))
		q.rb.Reset()
	})
	q.notify()
}

// Close masks the channel and rejects further writes. Queued bytes are left
// in the ring.
func (q *Queue) Close() {
	if q.closed.Swap(true) {
		return
	}
	close(q.done)
	q.tbl.DisableChannel(q.ch)
	unregister(q)
	q.notify()
}

type Stats struct {
	ID        string           `json:"id"`
	Channel   vic.Channel      `json:"channel"`
	Slot      vic.Priority     `json:"slot"`
	Ring      ringbuffer.Stats `json:"ring"`
	Accepted  uint64           `json:"accepted"`
	Sent      uint64           `json:"sent"`
	Rejected  uint64           `json:"rejected"`
	Retracted uint64           `json:"retracted"`
	Discarded uint64           `json:"discarded"`
	Fires     uint64           `json:"fires"`
}

func (q *Queue) Stats() Stats {
	return Stats{
		ID:        q.id,
		Channel:   q.ch,
		Slot:      q.tbl.PriorityOf(q.ch),
		Ring:      q.rb.Stats(),
		Accepted:  q.accepted.Load(),
		Sent:      q.sent.Load(),
		Rejected:  q.rejected.Load(),
		Retracted: q.retracted.Load(),
		Discarded: q.discarded.Load(),
		Fires:     q.fires.Load(),
	}
}
