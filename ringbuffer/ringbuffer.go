// Package ringbuffer is a fixed-capacity circular byte store over a
// caller-owned backing array. Reads and writes are expressed as a number of
// elements of a given stride so callers can queue typed records.
//
// One byte of the backing array is never used: the buffer is empty when the
// cursors are equal and full when the write cursor sits one byte behind the
// read cursor. No flag is shared between the two sides.
//
// A RingBuffer is safe for one producer and one consumer running in different
// contexts (main line and interrupt handler, or two goroutines). The producer
// owns the write cursor (Write, Revert, PutByte); the consumer owns the read
// cursor (Read, Skip, Reset, GetByte). Peek and the status queries may be
// called from either side. No operation blocks.
package ringbuffer

import (
	"errors"
	"math"
	"sync/atomic"

	"alds-go/x/mathx"
)

// Empty is returned by Peek when the requested position holds no data.
const Empty = -1

var ErrTooSmall = errors.New("ringbuffer: backing store must hold at least 2 bytes")

type RingBuffer struct {
	data []byte
	rd   atomic.Uint32 // next byte to consume; consumer-owned
	wr   atomic.Uint32 // next byte to fill; producer-owned
}

// New binds a buffer to store. It panics if store is shorter than 2 bytes.
func New(store []byte) *RingBuffer {
	r := &RingBuffer{}
	if err := r.Init(store); err != nil {
		panic(err.Error())
	}
	return r
}

// Init binds the buffer to store and resets both cursors. The buffer does not
// copy or resize store; the caller keeps ownership.
func (r *RingBuffer) Init(store []byte) error {
	if len(store) < 2 {
		return ErrTooSmall
	}
	r.data = store
	r.rd.Store(0)
	r.wr.Store(0)
	return nil
}

// Cap returns the length of the backing store. At most Cap()-1 bytes can be
// held at once.
func (r *RingBuffer) Cap() int { return len(r.data) }

func (r *RingBuffer) size() uint32 { return uint32(len(r.data)) }

// free computes the free byte count for a cursor pair.
func (r *RingBuffer) free(rd, wr uint32) uint32 {
	if wr >= rd {
		return r.size() - 1 - (wr - rd)
	}
	return rd - wr - 1
}

// Free returns the number of bytes that can be written right now.
func (r *RingBuffer) Free() int {
	return int(r.free(r.rd.Load(), r.wr.Load()))
}

// Used returns the number of bytes waiting to be read.
func (r *RingBuffer) Used() int {
	return r.Cap() - 1 - r.Free()
}

func (r *RingBuffer) IsEmpty() bool { return r.rd.Load() == r.wr.Load() }

func (r *RingBuffer) IsFull() bool {
	wr := r.wr.Load() + 1
	if wr == r.size() {
		wr = 0
	}
	return wr == r.rd.Load()
}

// Write stores count elements of size bytes taken from src. Either every
// element is stored and count is returned, or nothing is stored and 0 is
// returned. A reader never observes part of a write.
func (r *RingBuffer) Write(src []byte, size, count int) int {
	if size <= 0 || count <= 0 || count > math.MaxInt/size {
		return 0
	}
	n := size * count
	if n > len(src) {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	if uint32(n) > r.free(rd, wr) {
		return 0
	}
	first := mathx.Min(n, int(r.size()-wr))
	copy(r.data[wr:], src[:first])
	if first < n {
		copy(r.data, src[first:n])
	}
	r.wr.Store(r.advance(wr, uint32(n))) // publish after the bytes are in place
	return count
}

// Read consumes count elements of size bytes into dst. Like Write it is all
// or nothing: if fewer bytes are buffered than requested, dst is untouched
// and 0 is returned.
func (r *RingBuffer) Read(dst []byte, size, count int) int {
	if size <= 0 || count <= 0 || count > math.MaxInt/size {
		return 0
	}
	n := size * count
	if n > len(dst) {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	if uint32(n) > r.size()-1-r.free(rd, wr) {
		return 0
	}
	r.copyOut(dst[:n], rd)
	r.rd.Store(r.advance(rd, uint32(n)))
	return count
}

// Peek returns the byte offset positions after the read cursor without
// consuming it, or Empty if that position is outside the buffer or holds no
// unread data.
func (r *RingBuffer) Peek(offset int) int {
	if offset < 0 || offset >= r.Cap() {
		return Empty
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	if uint32(offset) >= r.size()-1-r.free(rd, wr) {
		return Empty
	}
	return int(r.data[r.advance(rd, uint32(offset))])
}

// PeekInto copies up to len(dst) unread bytes into dst without consuming them
// and returns the number copied.
func (r *RingBuffer) PeekInto(dst []byte) int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	n := mathx.Min(len(dst), int(r.size()-1-r.free(rd, wr)))
	r.copyOut(dst[:n], rd)
	return n
}

// Skip discards up to count elements of size bytes from the read side. If
// less data is buffered, the buffer is drained completely. It returns the
// number of whole elements discarded.
func (r *RingBuffer) Skip(size, count int) int {
	if size <= 0 || count <= 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	n := uint32(span(size, count, int(r.size()-1-r.free(rd, wr))))
	r.rd.Store(r.advance(rd, n))
	return int(n) / size
}

// Revert takes back up to count elements of size bytes from the write side,
// retracting data that was written but should not be sent. It never moves the
// write cursor past the read cursor. It returns the number of whole elements
// retracted.
func (r *RingBuffer) Revert(size, count int) int {
	if size <= 0 || count <= 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	n := uint32(span(size, count, int(r.size()-1-r.free(rd, wr))))
	r.wr.Store(mathx.WrapSub(wr, n, r.size()))
	return int(n) / size
}

// span is size*count bytes capped at limit, without overflowing.
func span(size, count, limit int) int {
	if count > limit/size {
		return limit
	}
	return mathx.Min(size*count, limit)
}

// Reset discards everything buffered. It is a consumer-side operation.
func (r *RingBuffer) Reset() {
	r.rd.Store(r.wr.Load())
}

// PutByte stores one byte; false if the buffer is full.
func (r *RingBuffer) PutByte(b byte) bool {
	wr := r.wr.Load()
	next := r.advance(wr, 1)
	if next == r.rd.Load() {
		return false
	}
	r.data[wr] = b
	r.wr.Store(next)
	return true
}

// GetByte consumes one byte; false if the buffer is empty.
func (r *RingBuffer) GetByte() (byte, bool) {
	rd := r.rd.Load()
	if rd == r.wr.Load() {
		return 0, false
	}
	b := r.data[rd]
	r.rd.Store(r.advance(rd, 1))
	return b, true
}

func (r *RingBuffer) advance(pos, n uint32) uint32 {
	return mathx.WrapAdd(pos, n, r.size())
}

// copyOut copies len(dst) bytes starting at rd, handling the wrap.
func (r *RingBuffer) copyOut(dst []byte, rd uint32) {
	first := copy(dst, r.data[rd:])
	if first < len(dst) {
		copy(dst[first:], r.data)
	}
}

// Stats is a point-in-time view for diagnostics.
type Stats struct {
	Cap      int
	Used     int
	Free     int
	ReadPos  uint32
	WritePos uint32
}

func (r *RingBuffer) Stats() Stats {
	rd := r.rd.Load()
	wr := r.wr.Load()
	free := int(r.free(rd, wr))
	return Stats{
		Cap:      r.Cap(),
		Used:     r.Cap() - 1 - free,
		Free:     free,
		ReadPos:  rd,
		WritePos: wr,
	}
}
