package txq

import (
	"sync"
	"sync/atomic"

	"alds-go/x/mathx"

	"tinygo.org/x/drivers"
)

// Loopback is an in-memory transmit FIFO of fixed depth. Bytes leave it only
// when Drain is called, which stands in for the shift register emptying.
type Loopback struct {
	mu    sync.Mutex
	depth int
	fifo  []byte
	wire  []byte

	space chan struct{}
}

func NewLoopback(depth int) *Loopback {
	if depth <= 0 {
		depth = 16 // LPC UART transmit FIFO
	}
	return &Loopback{depth: depth, space: make(chan struct{}, 1)}
}

func (l *Loopback) TxSpace() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.depth - len(l.fifo)
}

func (l *Loopback) Send(p []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := mathx.Min(len(p), l.depth-len(l.fifo))
	l.fifo = append(l.fifo, p[:n]...)
	return n
}

// Drain moves up to n bytes (all when n < 0) from the FIFO to the wire and
// signals Writable if anything moved.
func (l *Loopback) Drain(n int) int {
	l.mu.Lock()
	if n < 0 || n > len(l.fifo) {
		n = len(l.fifo)
	}
	l.wire = append(l.wire, l.fifo[:n]...)
	l.fifo = append(l.fifo[:0], l.fifo[n:]...)
	l.mu.Unlock()
	if n > 0 {
		select {
		case l.space <- struct{}{}:
		default:
		}
	}
	return n
}

// Wire returns a copy of everything drained so far.
func (l *Loopback) Wire() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.wire...)
}

// Take returns and forgets everything drained so far.
func (l *Loopback) Take() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.wire
	l.wire = nil
	return out
}

// Pending returns how many bytes sit in the FIFO.
func (l *Loopback) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fifo)
}

func (l *Loopback) Writable() <-chan struct{} { return l.space }

// -----------------------------------------------------------------------------
// Bus sinks. A transaction either moves the whole chunk or nothing, so the
// ring keeps bytes the bus rejected.
// -----------------------------------------------------------------------------

// busSink holds the frame size and last error shared by the bus sinks.
type busSink struct {
	frame int
	errs  atomic.Uint32
	last  atomic.Value // errBox
}

func (b *busSink) TxSpace() int { return b.frame }

func (b *busSink) fail(err error) int {
	b.errs.Add(1)
	b.last.Store(errBox{err})
	return 0
}

type errBox struct{ err error }

// Err returns the last transfer error, or nil.
func (b *busSink) Err() error {
	if v, ok := b.last.Load().(errBox); ok {
		return v.err
	}
	return nil
}

// Errors returns how many transfers failed.
func (b *busSink) Errors() uint32 { return b.errs.Load() }

// SPISink writes each chunk as one SPI transaction.
type SPISink struct {
	busSink
	bus drivers.SPI
}

func NewSPISink(bus drivers.SPI, frame int) *SPISink {
	if frame <= 0 {
		frame = 8 // SSP FIFO depth
	}
	return &SPISink{busSink: busSink{frame: frame}, bus: bus}
}

func (s *SPISink) Send(p []byte) int {
	if err := s.bus.Tx(p, nil); err != nil {
		return s.fail(err)
	}
	return len(p)
}

// I2CSink writes each chunk to one target address.
type I2CSink struct {
	busSink
	bus  drivers.I2C
	addr uint16
}

func NewI2CSink(bus drivers.I2C, addr uint16, frame int) *I2CSink {
	if frame <= 0 {
		frame = 16
	}
	return &I2CSink{busSink: busSink{frame: frame}, bus: bus, addr: addr}
}

func (s *I2CSink) Send(p []byte) int {
	if err := s.bus.Tx(s.addr, p, nil); err != nil {
		return s.fail(err)
	}
	return len(p)
}

// UARTSink feeds a drivers.UART (machine.UART on a board). Writes to it may
// block until the driver takes the bytes, so frame should stay within the
// driver's own buffer.
type UARTSink struct {
	busSink
	uart drivers.UART
}

func NewUARTSink(u drivers.UART, frame int) *UARTSink {
	if frame <= 0 {
		frame = 16
	}
	return &UARTSink{busSink: busSink{frame: frame}, uart: u}
}

func (s *UARTSink) Send(p []byte) int {
	n, err := s.uart.Write(p)
	if err != nil {
		s.fail(err)
	}
	return n
}
