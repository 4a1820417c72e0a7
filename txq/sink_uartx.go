//go:build rp2040 || rp2350

package txq

import (
	"github.com/jangala-dev/tinygo-uartx/uartx"
)

// UARTXSink feeds a uartx UART through its non-blocking path. The driver's
// Writable notification re-raises the queue's channel when room frees up.
type UARTXSink struct {
	u *uartx.UART
}

func NewUARTXSink(u *uartx.UART) *UARTXSink { return &UARTXSink{u: u} }

func (s *UARTXSink) TxSpace() int              { return s.u.TxFree() }
func (s *UARTXSink) Send(p []byte) int         { return s.u.TryWrite(p) }
func (s *UARTXSink) Writable() <-chan struct{} { return s.u.Writable() }
