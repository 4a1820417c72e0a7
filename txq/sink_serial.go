//go:build !rp2040 && !rp2350

package txq

import (
	"go.bug.st/serial"
)

// SerialSink sends through a host serial port. The OS driver buffers, so
// every chunk is taken unless the write fails.
type SerialSink struct {
	busSink
	port serial.Port
}

// OpenSerial opens name at baud, 8N1.
func OpenSerial(name string, baud, frame int) (*SerialSink, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	return NewSerialSink(p, frame), nil
}

func NewSerialSink(p serial.Port, frame int) *SerialSink {
	if frame <= 0 {
		frame = 64
	}
	return &SerialSink{busSink: busSink{frame: frame}, port: p}
}

func (s *SerialSink) Send(p []byte) int {
	n, err := s.port.Write(p)
	if err != nil {
		s.fail(err)
	}
	return n
}

// Drain blocks until the OS has put every written byte on the line.
func (s *SerialSink) Drain() error { return s.port.Drain() }

func (s *SerialSink) Close() error { return s.port.Close() }

// Ports lists the serial ports present on the host.
func Ports() ([]string, error) { return serial.GetPortsList() }
