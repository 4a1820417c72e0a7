// Package diag renders interrupt and queue state for a debug console or the
// bus.
package diag

import (
	"io"

	"alds-go/ringbuffer"
	"alds-go/vic"
	"alds-go/x/conv"

	"github.com/sugawarayuuta/sonnet"
)

const irqHeader = "channel\tname\ttype\tenabled\tpending\tvector\thandler\n"

func yesNo(b []byte, v bool) []byte {
	if v {
		return append(b, "yes"...)
	}
	return append(b, "no"...)
}

// WriteIRQTable writes one tab-separated row per channel in snap, followed by
// the pending mask and the first free slot. Non-vectored channels show
// "none" in the vector column.
func WriteIRQTable(w io.Writer, snap vic.Snapshot) error {
	if _, err := io.WriteString(w, irqHeader); err != nil {
		return err
	}
	line := make([]byte, 0, 80)
	var pending uint32
	for _, c := range snap.Channels {
		line = conv.AppendUint(line[:0], uint64(c.Channel))
		line = append(line, '\t')
		if c.Name == "" {
			line = append(line, '-')
		} else {
			line = append(line, c.Name...)
		}
		line = append(line, '\t')
		line = append(line, c.Class.String()...)
		line = append(line, '\t')
		line = yesNo(line, c.Enabled)
		line = append(line, '\t')
		line = yesNo(line, c.Pending)
		line = append(line, '\t')
		if c.Slot == vic.NonVectored {
			line = append(line, "none"...)
		} else {
			line = conv.AppendUint(line, uint64(c.Slot))
		}
		line = append(line, '\t')
		line = append(line, c.Handler...)
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
		if c.Pending {
			pending |= 1 << c.Channel
		}
	}

	line = append(line[:0], "\npending 0x"...)
	line = conv.AppendHex32(line, pending)
	line = append(line, ", free slot "...)
	if snap.FreeSlot == vic.NonVectored {
		line = append(line, "none"...)
	} else {
		line = conv.AppendUint(line, uint64(snap.FreeSlot))
	}
	line = append(line, '\n')
	_, err := w.Write(line)
	return err
}

// WriteRingStats writes a single summary line for one ring buffer.
func WriteRingStats(w io.Writer, id string, s ringbuffer.Stats) error {
	line := make([]byte, 0, 96)
	line = conv.AppendPad(line, id, 10)
	line = append(line, " used "...)
	line = conv.AppendInt(line, int64(s.Used))
	line = append(line, '/')
	line = conv.AppendInt(line, int64(s.Cap-1))
	line = append(line, " free "...)
	line = conv.AppendInt(line, int64(s.Free))
	line = append(line, " rd "...)
	line = conv.AppendUint(line, uint64(s.ReadPos))
	line = append(line, " wr "...)
	line = conv.AppendUint(line, uint64(s.WritePos))
	line = append(line, '\n')
	_, err := w.Write(line)
	return err
}

// MarshalIRQ encodes snap as JSON.
func MarshalIRQ(snap vic.Snapshot) ([]byte, error) {
	return sonnet.Marshal(snap)
}

// UnmarshalIRQ decodes a snapshot produced by MarshalIRQ.
func UnmarshalIRQ(b []byte) (vic.Snapshot, error) {
	var snap vic.Snapshot
	err := sonnet.Unmarshal(b, &snap)
	return snap, err
}
