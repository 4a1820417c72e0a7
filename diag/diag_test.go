package diag

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"alds-go/ringbuffer"
	"alds-go/vic"
)

func sampleTable() *vic.Table {
	tbl := vic.NewTable(nil, vic.Named("defirq", func() {}))
	tbl.SetFIQHandler(vic.Named("fiq", func() {}))
	_ = tbl.Install(vic.ChUART0, vic.IRQ, 0, vic.Named("uart0_tx", func() {}))
	_ = tbl.Install(vic.ChEINT0, vic.FIQ, 0, nil)
	_ = tbl.Install(vic.ChWDT, vic.IRQ, vic.NonVectored, nil)
	tbl.DisableChannel(vic.ChWDT)
	tbl.Raise(vic.ChWDT)
	return tbl
}

func rowFor(t *testing.T, out, prefix string) string {
	t.Helper()
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, prefix) {
			return l
		}
	}
	t.Fatalf("no row %q in\n%s", prefix, out)
	return ""
}

func TestWriteIRQTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIRQTable(&buf, sampleTable().Snapshot(false)); err != nil {
		t.Fatalf("WriteIRQTable: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, irqHeader) {
		t.Fatalf("missing header:\n%s", out)
	}
	if got := rowFor(t, out, "6\t"); got != "6\tuart0\tIRQ\tyes\tno\t0\tuart0_tx" {
		t.Fatalf("uart0 row %q", got)
	}
	if got := rowFor(t, out, "14\t"); got != "14\teint0\tFIQ\tyes\tno\tnone\tfiq" {
		t.Fatalf("eint0 row %q", got)
	}
	if got := rowFor(t, out, "0\t"); got != "0\twdt\tIRQ\tno\tyes\tnone\tdefirq" {
		t.Fatalf("wdt row %q", got)
	}
	if got := rowFor(t, out, "pending"); got != "pending 0x00000001, free slot 1" {
		t.Fatalf("footer %q", got)
	}
}

type failWriter struct{ after int }

func (f *failWriter) Write(p []byte) (int, error) {
	if f.after == 0 {
		return 0, errors.New("console gone")
	}
	f.after--
	return len(p), nil
}

func TestWriteIRQTablePropagatesErrors(t *testing.T) {
	snap := sampleTable().Snapshot(false)
	for i := 0; i < 3; i++ {
		if err := WriteIRQTable(&failWriter{after: i}, snap); err == nil {
			t.Fatalf("write failing after %d lines returned nil", i)
		}
	}
}

func TestWriteRingStats(t *testing.T) {
	rb := ringbuffer.New(make([]byte, 8))
	rb.Write([]byte("abc"), 1, 3)
	var buf bytes.Buffer
	if err := WriteRingStats(&buf, "uart0", rb.Stats()); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "uart0      used 3/7 free 4 rd 0 wr 3\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMarshalIRQRoundTrip(t *testing.T) {
	snap := sampleTable().Snapshot(false)
	b, err := MarshalIRQ(snap)
	if err != nil {
		t.Fatalf("MarshalIRQ: %v", err)
	}
	if !bytes.Contains(b, []byte(`"class":"FIQ"`)) || !bytes.Contains(b, []byte(`"handler":"uart0_tx"`)) {
		t.Fatalf("json %s", b)
	}
	back, err := UnmarshalIRQ(b)
	if err != nil {
		t.Fatalf("UnmarshalIRQ: %v", err)
	}
	if len(back.Channels) != len(snap.Channels) || back.FreeSlot != snap.FreeSlot {
		t.Fatalf("decoded %+v", back)
	}
	for i := range snap.Channels {
		if back.Channels[i] != snap.Channels[i] {
			t.Fatalf("row %d: %+v != %+v", i, back.Channels[i], snap.Channels[i])
		}
	}
}
