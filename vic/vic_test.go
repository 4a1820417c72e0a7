package vic

import (
	"context"
	"testing"
	"time"
)

// recorder collects the order in which handlers fire.
type recorder struct{ fired []string }

func (r *recorder) handler(name string) Handler {
	return Named(name, func() { r.fired = append(r.fired, name) })
}

func newTestTable(t *testing.T) (*Table, *recorder, *[]Fault) {
	t.Helper()
	rec := &recorder{}
	tbl := NewTable(nil, rec.handler("default"))
	var faults []Fault
	tbl.SetTrap(func(f Fault) { faults = append(faults, f) })
	return tbl, rec, &faults
}

func TestInitClearsEverything(t *testing.T) {
	tbl, rec, _ := newTestTable(t)
	_ = tbl.Install(ChUART0, IRQ, 3, rec.handler("uart0"))
	_ = tbl.Install(ChTimer0, FIQ, 0, nil)
	tbl.Raise(ChUART0)

	tbl.Init(nil)
	for ch := Channel(0); ch < NumChannels; ch++ {
		if tbl.ChannelEnabled(ch) || tbl.IsFIQ(ch) || tbl.PriorityOf(ch) != NonVectored {
			t.Fatalf("channel %d not reset", ch)
		}
	}
	if tbl.Pending() != 0 {
		t.Fatalf("pending=%#x after Init", tbl.Pending())
	}
	if tbl.HighestFreePriority() != PrioMax {
		t.Fatalf("free=%d want 0", tbl.HighestFreePriority())
	}
}

func TestInstallAssignsSlotAndEnables(t *testing.T) {
	tbl, rec, _ := newTestTable(t)
	if err := tbl.Install(ChUART0, IRQ, PrioUART0, rec.handler("uart0")); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if got := tbl.PriorityOf(ChUART0); got != PrioUART0 {
		t.Fatalf("PriorityOf=%d want %d", got, PrioUART0)
	}
	if !tbl.ChannelEnabled(ChUART0) || tbl.IsFIQ(ChUART0) {
		t.Fatal("uart0 should be an enabled IRQ")
	}
	if err := tbl.Install(NumChannels, IRQ, 0, nil); err != ErrInvalidChannel {
		t.Fatalf("out of range channel err=%v", err)
	}
}

func TestSecondInstallEvictsSlotOwner(t *testing.T) {
	tbl, rec, _ := newTestTable(t)
	_ = tbl.Install(5, IRQ, 3, rec.handler("five"))
	_ = tbl.Install(7, IRQ, 3, rec.handler("seven"))

	if got := tbl.PriorityOf(5); got != NonVectored {
		t.Fatalf("PriorityOf(5)=%d want NonVectored", got)
	}
	if got := tbl.PriorityOf(7); got != 3 {
		t.Fatalf("PriorityOf(7)=%d want 3", got)
	}

	// Channel 5 is still enabled and now falls back to the default handler.
	tbl.Raise(5)
	tbl.Service()
	if len(rec.fired) != 1 || rec.fired[0] != "default" {
		t.Fatalf("fired=%v want [default]", rec.fired)
	}
}

func TestReinstallMovesChannelToNewSlot(t *testing.T) {
	tbl, rec, _ := newTestTable(t)
	_ = tbl.Install(ChTimer1, IRQ, 2, rec.handler("t1"))
	_ = tbl.Install(ChTimer1, IRQ, 9, rec.handler("t1b"))

	if got := tbl.PriorityOf(ChTimer1); got != 9 {
		t.Fatalf("PriorityOf=%d want 9", got)
	}
	if got := tbl.HighestFreePriority(); got != 0 {
		t.Fatalf("slot 2 should have been released; free=%d", got)
	}
	count := 0
	for _, c := range tbl.Snapshot(true).Channels {
		if c.Channel == ChTimer1 && c.Slot != NonVectored {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("timer1 holds %d slots", count)
	}

	// Switching to non-vectored releases the slot as well.
	_ = tbl.Install(ChTimer1, IRQ, NonVectored, nil)
	if tbl.PriorityOf(ChTimer1) != NonVectored || !tbl.ChannelEnabled(ChTimer1) {
		t.Fatal("non-vectored reinstall should release the slot and keep the channel enabled")
	}
}

func TestFIQInstallNeverTakesSlot(t *testing.T) {
	tbl, rec, _ := newTestTable(t)
	tbl.SetFIQHandler(rec.handler("fiq"))
	_ = tbl.Install(ChEINT0, IRQ, 0, rec.handler("eint0"))
	_ = tbl.Install(ChEINT0, FIQ, 0, rec.handler("ignored"))

	if !tbl.IsFIQ(ChEINT0) || !tbl.ChannelEnabled(ChEINT0) {
		t.Fatal("eint0 should be an enabled FIQ")
	}
	if tbl.PriorityOf(ChEINT0) != NonVectored || tbl.HighestFreePriority() != 0 {
		t.Fatal("FIQ install must not hold a slot")
	}

	tbl.Raise(ChEINT0)
	if tbl.Service() {
		t.Fatal("IRQ service delivered a FIQ channel")
	}
	if !tbl.ServiceFIQ() || len(rec.fired) != 1 || rec.fired[0] != "fiq" {
		t.Fatalf("fired=%v want [fiq]", rec.fired)
	}
}

func TestDisableEnableKeepsVector(t *testing.T) {
	tbl, rec, _ := newTestTable(t)
	_ = tbl.Install(5, IRQ, 4, rec.handler("five"))

	tbl.DisableChannel(5)
	if tbl.ChannelEnabled(5) {
		t.Fatal("still enabled")
	}
	tbl.Raise(5)
	if tbl.Service() {
		t.Fatal("disabled channel was delivered")
	}
	if tbl.PriorityOf(5) != 4 {
		t.Fatal("disable dropped the slot")
	}

	tbl.EnableChannel(5)
	if !tbl.Service() {
		t.Fatal("latched request not delivered after enable")
	}
	if len(rec.fired) != 1 || rec.fired[0] != "five" {
		t.Fatalf("fired=%v want [five]", rec.fired)
	}
}

func TestHighestFreePriority(t *testing.T) {
	tbl, _, _ := newTestTable(t)
	for i := 0; i < NumSlots; i++ {
		p := tbl.HighestFreePriority()
		if p != Priority(i) {
			t.Fatalf("step %d: free=%d", i, p)
		}
		_ = tbl.Install(Channel(i), IRQ, p, HandlerFunc(func() {}))
	}
	if tbl.HighestFreePriority() != NonVectored {
		t.Fatal("expected NonVectored when full")
	}
	tbl.Uninstall(4)
	if tbl.HighestFreePriority() != 4 || tbl.ChannelEnabled(4) {
		t.Fatal("Uninstall should free slot 4 and disable the channel")
	}
}

func TestServiceOrder(t *testing.T) {
	tbl, rec, _ := newTestTable(t)
	_ = tbl.Install(ChUART1, IRQ, 4, rec.handler("uart1"))
	_ = tbl.Install(ChTimer0, IRQ, 1, rec.handler("timer0"))
	_ = tbl.Install(ChWDT, IRQ, NonVectored, nil)
	_ = tbl.Install(ChEINT3, IRQ, NonVectored, nil)

	for _, ch := range []Channel{ChEINT3, ChUART1, ChWDT, ChTimer0} {
		tbl.Raise(ch)
	}
	for tbl.Service() {
	}

	want := []string{"timer0", "uart1", "default", "default"}
	if len(rec.fired) != len(want) {
		t.Fatalf("fired=%v want %v", rec.fired, want)
	}
	for i := range want {
		if rec.fired[i] != want[i] {
			t.Fatalf("fired=%v want %v", rec.fired, want)
		}
	}
	if tbl.Pending() != 0 {
		t.Fatalf("pending=%#x", tbl.Pending())
	}
}

func TestUnconfiguredVectorTraps(t *testing.T) {
	tbl, _, faults := newTestTable(t)
	_ = tbl.Install(ChRTC, IRQ, 14, nil)
	tbl.Raise(ChRTC)
	tbl.Service()

	if len(*faults) != 1 {
		t.Fatalf("faults=%v", *faults)
	}
	f := (*faults)[0]
	if f.Kind != FaultUnconfiguredVector || f.Channel != ChRTC || f.Slot != 14 {
		t.Fatalf("fault=%+v", f)
	}
	if f.Error() != "vic: unconfigured_vector channel 13 slot 14" {
		t.Fatalf("fault text %q", f.Error())
	}
}

func TestUnvectoredWithoutDefaultTraps(t *testing.T) {
	tbl := NewTable(nil, nil)
	var got []Fault
	tbl.SetTrap(func(f Fault) { got = append(got, f) })
	_ = tbl.Install(ChBOD, IRQ, NonVectored, nil)
	tbl.Raise(ChBOD)
	tbl.Service()
	if len(got) != 1 || got[0].Kind != FaultUnvectoredIRQ || got[0].Slot != NonVectored {
		t.Fatalf("faults=%+v", got)
	}
}

func TestHaltPanicsWithFault(t *testing.T) {
	tbl := NewTable(nil, nil)
	_ = tbl.Install(ChPWM, IRQ, 9, nil)
	tbl.Raise(ChPWM)

	defer func() {
		r := recover()
		f, ok := r.(Fault)
		if !ok || f.Kind != FaultUnconfiguredVector {
			t.Fatalf("recovered %v", r)
		}
		// The section must have been released by the panic.
		if tbl.PriorityOf(ChPWM) != 9 {
			t.Fatal("table unusable after trap")
		}
	}()
	tbl.Service()
	t.Fatal("Service returned past an unconfigured vector")
}

func TestSnapshot(t *testing.T) {
	tbl, rec, _ := newTestTable(t)
	_ = tbl.Install(ChUART0, IRQ, 0, rec.handler("uart0_tx"))
	_ = tbl.Install(ChSPI0, IRQ, 1, HandlerFunc(func() {}))
	_ = tbl.Install(30, IRQ, NonVectored, nil)
	tbl.DisableChannel(ChSPI0)
	tbl.Raise(ChSPI0)

	snap := tbl.Snapshot(false)
	if snap.FreeSlot != 2 {
		t.Fatalf("FreeSlot=%d", snap.FreeSlot)
	}
	rows := map[Channel]ChannelState{}
	for _, c := range snap.Channels {
		rows[c.Channel] = c
	}
	if r := rows[ChUART0]; !r.Enabled || r.Slot != 0 || r.Handler != "uart0_tx" {
		t.Fatalf("uart0 row %+v", r)
	}
	if r := rows[ChSPI0]; r.Enabled || !r.Pending || r.Slot != 1 || r.Handler != "?unknown?" {
		t.Fatalf("spi0 row %+v", r)
	}
	if r, ok := rows[30]; !ok || r.Handler != "default" || r.Slot != NonVectored {
		t.Fatalf("channel 30 row %+v ok=%v", r, ok)
	}
	if _, ok := rows[31]; ok {
		t.Fatal("idle reserved channel listed without all")
	}
	if n := len(tbl.Snapshot(true).Channels); n != NumChannels {
		t.Fatalf("all=true rows=%d", n)
	}
}

func TestRunDeliversRaisedInterrupts(t *testing.T) {
	tbl := NewTable(nil, nil)
	fired := make(chan Channel, 4)
	_ = tbl.Install(ChTimer2, IRQ, 7, HandlerFunc(func() { fired <- ChTimer2 }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tbl.Run(ctx)

	tbl.Raise(ChTimer2)
	select {
	case ch := <-fired:
		if ch != ChTimer2 {
			t.Fatalf("fired %d", ch)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for dispatch")
	}
}

func TestChannelNames(t *testing.T) {
	if ChannelName(ChUART0) != "uart0" || ChannelName(1) != "" {
		t.Fatal("ChannelName")
	}
	if ch, ok := ChannelByName("timer3"); !ok || ch != ChTimer3 {
		t.Fatalf("ChannelByName -> %d,%v", ch, ok)
	}
}

func TestParseChannel(t *testing.T) {
	for in, want := range map[string]Channel{"uart1": ChUART1, "7": 7, "31": 31} {
		got, err := ParseChannel(in)
		if err != nil || got != want {
			t.Fatalf("ParseChannel(%q)=%d,%v", in, got, err)
		}
	}
	for _, bad := range []string{"32", "uart9", ""} {
		if _, err := ParseChannel(bad); err != ErrInvalidChannel {
			t.Fatalf("ParseChannel(%q) err=%v", bad, err)
		}
	}
	if DefaultPriority(ChUART0) != PrioUART0 || DefaultPriority(ChWDT) != NonVectored {
		t.Fatal("DefaultPriority")
	}
}

func TestClassText(t *testing.T) {
	var c Class
	if err := c.UnmarshalText([]byte("fiq")); err != nil || c != FIQ {
		t.Fatalf("fiq -> %v,%v", c, err)
	}
	if err := c.UnmarshalText([]byte("nmi")); err != ErrInvalidClass {
		t.Fatalf("nmi err=%v", err)
	}
	if b, _ := IRQ.MarshalText(); string(b) != "IRQ" {
		t.Fatalf("MarshalText=%q", b)
	}
}
