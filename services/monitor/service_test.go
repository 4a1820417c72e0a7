package monitor

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"alds-go/bus"
	"alds-go/services/irq"
	"alds-go/txq"
	"alds-go/types"
	"alds-go/vic"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitOutput(t *testing.T, out *syncBuffer, want ...string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := out.String()
		ok := true
		for _, w := range want {
			if !strings.Contains(s, w) {
				ok = false
			}
		}
		if ok {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("output missing %q:\n%s", want, s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func setup(t *testing.T) (*irq.Service, *bus.Connection, *syncBuffer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b := bus.NewBus(16)
	is := irq.New(vic.NewTable(nil, nil))
	_ = is.Start(ctx, b.NewConnection("irq"))
	out := &syncBuffer{}
	_ = New(out).Start(ctx, b.NewConnection("monitor"))
	return is, b.NewConnection("test"), out
}

func TestReportsRetainedStateAndRings(t *testing.T) {
	is, c, out := setup(t)
	q, err := txq.New(is.Table(), txq.Config{
		ID: "mon0", Channel: vic.ChUART1, Auto: true,
		Store: make([]byte, 8), Sink: txq.NewLoopback(0),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer q.Close()
	is.Refresh()

	c.Publish(c.NewMessage(bus.T("config", "monitor"), types.MonitorConfig{Interval: 0.1, Rings: true}, true))
	s := waitOutput(t, out, "channel\tname", "7\tuart1\tIRQ\tyes", "mon0 ")
	if strings.Contains(s, "\n31\t") {
		t.Fatalf("idle channels printed without all:\n%s", s)
	}
}

func TestAllRequestsFullTable(t *testing.T) {
	_, c, out := setup(t)
	c.Publish(c.NewMessage(bus.T("config", "monitor"), map[string]any{"interval": 0.1, "all": true}, true))
	s := waitOutput(t, out, "\n31\t-\t")
	if strings.Contains(s, "mon0") {
		t.Fatalf("rings printed while disabled:\n%s", s)
	}
}
