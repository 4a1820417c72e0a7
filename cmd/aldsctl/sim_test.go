//go:build !rp2040 && !rp2350

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func runScript(t *testing.T, script string) string {
	t.Helper()
	var out bytes.Buffer
	if err := newSim(&out).Run(strings.NewReader(script), false); err != nil {
		t.Fatalf("script failed: %v\n%s", err, out.String())
	}
	return out.String()
}

func TestSimDispatchOrder(t *testing.T) {
	out := runScript(t, `
# timers vectored, watchdog on the default handler
default spurious
install timer1 irq 6
install timer0 irq 5
install wdt irq none
raise wdt timer1 timer0
service
`)
	want := "installed timer1_isr slot 6\n" +
		"installed timer0_isr slot 5\n" +
		"installed wdt_isr slot none\n" +
		"fire timer0_isr\n" +
		"fire timer1_isr\n" +
		"fire spurious\n" +
		"serviced 3\n"
	if out != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out, want)
	}
}

func TestSimDisabledChannelStaysLatched(t *testing.T) {
	out := runScript(t, `
install uart0
disable uart0
raise uart0
service
enable uart0
service 1
`)
	if !strings.Contains(out, "serviced 0\nfire uart0_isr\nserviced 1\n") {
		t.Fatalf("got:\n%s", out)
	}
}

func TestSimTrapOnUnvectored(t *testing.T) {
	out := runScript(t, `
install eint3
raise eint3
service
`)
	if !strings.Contains(out, "trap: vic: unvectored_irq channel 17") {
		t.Fatalf("got:\n%s", out)
	}
}

func TestSimQueue(t *testing.T) {
	out := runScript(t, `
queue u0 uart0 8 4
write u0 "hello"
write u0 "world"
service 1
drain u0
rings
`)
	for _, want := range []string{
		"queue u0 slot 0\n",
		"wrote 5\nwrote 0\n",
		`wire "hell"`,
		"u0" + strings.Repeat(" ", 9) + "used 1/7",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestSimStatusAndJSON(t *testing.T) {
	out := runScript(t, `
fiq fast
install eint0 fiq
status
json
`)
	if !strings.Contains(out, "14\teint0\tFIQ\tyes\tno\tnone\tfast\n") {
		t.Fatalf("status missing eint0:\n%s", out)
	}
	if !strings.Contains(out, `"class":"FIQ"`) {
		t.Fatalf("json missing FIQ:\n%s", out)
	}
}

func TestSimErrors(t *testing.T) {
	cases := []struct {
		line string
		want error
	}{
		{"frobnicate", errUnknownCmd},
		{"install", errUsage},
		{"write nosuch x", errUnknownQueue},
		{"service 1 2", errUsage},
	}
	for _, c := range cases {
		err := newSim(&bytes.Buffer{}).Exec(c.line)
		if !errors.Is(err, c.want) {
			t.Fatalf("%q: err %v want %v", c.line, err, c.want)
		}
	}
	if err := newSim(&bytes.Buffer{}).Exec("install uart9"); err == nil {
		t.Fatal("bad channel accepted")
	}
	if err := newSim(&bytes.Buffer{}).Exec("install uart0 irq 17"); err == nil {
		t.Fatal("bad priority accepted")
	}
}

func TestSimKeepGoing(t *testing.T) {
	var out bytes.Buffer
	err := newSim(&out).Run(strings.NewReader("bogus\ninstall timer0\n"), true)
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("err %v", err)
	}
	if !strings.Contains(out.String(), "installed timer0_isr slot 5") {
		t.Fatalf("later lines not run:\n%s", out.String())
	}
}

type captureSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *captureSink) TxSpace() int { return 8 }

func (c *captureSink) Send(p []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Write(p)
	return len(p)
}

func TestSendStreamsThroughQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	payload := strings.Repeat("0123456789", 100)
	sink := &captureSink{}
	var out bytes.Buffer
	if err := send(ctx, &out, strings.NewReader(payload), sink, 32, true); err != nil {
		t.Fatalf("send: %v", err)
	}
	sink.mu.Lock()
	got := sink.buf.String()
	sink.mu.Unlock()
	if got != payload {
		t.Fatalf("sink got %d bytes", len(got))
	}
	if !strings.HasPrefix(out.String(), "sent 1000 bytes\nsend ") {
		t.Fatalf("output %q", out.String())
	}
}
