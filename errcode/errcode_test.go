package errcode

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"code", InvalidChannel, InvalidChannel},
		{"wrapped code", fmt.Errorf("install: %w", NoFreeSlot), NoFreeSlot},
		{"E", Wrap(Unsupported, "sink", errors.New("no such bus")), Unsupported},
		{"sentinel text", errors.New("closed"), Closed},
		{"deadline", context.DeadlineExceeded, Timeout},
		{"other", errors.New("boom"), Error},
	}
	for _, c := range cases {
		if got := Of(c.err); got != c.want {
			t.Fatalf("%s: Of=%q want %q", c.name, got, c.want)
		}
	}
}

func TestWrap(t *testing.T) {
	if Wrap(Busy, "op", nil) != nil {
		t.Fatal("Wrap(nil) != nil")
	}
	cause := errors.New("port gone")
	err := Wrap(Error, "serial", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	if got := err.Error(); got != "serial: error: port gone" {
		t.Fatalf("Error()=%q", got)
	}
}
