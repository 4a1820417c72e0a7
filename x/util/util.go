// Package util holds small helpers shared by the services.
package util

import (
	"time"

	"alds-go/x/mathx"

	"github.com/sugawarayuuta/sonnet"
)

// ResetTimer stops t, drains a pending tick and rearms it for d (negative
// durations fire at once).
func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}

// DecodeJSON fills dst from a bus payload: raw JSON as []byte or string, or
// an already-decoded value (map, slice) which is re-encoded first.
func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case *T:
		*dst = *v
		return nil
	case T:
		*dst = v
		return nil
	case []byte:
		return sonnet.Unmarshal(v, dst)
	case string:
		return sonnet.Unmarshal([]byte(v), dst)
	default:
		b, err := sonnet.Marshal(v)
		if err != nil {
			return err
		}
		return sonnet.Unmarshal(b, dst)
	}
}

// Seconds converts a config value in seconds to a duration, bounded to
// [lo, hi].
func Seconds(s float64, lo, hi time.Duration) time.Duration {
	return mathx.Clamp(time.Duration(s*float64(time.Second)), lo, hi)
}
