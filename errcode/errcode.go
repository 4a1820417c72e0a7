package errcode

import "errors"

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	InvalidTopic   Code = "invalid_topic"
	Timeout        Code = "timeout"

	InvalidChannel Code = "invalid_channel"
	NoFreeSlot     Code = "no_free_slot"
	Closed         Code = "closed"

	Error Code = "error" // generic fallback
)

// E keeps an operation name and a cause next to the code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap attaches a code and operation to err. A nil err stays nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Msg: err.Error(), Err: err}
}

// Of extracts a Code from an error, defaulting to Error. Sentinel errors
// whose text is a known code map to that code, and so do context deadlines.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	switch Code(err.Error()) {
	case InvalidChannel, NoFreeSlot, Closed, Timeout, Busy:
		return Code(err.Error())
	}
	if err.Error() == "context deadline exceeded" {
		return Timeout
	}
	return Error
}
