package vic

import "alds-go/x/conv"

// FaultKind tells the two fatal dispatch paths apart.
type FaultKind uint8

const (
	// FaultUnconfiguredVector: a slot bound to a channel fired with no handler.
	FaultUnconfiguredVector FaultKind = iota + 1
	// FaultUnvectoredIRQ: an enabled channel without a slot fired and no
	// default (or FIQ) handler is set.
	FaultUnvectoredIRQ
)

func (k FaultKind) String() string {
	switch k {
	case FaultUnconfiguredVector:
		return "unconfigured_vector"
	case FaultUnvectoredIRQ:
		return "unvectored_irq"
	default:
		return "unknown"
	}
}

// Fault describes a dispatch that cannot continue.
type Fault struct {
	Kind    FaultKind
	Channel Channel
	Slot    Priority // NonVectored for unvectored faults
}

func (f Fault) Error() string {
	msg := "vic: " + f.Kind.String() + " channel " + conv.Itoa(int(f.Channel))
	if f.Slot != NonVectored {
		msg += " slot " + conv.Itoa(int(f.Slot))
	}
	return msg
}

// Halt is the default trap. Execution must not continue past an unset
// vector, so it panics with the fault; on a microcontroller the panic
// handler stops the core.
func Halt(f Fault) {
	println("Error:", f.Error())
	panic(f)
}
