//go:build rp2040 || rp2350

package vic

import "runtime/interrupt"

// IRQSection masks all interrupts on the executing core. Nesting is safe:
// Exit restores the mask that Enter found.
type IRQSection struct{}

func (IRQSection) Enter() State { return State(interrupt.Disable()) }
func (IRQSection) Exit(s State) { interrupt.Restore(interrupt.State(s)) }

func DefaultSection() Section { return IRQSection{} }
