package vic

// State is whatever a Section needs to undo its Enter.
type State uintptr

// Section defers interrupt delivery between Enter and Exit. On a
// microcontroller this masks interrupts; on a host it serialises against the
// dispatch loop.
type Section interface {
	Enter() State
	Exit(State)
}
