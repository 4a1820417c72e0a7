package vic

// ChannelState is one row of the interrupt configuration table.
type ChannelState struct {
	Channel Channel  `json:"channel"`
	Name    string   `json:"name,omitempty"`
	Class   Class    `json:"class"`
	Enabled bool     `json:"enabled"`
	Pending bool     `json:"pending"`
	Slot    Priority `json:"slot"` // NonVectored when served by the default handler
	Handler string   `json:"handler"`
}

// Snapshot is a consistent copy of the table taken inside the section.
type Snapshot struct {
	Channels []ChannelState `json:"channels"`
	FreeSlot Priority       `json:"free_slot"`
}

// HandlerName reports the diagnostic name of h: its Name method if it has
// one, "none" for nil and "?unknown?" otherwise.
func HandlerName(h Handler) string {
	if h == nil {
		return "none"
	}
	if n, ok := h.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "?unknown?"
}

// Snapshot copies the state of every channel. Channels that are disabled,
// unvectored and unnamed are left out unless all is set.
func (t *Table) Snapshot(all bool) Snapshot {
	s := t.sec.Enter()
	defer t.sec.Exit(s)

	en, fiq, pend := t.enabled.Load(), t.fiq.Load(), t.pending.Load()
	snap := Snapshot{FreeSlot: NonVectored}
	for i := range t.slots {
		if !t.slots[i].assigned {
			snap.FreeSlot = Priority(i)
			break
		}
	}

	for ch := Channel(0); ch < NumChannels; ch++ {
		bit := uint32(1) << ch
		st := ChannelState{
			Channel: ch,
			Name:    ChannelName(ch),
			Enabled: en&bit != 0,
			Pending: pend&bit != 0,
			Slot:    t.priorityOf(ch),
		}
		switch {
		case fiq&bit != 0:
			st.Class = FIQ
			st.Slot = NonVectored
			st.Handler = HandlerName(t.fiqH)
		case st.Slot != NonVectored && t.slots[st.Slot].h == nil:
			st.Handler = "unconfigured"
		case st.Slot != NonVectored:
			st.Handler = HandlerName(t.slots[st.Slot].h)
		default:
			st.Handler = HandlerName(t.def)
		}
		if !all && !st.Enabled && st.Slot == NonVectored && st.Name == "" {
			continue
		}
		snap.Channels = append(snap.Channels, st)
	}
	return snap
}
