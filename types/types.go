package types

// ---- Generic replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- Interrupt control payloads (irq/ctl/<verb>) ----

// ChannelRef names a channel by peripheral ("uart0") or by number ("6").
type ChannelRef string

// IRQInstall is the payload of irq/ctl/install. Handler names a handler
// registered with the irq service; empty means the handler registered for
// the channel itself.
type IRQInstall struct {
	Channel  ChannelRef `json:"channel"`
	Class    string     `json:"class,omitempty"` // "IRQ" (default) | "FIQ"
	Priority *int       `json:"priority,omitempty"`
	Handler  string     `json:"handler,omitempty"`
}

// IRQChannel is the payload of irq/ctl/enable, disable, raise and uninstall.
type IRQChannel struct {
	Channel ChannelRef `json:"channel"`
}

// IRQStatus asks for a snapshot; All includes idle reserved channels.
type IRQStatus struct {
	All bool `json:"all,omitempty"`
}

// ---- Queue payloads (txq/<id>/...) ----

// TxqWrite is the payload of txq/<id>/write.
type TxqWrite struct {
	Data string `json:"data"`
}

// TxqWritten replies to a write.
type TxqWritten struct {
	OK bool `json:"ok"`
	N  int  `json:"n"`
}
