package types

// Configuration published by the config service as retained config/<key>.

// IRQConfig arrives on config/irq. A plan without a priority takes the
// channel's board default.
type IRQConfig struct {
	Default string    `json:"default,omitempty"` // handler name for non-vectored IRQs
	FIQ     string    `json:"fiq,omitempty"`     // handler name for FIQ channels
	Plans   []IRQPlan `json:"plans"`
}

type IRQPlan struct {
	Channel  ChannelRef `json:"channel"`
	Class    string     `json:"class,omitempty"`
	Priority *int       `json:"priority,omitempty"`
	Handler  string     `json:"handler,omitempty"`
	Enabled  *bool      `json:"enabled,omitempty"`
}

// TxqSpec arrives as one element of config/txq.
type TxqSpec struct {
	ID       string     `json:"id"`
	Channel  ChannelRef `json:"channel"`
	Priority *int       `json:"priority,omitempty"` // absent: highest free slot
	Size     int        `json:"size"`
	Sink     string     `json:"sink,omitempty"`  // "loopback" | board sink name
	Depth    int        `json:"depth,omitempty"` // loopback FIFO depth, bus frame size
	Port     string     `json:"port,omitempty"`  // host serial sink
	Baud     int        `json:"baud,omitempty"`
	Addr     uint16     `json:"addr,omitempty"` // i2c target
}

// MonitorConfig arrives on config/monitor.
type MonitorConfig struct {
	Interval float64 `json:"interval"` // seconds
	All      bool    `json:"all,omitempty"`
	Rings    bool    `json:"rings,omitempty"`
}
