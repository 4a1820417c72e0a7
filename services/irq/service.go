// Package irq owns the board interrupt table. It applies config/irq plans,
// answers irq/ctl/<verb> requests and keeps a retained irq/state snapshot.
package irq

import (
	"context"
	"sync"
	"sync/atomic"

	"alds-go/bus"
	"alds-go/errcode"
	"alds-go/txq"
	"alds-go/types"
	"alds-go/vic"
	"alds-go/x/util"
)

var (
	topicConfigIRQ = bus.T("config", "irq")
	topicCtl       = bus.T("irq", "ctl", "+")
	topicState     = bus.T("irq", "state")
)

// Built-in handler names.
const (
	HandlerSpurious = "spurious"
	HandlerFIQ      = "fiq"
)

// State is the retained irq/state payload.
type State struct {
	vic.Snapshot
	Spurious uint32 `json:"spurious"`
	FIQs     uint32 `json:"fiqs"`

	// Evicted counts installs that took a slot from a transmit queue.
	Evicted uint32 `json:"evicted"`
}

type Service struct {
	tbl *vic.Table

	mu        sync.Mutex
	handlers  map[string]vic.Handler
	byChannel map[vic.Channel]string

	spurious atomic.Uint32
	fiqs     atomic.Uint32
	evicted  atomic.Uint32

	refresh chan struct{}
}

func New(tbl *vic.Table) *Service {
	s := &Service{
		tbl:       tbl,
		handlers:  map[string]vic.Handler{},
		byChannel: map[vic.Channel]string{},
		refresh:   make(chan struct{}, 1),
	}
	s.Register(HandlerSpurious, vic.HandlerFunc(func() { s.spurious.Add(1) }))
	s.Register(HandlerFIQ, vic.HandlerFunc(func() { s.fiqs.Add(1) }))
	return s
}

func (s *Service) Table() *vic.Table { return s.tbl }

// Register makes h available to plans and install requests under name.
func (s *Service) Register(name string, h vic.Handler) {
	if vic.HandlerName(h) != name {
		h = vic.Named(name, h.Fire)
	}
	s.mu.Lock()
	s.handlers[name] = h
	s.mu.Unlock()
}

// Bind names the handler used for ch when a request does not name one.
func (s *Service) Bind(ch vic.Channel, name string) {
	s.mu.Lock()
	s.byChannel[ch] = name
	s.mu.Unlock()
}

func (s *Service) handler(name string, ch vic.Channel) vic.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		name = s.byChannel[ch]
	}
	return s.handlers[name]
}

// Refresh asks the service to republish irq/state.
func (s *Service) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func (s *Service) state(all bool) State {
	return State{
		Snapshot: s.tbl.Snapshot(all),
		Spurious: s.spurious.Load(),
		FIQs:     s.fiqs.Load(),
		Evicted:  s.evicted.Load(),
	}
}

func (s *Service) publishState(conn *bus.Connection) {
	conn.Publish(&bus.Message{Topic: topicState, Payload: s.state(false), Retained: true})
}

// install binds ch the way a plan or request describes it. A vectored install
// without a known handler is downgraded to non-vectored so the channel never
// reaches an unconfigured slot.
func (s *Service) install(ref types.ChannelRef, class string, prio *int, handler string) (vic.Channel, error) {
	ch, err := vic.ParseChannel(string(ref))
	if err != nil {
		return 0, errcode.InvalidChannel
	}
	var c vic.Class
	if err := c.UnmarshalText([]byte(class)); err != nil {
		return 0, errcode.InvalidParams
	}
	p := vic.DefaultPriority(ch)
	if prio != nil {
		if *prio < 0 || *prio > int(vic.NonVectored) {
			return 0, errcode.InvalidParams
		}
		p = vic.Priority(*prio)
	}
	h := s.handler(handler, ch)
	if c == vic.IRQ && p != vic.NonVectored && h == nil {
		if handler != "" {
			return 0, errcode.InvalidParams
		}
		println("Warn: irq: no handler for channel", int(ch), "- using default handler")
		p = vic.NonVectored
	}
	if c == vic.IRQ && p != vic.NonVectored {
		s.warnEviction(ch, p, h)
	}
	return ch, s.tbl.Install(ch, c, p, h)
}

// warnEviction reports a transmit queue whose handler is about to lose slot p.
// The queue stalls on the default handler until it is given a slot again.
func (s *Service) warnEviction(ch vic.Channel, p vic.Priority, h vic.Handler) {
	for _, q := range txq.All() {
		if q.Table() != s.tbl || s.tbl.PriorityOf(q.Channel()) != p {
			continue
		}
		if q.Channel() == ch && vic.HandlerName(h) == q.HandlerName() {
			continue
		}
		s.evicted.Add(1)
		println("Warn: irq: slot", int(p), "taken from txq", q.ID(), "on channel", int(q.Channel()))
	}
}

func (s *Service) applyConfig(cfg types.IRQConfig) {
	if cfg.Default != "" {
		if h := s.handler(cfg.Default, 0); h != nil {
			s.tbl.SetDefaultHandler(h)
		} else {
			println("Warn: irq: unknown default handler", cfg.Default)
		}
	}
	if cfg.FIQ != "" {
		if h := s.handler(cfg.FIQ, 0); h != nil {
			s.tbl.SetFIQHandler(h)
		} else {
			println("Warn: irq: unknown fiq handler", cfg.FIQ)
		}
	}
	for _, p := range cfg.Plans {
		ch, err := s.install(p.Channel, p.Class, p.Priority, p.Handler)
		if err != nil {
			println("Warn: irq: plan for", string(p.Channel), "rejected:", err.Error())
			continue
		}
		if p.Enabled != nil && !*p.Enabled {
			s.tbl.DisableChannel(ch)
		}
	}
	println("Info: irq: applied", len(cfg.Plans), "plans")
}

func (s *Service) replyOK(conn *bus.Connection, m *bus.Message) {
	if m.CanReply() {
		conn.Reply(m, types.OKReply{OK: true}, false)
	}
}

func (s *Service) replyErr(conn *bus.Connection, m *bus.Message, err error) {
	if m.CanReply() {
		conn.Reply(m, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
	}
}

// handleCtl serves one irq/ctl/<verb> request. It reports whether the table
// changed.
func (s *Service) handleCtl(conn *bus.Connection, m *bus.Message) bool {
	verb, _ := m.Topic[len(m.Topic)-1].(string)
	switch verb {
	case "status":
		var req types.IRQStatus
		if m.Payload != nil {
			if err := util.DecodeJSON(m.Payload, &req); err != nil {
				s.replyErr(conn, m, errcode.InvalidPayload)
				return false
			}
		}
		if m.CanReply() {
			conn.Reply(m, s.state(req.All), false)
		}
		return false

	case "install":
		var req types.IRQInstall
		if err := util.DecodeJSON(m.Payload, &req); err != nil {
			s.replyErr(conn, m, errcode.InvalidPayload)
			return false
		}
		if _, err := s.install(req.Channel, req.Class, req.Priority, req.Handler); err != nil {
			s.replyErr(conn, m, err)
			return false
		}
		s.replyOK(conn, m)
		return true

	case "enable", "disable", "uninstall", "raise":
		var req types.IRQChannel
		if err := util.DecodeJSON(m.Payload, &req); err != nil {
			s.replyErr(conn, m, errcode.InvalidPayload)
			return false
		}
		ch, err := vic.ParseChannel(string(req.Channel))
		if err != nil {
			s.replyErr(conn, m, errcode.InvalidChannel)
			return false
		}
		switch verb {
		case "enable":
			s.tbl.EnableChannel(ch)
		case "disable":
			s.tbl.DisableChannel(ch)
		case "uninstall":
			s.tbl.Uninstall(ch)
		case "raise":
			s.tbl.Raise(ch)
		}
		s.replyOK(conn, m)
		return verb != "raise"

	default:
		s.replyErr(conn, m, errcode.Unsupported)
		return false
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigIRQ)
	defer conn.Unsubscribe(cfgSub)
	ctlSub := conn.Subscribe(topicCtl)
	defer conn.Unsubscribe(ctlSub)

	s.publishState(conn)
	for {
		select {
		case <-ctx.Done():
			println("Info: irq service stopping")
			return
		case msg := <-cfgSub.Channel():
			var cfg types.IRQConfig
			if err := util.DecodeJSON(msg.Payload, &cfg); err != nil {
				println("Warn: irq: bad config:", err.Error())
				continue
			}
			s.applyConfig(cfg)
			s.publishState(conn)
		case msg := <-ctlSub.Channel():
			if s.handleCtl(conn, msg) {
				s.publishState(conn)
			}
		case <-s.refresh:
			s.publishState(conn)
		}
	}
}

// Start runs the request loop and the table's dispatch loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.tbl.Run(ctx)
	go s.serviceLoop(ctx, conn)
	return nil
}
