// Package transmit builds the transmit queues listed in config/txq and serves
// txq/<id>/<verb> requests (write, flush, discard, retract, stats). Loopback
// sinks are emptied at their configured baud rate and what leaves them is
// published on txq/<id>/wire.
package transmit

import (
	"context"
	"errors"
	"sync"
	"time"

	"alds-go/bus"
	"alds-go/errcode"
	"alds-go/services/irq"
	"alds-go/txq"
	"alds-go/types"
	"alds-go/vic"
	"alds-go/x/util"
)

var (
	topicConfigTxq = bus.T("config", "txq")
	topicCtl       = bus.T("txq", "+", "+")
)

const (
	requestTimeout = 500 * time.Millisecond
	maxStore       = 4096

	defaultBaud = 115200
	shiftTick   = 10 * time.Millisecond
)

var ErrUnknownSink = errors.New("unknown_sink")

// SinkFactory builds the sink a spec names. Boards supply their own and fall
// back to LoopbackSinks for anything they do not know.
type SinkFactory func(spec types.TxqSpec) (txq.Sink, error)

// LoopbackSinks serves "loopback" and the empty name.
func LoopbackSinks(spec types.TxqSpec) (txq.Sink, error) {
	switch spec.Sink {
	case "", "loopback":
		return txq.NewLoopback(spec.Depth), nil
	}
	return nil, ErrUnknownSink
}

type Service struct {
	irq   *irq.Service
	sinks SinkFactory

	ctx  context.Context
	conn *bus.Connection

	mu     sync.Mutex
	queues map[string]*txq.Queue
}

func New(irqSvc *irq.Service, sinks SinkFactory) *Service {
	if sinks == nil {
		sinks = LoopbackSinks
	}
	return &Service{irq: irqSvc, sinks: sinks, queues: map[string]*txq.Queue{}}
}

// Queue returns a queue built from config.
func (s *Service) Queue(id string) (*txq.Queue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[id]
	return q, ok
}

func (s *Service) build(spec types.TxqSpec) (*txq.Queue, error) {
	if spec.ID == "" || spec.Size < 2 || spec.Size > maxStore {
		return nil, errcode.InvalidParams
	}
	ch, err := vic.ParseChannel(string(spec.Channel))
	if err != nil {
		return nil, errcode.InvalidChannel
	}
	sink, err := s.sinks(spec)
	if err != nil {
		return nil, errcode.Wrap(errcode.Unsupported, "sink "+spec.Sink, err)
	}
	cfg := txq.Config{
		ID:      spec.ID,
		Channel: ch,
		Auto:    spec.Priority == nil,
		Store:   make([]byte, spec.Size),
		Sink:    sink,
	}
	if spec.Priority != nil {
		cfg.Priority = vic.Priority(*spec.Priority)
	}
	q, err := txq.New(s.irq.Table(), cfg)
	if err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "txq", err)
	}
	s.irq.Register(q.HandlerName(), q.Handler())
	s.irq.Bind(ch, q.HandlerName())
	if l, ok := sink.(*txq.Loopback); ok {
		go s.shift(spec.ID, l, spec.Baud)
	}
	return q, nil
}

// shift empties l at baud/10 bytes per second, one start and one stop bit per
// byte, and publishes the drained bytes.
func (s *Service) shift(id string, l *txq.Loopback, baud int) {
	if baud <= 0 {
		baud = defaultBaud
	}
	per := baud / 10 * int(shiftTick) / int(time.Second)
	if per < 1 {
		per = 1
	}
	topic := bus.T("txq", id, "wire")
	tick := time.NewTicker(shiftTick)
	defer tick.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-tick.C:
			if l.Drain(per) == 0 {
				continue
			}
			s.conn.Publish(s.conn.NewMessage(topic, l.Take(), false))
		}
	}
}

func (s *Service) applyConfig(specs []types.TxqSpec) {
	for _, spec := range specs {
		if _, ok := s.Queue(spec.ID); ok {
			continue
		}
		q, err := s.build(spec)
		if err != nil {
			println("Warn: txq:", spec.ID, "not created:", err.Error())
			continue
		}
		s.mu.Lock()
		s.queues[spec.ID] = q
		s.mu.Unlock()
		println("Info: txq:", spec.ID, "on channel", int(q.Channel()), "slot", int(q.Priority()))
	}
	s.irq.Refresh()
}

func reply(conn *bus.Connection, m *bus.Message, payload any) {
	if m.CanReply() {
		conn.Reply(m, payload, false)
	}
}

func replyErr(conn *bus.Connection, m *bus.Message, err error) {
	reply(conn, m, types.ErrorReply{OK: false, Error: string(errcode.Of(err))})
}

func (s *Service) handleCtl(ctx context.Context, conn *bus.Connection, m *bus.Message) {
	id, _ := m.Topic[1].(string)
	verb, _ := m.Topic[2].(string)
	if verb == "wire" {
		return
	}
	q, ok := s.Queue(id)
	if !ok {
		replyErr(conn, m, errcode.InvalidTopic)
		return
	}

	switch verb {
	case "write":
		var req types.TxqWrite
		if err := util.DecodeJSON(m.Payload, &req); err != nil {
			replyErr(conn, m, errcode.InvalidPayload)
			return
		}
		wctx, cancel := context.WithTimeout(ctx, requestTimeout)
		n, err := q.Write(wctx, []byte(req.Data))
		cancel()
		if err != nil {
			reply(conn, m, types.TxqWritten{OK: false, N: n})
			return
		}
		reply(conn, m, types.TxqWritten{OK: true, N: n})

	case "flush":
		fctx, cancel := context.WithTimeout(ctx, requestTimeout)
		err := q.Flush(fctx)
		cancel()
		if err != nil {
			replyErr(conn, m, errcode.Timeout)
			return
		}
		reply(conn, m, types.OKReply{OK: true})

	case "discard":
		q.Discard()
		reply(conn, m, types.OKReply{OK: true})

	case "retract":
		var req struct {
			N int `json:"n"`
		}
		if err := util.DecodeJSON(m.Payload, &req); err != nil || req.N <= 0 {
			replyErr(conn, m, errcode.InvalidParams)
			return
		}
		reply(conn, m, types.TxqWritten{OK: true, N: q.Retract(req.N)})

	case "stats":
		reply(conn, m, q.Stats())

	default:
		replyErr(conn, m, errcode.Unsupported)
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigTxq)
	defer conn.Unsubscribe(cfgSub)
	ctlSub := conn.Subscribe(topicCtl)
	defer conn.Unsubscribe(ctlSub)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for _, q := range s.queues {
				q.Close()
			}
			s.mu.Unlock()
			println("Info: txq service stopping")
			return
		case msg := <-cfgSub.Channel():
			var specs []types.TxqSpec
			if err := util.DecodeJSON(msg.Payload, &specs); err != nil {
				println("Warn: txq: bad config:", err.Error())
				continue
			}
			s.applyConfig(specs)
		case msg := <-ctlSub.Channel():
			s.handleCtl(ctx, conn, msg)
		}
	}
}

func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.ctx, s.conn = ctx, conn
	go s.serviceLoop(ctx, conn)
	return nil
}
