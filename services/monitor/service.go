// Package monitor periodically prints the interrupt table and the transmit
// ring statistics, as configured on config/monitor.
package monitor

import (
	"context"
	"io"
	"time"

	"alds-go/bus"
	"alds-go/diag"
	"alds-go/services/irq"
	"alds-go/txq"
	"alds-go/types"
	"alds-go/x/util"
)

var (
	topicConfigMonitor = bus.T("config", "monitor")
	topicIRQState      = bus.T("irq", "state")
	topicIRQStatus     = bus.T("irq", "ctl", "status")
)

const (
	minInterval     = 100 * time.Millisecond
	maxInterval     = time.Hour
	defaultInterval = 10 * time.Second
	statusTimeout   = 200 * time.Millisecond
)

type Service struct {
	w   io.Writer
	cfg types.MonitorConfig

	last    irq.State
	haveIRQ bool
}

func New(w io.Writer) *Service {
	return &Service{w: w}
}

// status fetches a full table when configured to, otherwise uses the last
// retained irq/state.
func (s *Service) status(ctx context.Context, conn *bus.Connection) (irq.State, bool) {
	if !s.cfg.All {
		return s.last, s.haveIRQ
	}
	rctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	m, err := conn.RequestWait(rctx, conn.NewMessage(topicIRQStatus, types.IRQStatus{All: true}, false))
	if err != nil {
		println("Warn: monitor: irq status:", err.Error())
		return s.last, s.haveIRQ
	}
	st, ok := m.Payload.(irq.State)
	return st, ok
}

func (s *Service) report(ctx context.Context, conn *bus.Connection) {
	if st, ok := s.status(ctx, conn); ok {
		if err := diag.WriteIRQTable(s.w, st.Snapshot); err != nil {
			println("Error: monitor:", err.Error())
			return
		}
	}
	if !s.cfg.Rings {
		return
	}
	for _, q := range txq.All() {
		if err := diag.WriteRingStats(s.w, q.ID(), q.Stats().Ring); err != nil {
			println("Error: monitor:", err.Error())
			return
		}
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigMonitor)
	defer conn.Unsubscribe(cfgSub)
	stateSub := conn.Subscribe(topicIRQState)
	defer conn.Unsubscribe(stateSub)

	tick := time.NewTimer(defaultInterval)
	defer tick.Stop()
	interval := defaultInterval

	for {
		select {
		case <-ctx.Done():
			println("Info: monitor service stopping")
			return
		case <-tick.C:
			s.report(ctx, conn)
			tick.Reset(interval)
		case msg := <-stateSub.Channel():
			if st, ok := msg.Payload.(irq.State); ok {
				s.last, s.haveIRQ = st, true
			}
		case msg := <-cfgSub.Channel():
			var cfg types.MonitorConfig
			if err := util.DecodeJSON(msg.Payload, &cfg); err != nil {
				println("Warn: monitor: bad config:", err.Error())
				continue
			}
			s.cfg = cfg
			if cfg.Interval > 0 {
				interval = util.Seconds(cfg.Interval, minInterval, maxInterval)
			}
			util.ResetTimer(tick, interval)
			println("Info: monitor interval", int(interval/time.Millisecond), "ms")
		}
	}
}

// Start runs the monitor until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
