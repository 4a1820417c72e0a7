// Package bus is the in-process message bus that links the services: a topic
// trie with MQTT-style wildcards, retained messages and request/reply.
package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

const (
	wildOne = "+" // exactly one level
	wildAll = "#" // zero or more trailing levels
)

// Topic is a sequence of comparable tokens, usually strings or ints.
type Topic []any

// T builds a topic. It panics if a token cannot be used as a map key.
func T(tokens ...any) Topic {
	for _, tok := range tokens {
		switch tok.(type) {
		case string, int, uint8, uint16, uint32, int32, int64, bool:
		default:
			mustComparable(tok)
		}
	}
	return Topic(tokens)
}

func mustComparable(v any) {
	defer func() {
		if recover() != nil {
			panic("bus: topic token is not comparable")
		}
	}()
	_ = map[any]struct{}{v: {}}
}

// Append returns a new topic with tokens added.
func (t Topic) Append(tokens ...any) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	return append(out, tokens...)
}

// Match reports whether the concrete topic t is selected by pattern.
func Match(pattern, t Topic) bool {
	for i, p := range pattern {
		if p == wildAll {
			return true
		}
		if i >= len(t) {
			return false
		}
		if p != wildOne && p != t[i] {
			return false
		}
	}
	return len(pattern) == len(t)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

func (m *Message) CanReply() bool { return m != nil && len(m.ReplyTo) > 0 }

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// deliver never blocks: a full queue loses its oldest message.
func (s *Subscription) deliver(m *Message) {
	for {
		select {
		case s.ch <- m:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// -----------------------------------------------------------------------------
// Trie
// -----------------------------------------------------------------------------

type node struct {
	children map[any]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok any, create bool) *node {
	if c, ok := n.children[tok]; ok || !create {
		return c
	}
	if n.children == nil {
		n.children = make(map[any]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

func (n *node) empty() bool {
	return len(n.subs) == 0 && len(n.children) == 0 && n.retained == nil
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

var ErrNoReply = errors.New("no_reply")

type Bus struct {
	mu     sync.Mutex
	root   node
	qLen   int
	nextID atomic.Uint32
}

// NewBus returns a bus whose subscriptions queue up to queueLen messages.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{qLen: queueLen}
}

func (b *Bus) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

// Publish delivers msg to every matching subscription. A retained message is
// stored on its topic; a retained message with a nil payload clears it.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		b.retain(msg)
	}
	b.match(&b.root, msg.Topic, func(s *Subscription) { s.deliver(msg) })
}

func (b *Bus) retain(msg *Message) {
	if msg.Payload != nil {
		n := &b.root
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		n.retained = msg
		return
	}
	path := []*node{&b.root}
	n := &b.root
	for _, tok := range msg.Topic {
		if n = n.child(tok, false); n == nil {
			return
		}
		path = append(path, n)
	}
	n.retained = nil
	b.prune(path, msg.Topic)
}

// match walks subscription patterns stored in the trie against a concrete
// topic.
func (b *Bus) match(n *node, t Topic, fn func(*Subscription)) {
	if h := n.child(wildAll, false); h != nil {
		for _, s := range h.subs {
			fn(s)
		}
	}
	if len(t) == 0 {
		for _, s := range n.subs {
			fn(s)
		}
		return
	}
	if c := n.child(t[0], false); c != nil {
		b.match(c, t[1:], fn)
	}
	if t[0] != wildOne {
		if c := n.child(wildOne, false); c != nil {
			b.match(c, t[1:], fn)
		}
	}
}

// retainedFor collects retained messages selected by pattern.
func (b *Bus) retainedFor(n *node, pattern Topic, out *[]*Message) {
	if len(pattern) == 0 {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	switch pattern[0] {
	case wildAll:
		b.walk(n, out)
	case wildOne:
		for _, c := range n.children {
			b.retainedFor(c, pattern[1:], out)
		}
	default:
		if c := n.child(pattern[0], false); c != nil {
			b.retainedFor(c, pattern[1:], out)
		}
	}
}

func (b *Bus) walk(n *node, out *[]*Message) {
	if n.retained != nil {
		*out = append(*out, n.retained)
	}
	for _, c := range n.children {
		b.walk(c, out)
	}
}

func (b *Bus) subscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := &b.root
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	var ret []*Message
	b.retainedFor(&b.root, sub.topic, &ret)
	for _, m := range ret {
		sub.deliver(m)
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := []*node{&b.root}
	n := &b.root
	for _, tok := range sub.topic {
		if n = n.child(tok, false); n == nil {
			return
		}
		path = append(path, n)
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	b.prune(path, sub.topic)
}

// prune drops empty nodes from the end of path upwards.
func (b *Bus) prune(path []*node, t Topic) {
	for i := len(t) - 1; i >= 0; i-- {
		if !path[i+1].empty() {
			return
		}
		delete(path[i].children, t[i])
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection is one service's handle on the bus. It owns its subscriptions.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(t Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(t, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(t Topic) *Subscription {
	sub := &Subscription{
		topic: t,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.subscribe(sub)
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(sub)
	close(sub.ch)
}

// Disconnect closes every subscription of the connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}

// Request assigns msg a private reply topic, subscribes to it and publishes
// msg. The caller owns the returned subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	msg.ReplyTo = T("_reply", c.id, int(c.bus.nextID.Add(1)))
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait publishes msg and waits for the first reply.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case m, ok := <-sub.Channel():
		if !ok {
			return nil, ErrNoReply
		}
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply answers req on its ReplyTo topic. Requests without one are ignored.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if !req.CanReply() {
		return
	}
	c.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}
