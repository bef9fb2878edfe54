// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caurisai/cauris-tui/internal/realtime"
)

// outboxSize bounds queued outbound frames per connection.
const outboxSize = 64

// =============================================================================
// CONNECTION MANAGER
// =============================================================================

// ConnectionManager owns the realtime socket and the reconnect timer. Every
// method runs on the controller's event loop; network I/O happens in
// per-connection goroutines that report back through post.
type ConnectionManager struct {
	dialer realtime.Dialer
	clock  Clock
	delay  time.Duration
	logger *zap.Logger
	post   func(func()) bool
	// emit receives the effects that belong to the transcript and history.
	emit func(Effect, connEvent)

	ctx   context.Context
	token string
	state ConnectionState

	// gen identifies the current connection attempt; events carrying an
	// older gen are dropped.
	gen  uint64
	link *link

	timer    Timer
	timerGen uint64

	authRejected bool
	stopped      bool
}

// connEvent is what dial and reader goroutines report.
type connEvent struct {
	gen  uint64
	kind Event
	text string
	err  error
	conn realtime.Conn
}

// link is one live connection plus its writer.
type link struct {
	gen    uint64
	conn   realtime.Conn
	outbox chan string
	done   chan struct{}
	once   sync.Once
}

func (l *link) close() {
	l.once.Do(func() {
		close(l.done)
		_ = l.conn.Close()
	})
}

func newConnectionManager(ctx context.Context, dialer realtime.Dialer, clock Clock, delay time.Duration,
	logger *zap.Logger, post func(func()) bool, emit func(Effect, connEvent)) *ConnectionManager {
	return &ConnectionManager{
		ctx:    ctx,
		dialer: dialer,
		clock:  clock,
		delay:  delay,
		logger: logger.Named("conn"),
		post:   post,
		emit:   emit,
	}
}

// State returns the current connection state.
func (m *ConnectionManager) State() ConnectionState {
	return m.state
}

// AuthRejected reports whether the last closure was the server refusing
// the token.
func (m *ConnectionManager) AuthRejected() bool {
	return m.authRejected
}

// Start begins connecting with token. An empty token moves to
// Disconnected without dialing and returns ErrAuthMissing.
func (m *ConnectionManager) Start(token string) error {
	if m.stopped {
		return ErrStopped
	}
	if token == "" {
		m.apply(EvAuthMissing, connEvent{})
		return ErrAuthMissing
	}
	m.token = token
	m.apply(EvStart, connEvent{})
	return nil
}

// Send queues text on the open connection.
func (m *ConnectionManager) Send(text string) error {
	if m.state != StateConnected || m.link == nil {
		return ErrNotConnected
	}
	select {
	case m.link.outbox <- text:
		return nil
	default:
		return ErrSendBacklog
	}
}

// Stop closes the connection and cancels any pending reconnect. The state
// is left as it was; events from the torn-down connection are ignored.
func (m *ConnectionManager) Stop() {
	if m.stopped {
		return
	}
	m.stopped = true
	m.cancelTimer()
	if m.link != nil {
		m.link.close()
		m.link = nil
	}
	m.gen++
}

// handle processes a report from a dial or reader goroutine.
func (m *ConnectionManager) handle(ev connEvent) {
	if m.stopped || ev.gen != m.gen {
		if ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}

	switch ev.kind {
	case EvOpened:
		if m.state != StateConnecting || m.link != nil {
			_ = ev.conn.Close()
			return
		}
		m.attach(ev.conn)
		m.authRejected = false
		m.logger.Info("connected", zap.Uint64("gen", ev.gen))

	case EvMessage:
		if m.link == nil {
			return
		}

	case EvTransportError:
		m.logger.Warn("transport error", zap.Uint64("gen", ev.gen), zap.Error(ev.err))

	case EvClosed:
		var ce *realtime.CloseError
		if errors.As(ev.err, &ce) && ce.AuthRejected() {
			m.authRejected = true
			m.logger.Warn("server rejected the token; run `cauris login`")
		} else {
			m.logger.Info("connection closed", zap.Uint64("gen", ev.gen), zap.Error(ev.err))
		}
	}

	m.apply(ev.kind, ev)
}

// reconnectDue is the timer callback, run on the loop.
func (m *ConnectionManager) reconnectDue(timerGen uint64) {
	if m.stopped || timerGen != m.timerGen {
		return
	}
	m.timer = nil
	m.apply(EvReconnectDue, connEvent{})
}

// apply runs the transition, performs the connection-level effects itself
// and emits the rest.
func (m *ConnectionManager) apply(ev Event, payload connEvent) {
	prev := m.state
	next, effects := Transition(prev, ev)
	m.state = next
	if prev != next {
		m.logger.Debug("state change",
			zap.Stringer("from", prev),
			zap.Stringer("to", next),
			zap.Stringer("event", ev))
	}

	for _, eff := range effects {
		switch eff {
		case EffDial:
			m.dial()
		case EffCloseConn:
			if m.link != nil {
				m.link.close()
				m.link = nil
			}
		case EffScheduleReconnect:
			m.scheduleReconnect()
		default:
			if m.emit != nil {
				m.emit(eff, payload)
			}
		}
	}
}

func (m *ConnectionManager) dial() {
	m.gen++
	gen := m.gen
	token := m.token
	ctx := m.ctx
	m.logger.Debug("dialing", zap.Uint64("gen", gen))

	go func() {
		conn, err := m.dialer.Dial(ctx, token)
		ev := connEvent{gen: gen, kind: EvOpened, conn: conn}
		if err != nil {
			ev = connEvent{gen: gen, kind: EvTransportError, err: err}
		}
		if !m.post(func() { m.handle(ev) }) && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (m *ConnectionManager) attach(conn realtime.Conn) {
	l := &link{
		gen:    m.gen,
		conn:   conn,
		outbox: make(chan string, outboxSize),
		done:   make(chan struct{}),
	}
	m.link = l
	go m.readLoop(l)
	go m.writeLoop(l)
}

// readLoop reports every frame, then exactly one terminal event unless the
// link was closed from our side.
func (m *ConnectionManager) readLoop(l *link) {
	for {
		text, err := l.conn.ReadText()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			kind := EvTransportError
			if realtime.IsClosure(err) {
				kind = EvClosed
			}
			ev := connEvent{gen: l.gen, kind: kind, err: err}
			m.post(func() { m.handle(ev) })
			return
		}
		ev := connEvent{gen: l.gen, kind: EvMessage, text: text}
		if !m.post(func() { m.handle(ev) }) {
			return
		}
	}
}

// writeLoop drains the outbox in order. A failed write closes the socket so
// that readLoop reports the transport error.
func (m *ConnectionManager) writeLoop(l *link) {
	for {
		select {
		case <-l.done:
			return
		case text := <-l.outbox:
			if err := l.conn.WriteText(text); err != nil {
				m.logger.Warn("write failed", zap.Uint64("gen", l.gen), zap.Error(err))
				_ = l.conn.Close()
				return
			}
		}
	}
}

func (m *ConnectionManager) scheduleReconnect() {
	if m.timer != nil || m.stopped {
		return
	}
	m.timerGen++
	tg := m.timerGen
	m.logger.Info("reconnecting", zap.Duration("in", m.delay))
	m.timer = m.clock.AfterFunc(m.delay, func() {
		m.post(func() { m.reconnectDue(tg) })
	})
}

func (m *ConnectionManager) cancelTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}
