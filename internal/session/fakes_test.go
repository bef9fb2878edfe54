// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/caurisai/cauris-tui/internal/api"
	"github.com/caurisai/cauris-tui/internal/model"
	"github.com/caurisai/cauris-tui/internal/realtime"
)

// =============================================================================
// MANUAL CLOCK
// =============================================================================

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves time forward and runs every timer that became due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if !t.done && !t.at.After(c.now) {
			t.done = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}

// Pending counts armed timers.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// =============================================================================
// FAKE TRANSPORT
// =============================================================================

var errFakeClosed = errors.New("use of closed network connection")

type fakeConn struct {
	in     chan string
	fail   chan error
	sent   chan string
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan string, 16),
		fail:   make(chan error, 1),
		sent:   make(chan string, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadText() (string, error) {
	select {
	case s := <-c.in:
		return s, nil
	case err := <-c.fail:
		return "", err
	case <-c.closed:
		return "", errFakeClosed
	}
}

func (c *fakeConn) WriteText(text string) error {
	select {
	case <-c.closed:
		return errFakeClosed
	default:
	}
	c.sent <- text
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	mu     sync.Mutex
	errs   []error
	tokens []string
	block  bool
	dials  atomic.Int32
	conns  chan *fakeConn
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeConn, 16)}
}

// failNext makes the next n dials fail.
func (d *fakeDialer) failNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < n; i++ {
		d.errs = append(d.errs, errors.New("connection refused"))
	}
}

func (d *fakeDialer) Dial(ctx context.Context, token string) (realtime.Conn, error) {
	d.dials.Add(1)
	d.mu.Lock()
	d.tokens = append(d.tokens, token)
	block := d.block
	var err error
	if len(d.errs) > 0 {
		err, d.errs = d.errs[0], d.errs[1:]
	}
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	conn := newFakeConn()
	d.conns <- conn
	return conn, nil
}

func (d *fakeDialer) seenTokens() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.tokens...)
}

// next returns the connection handed out by the latest successful dial.
func (d *fakeDialer) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-d.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection dialed")
		return nil
	}
}

// =============================================================================
// FAKE BACKEND
// =============================================================================

type fakeBackend struct {
	mu         sync.Mutex
	history    []model.HistoryEntry
	historyErr error
	historyN   atomic.Int32

	uploadErr  error
	uploadGate chan struct{}
	uploads    atomic.Int32
}

func (b *fakeBackend) setUpload(gate chan struct{}, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploadGate, b.uploadErr = gate, err
}

func (b *fakeBackend) setHistory(entries []model.HistoryEntry, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history, b.historyErr = entries, err
}

func (b *fakeBackend) History(ctx context.Context) ([]model.HistoryEntry, error) {
	b.historyN.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.historyErr != nil {
		return nil, b.historyErr
	}
	out := make([]model.HistoryEntry, len(b.history))
	copy(out, b.history)
	return out, nil
}

func (b *fakeBackend) Upload(ctx context.Context, doc *model.Document) (*api.UploadResult, error) {
	b.uploads.Add(1)
	b.mu.Lock()
	gate, err := b.uploadGate, b.uploadErr
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &api.UploadResult{Message: "Fichier recu.", Filename: doc.Name}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type harness struct {
	ctl     *Controller
	clock   *fakeClock
	dialer  *fakeDialer
	backend *fakeBackend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:   newFakeClock(),
		dialer:  newFakeDialer(),
		backend: &fakeBackend{},
	}
	cfg := DefaultConfig()
	cfg.Clock = h.clock
	h.ctl = NewController(cfg, h.dialer, h.backend)
	t.Cleanup(h.ctl.Stop)
	return h
}

// connect starts the session and waits until it is Connected.
func (h *harness) connect(t *testing.T) *fakeConn {
	t.Helper()
	if err := h.ctl.Start("tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := h.dialer.next(t)
	waitFor(t, h.ctl, "connected", func(s Snapshot) bool { return s.State == StateConnected })
	return conn
}

func waitFor(t *testing.T, ctl *Controller, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := ctl.Snapshot()
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last snapshot: state=%s typing=%v messages=%d upload=%s",
				what, snap.State, snap.Typing, len(snap.Messages), snap.Upload.State)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitCount(t *testing.T, what string, n *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for n.Load() != want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s = %d, got %d", what, want, n.Load())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitPending(t *testing.T, c *fakeClock, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.Pending() != want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d pending timers, got %d", want, c.Pending())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// settle waits for the loop to drain everything queued so far.
func settle(t *testing.T, ctl *Controller) {
	t.Helper()
	if err := ctl.do(func() error { return nil }); err != nil {
		t.Fatalf("settle: %v", err)
	}
}

func pdf(name string) *model.Document {
	return &model.Document{Name: name, ContentType: model.ContentTypePDF, Data: []byte("%PDF-1.7")}
}
