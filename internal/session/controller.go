// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caurisai/cauris-tui/internal/model"
	"github.com/caurisai/cauris-tui/internal/realtime"
)

// eventQueueSize bounds events waiting for the loop.
const eventQueueSize = 128

// Config holds configuration for a session controller.
type Config struct {
	// ReconnectDelay is the constant wait before redialing (default: 3 seconds)
	ReconnectDelay time.Duration

	// HistoryTimeout bounds one history refresh (default: 15 seconds)
	HistoryTimeout time.Duration

	// DismissDelay is how long a successful upload stays visible (default: 2 seconds)
	DismissDelay time.Duration

	// AcceptedType is the only document type uploads accept
	AcceptedType string

	// Clock creates the reconnect and dismiss timers (default: SystemClock)
	Clock Clock

	// Logger receives structured logs (default: no-op)
	Logger *zap.Logger
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay: 3 * time.Second,
		HistoryTimeout: 15 * time.Second,
		DismissDelay:   2 * time.Second,
		AcceptedType:   model.ContentTypePDF,
		Clock:          SystemClock{},
		Logger:         zap.NewNop(),
	}
}

func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
	if c.HistoryTimeout <= 0 {
		c.HistoryTimeout = d.HistoryTimeout
	}
	if c.DismissDelay < 0 {
		c.DismissDelay = d.DismissDelay
	}
	if c.AcceptedType == "" {
		c.AcceptedType = d.AcceptedType
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
}

// Backend is the REST side the controller needs.
type Backend interface {
	HistoryFetcher
	Uploader
}

// Snapshot is an immutable view of a session, published after every
// processed event.
type Snapshot struct {
	// Seq increases with every published snapshot.
	Seq uint64

	State        ConnectionState
	AuthRejected bool

	Messages []model.Message
	Typing   bool

	// History is most-recent-first.
	History      []model.HistoryEntry
	HistoryStale bool

	Upload UploadStatus
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is one realtime chat session. All state lives on a single
// event-loop goroutine; socket events, timers, fetch and upload
// completions and user intents are processed there one at a time, in
// arrival order. Public methods are safe for concurrent use.
type Controller struct {
	cfg    Config
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan func()
	done   chan struct{}

	// Loop-owned
	conn       *ConnectionManager
	transcript *model.Transcript
	history    *HistorySynchronizer
	upload     *UploadWorkflow
	started    bool
	seq        uint64

	snapMu sync.RWMutex
	snap   Snapshot

	subsMu sync.Mutex
	subs   map[chan Snapshot]struct{}
	closed bool

	stopOnce sync.Once
}

// NewController creates a session and starts its event loop. Call Start to
// connect and Stop to release it.
func NewController(cfg Config, dialer realtime.Dialer, backend Backend) *Controller {
	cfg.fillDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		cfg:    cfg,
		logger: cfg.Logger.Named("session"),
		ctx:    ctx,
		cancel: cancel,
		events: make(chan func(), eventQueueSize),
		done:   make(chan struct{}),
		subs:   make(map[chan Snapshot]struct{}),
	}

	c.transcript = model.NewTranscriptWithClock(cfg.Clock.Now)
	c.conn = newConnectionManager(ctx, dialer, cfg.Clock, cfg.ReconnectDelay, c.logger, c.post, c.connEffect)
	var fetcher HistoryFetcher
	var uploader Uploader
	if backend != nil {
		fetcher, uploader = backend, backend
	}
	c.history = newHistorySynchronizer(ctx, fetcher, cfg.HistoryTimeout, c.logger, c.post)
	c.upload = newUploadWorkflow(ctx, uploader, cfg.Clock, cfg.AcceptedType, cfg.DismissDelay, c.logger, c.post)
	c.snap = c.buildSnapshot()

	go c.run()
	return c
}

// post hands fn to the loop. It reports false once the controller stopped.
func (c *Controller) post(fn func()) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}
	select {
	case c.events <- fn:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.events:
			fn()
			c.publish()
		case <-c.ctx.Done():
			c.conn.Stop()
			c.upload.stop()
			c.closeSubscribers()
			return
		}
	}
}

// do runs fn on the loop and waits for its result.
func (c *Controller) do(fn func() error) error {
	reply := make(chan error, 1)
	if !c.post(func() { reply <- fn() }) {
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrStopped
	}
}

// connEffect carries out the transcript and history side of a connection
// transition.
func (c *Controller) connEffect(eff Effect, ev connEvent) {
	switch eff {
	case EffAppendIncoming:
		c.transcript.AppendIncoming(ev.text)
	case EffClearTyping:
		c.transcript.SetTyping(false)
	case EffRefreshHistory:
		c.history.Refresh()
	}
}

// =============================================================================
// INTENTS
// =============================================================================

// Start connects with token. An empty token leaves the session
// Disconnected and returns ErrAuthMissing; Start may then be called again
// with a real token.
func (c *Controller) Start(token string) error {
	return c.do(func() error {
		if c.started {
			return ErrAlreadyStarted
		}
		if err := c.conn.Start(token); err != nil {
			return err
		}
		c.started = true
		return nil
	})
}

// Send appends text as an outgoing message, raises the typing indicator and
// transmits it. It fails with ErrNotConnected, appending nothing, unless the
// connection is open.
func (c *Controller) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	return c.do(func() error {
		if err := c.conn.Send(text); err != nil {
			return err
		}
		c.transcript.AppendOutgoing(text)
		c.transcript.SetTyping(true)
		return nil
	})
}

// NewConversation resets the transcript to a single welcome message.
func (c *Controller) NewConversation() error {
	return c.do(func() error {
		c.transcript.Reset()
		return nil
	})
}

// LoadHistoryEntry shows entry i (0 = most recent) in place of the
// transcript.
func (c *Controller) LoadHistoryEntry(i int) error {
	return c.do(func() error {
		entries := c.history.Entries()
		if i < 0 || i >= len(entries) {
			return ErrNoSuchEntry
		}
		c.transcript.LoadFromHistoryEntry(entries[i])
		return nil
	})
}

// RefreshHistory re-fetches the server history.
func (c *Controller) RefreshHistory() error {
	return c.do(func() error {
		c.history.Refresh()
		return nil
	})
}

// OpenUpload shows the upload modal.
func (c *Controller) OpenUpload() error {
	return c.do(func() error {
		c.upload.Open()
		return nil
	})
}

// SelectDocument starts uploading doc. Non-accepted types return
// ErrUnsupportedFileType and change nothing.
func (c *Controller) SelectDocument(doc *model.Document) error {
	return c.do(func() error {
		return c.upload.Select(doc)
	})
}

// DismissUpload closes the upload modal. Refused while uploading.
func (c *Controller) DismissUpload() error {
	return c.do(func() error {
		return c.upload.Dismiss()
	})
}

// Stop closes the connection, cancels pending timers and ends the loop.
// Late completions are dropped. Safe to call more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.cancel()
		<-c.done
		c.logger.Debug("session stopped")
	})
}

// Done is closed once the loop has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// =============================================================================
// OBSERVATION
// =============================================================================

// Snapshot returns the latest published view.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// Subscribe returns a channel that always holds the latest snapshot: a slow
// reader skips intermediate ones rather than blocking the loop. The channel
// is closed by cancel or Stop.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	ch <- c.Snapshot()

	c.subsMu.Lock()
	if c.closed {
		c.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subs[ch] = struct{}{}
	c.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.subsMu.Lock()
			defer c.subsMu.Unlock()
			if _, ok := c.subs[ch]; ok {
				delete(c.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (c *Controller) buildSnapshot() Snapshot {
	return Snapshot{
		Seq:          c.seq,
		State:        c.conn.State(),
		AuthRejected: c.conn.AuthRejected(),
		Messages:     c.transcript.Messages(),
		Typing:       c.transcript.Typing(),
		History:      c.history.Entries(),
		HistoryStale: c.history.Stale(),
		Upload:       c.upload.Status(),
	}
}

func (c *Controller) publish() {
	c.seq++
	snap := c.buildSnapshot()

	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Replace the unread snapshot with the newer one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (c *Controller) closeSubscribers() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.closed = true
	for ch := range c.subs {
		close(ch)
		delete(c.subs, ch)
	}
}
