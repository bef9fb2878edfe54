// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package realtime

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// DefaultHandshakeTimeout bounds the opening handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds one outbound frame. A peer that stops
	// reading fails the write instead of stalling the writer.
	DefaultWriteTimeout = 10 * time.Second

	// CloseInvalidToken is the close code the server sends when the token
	// in the query string is rejected.
	CloseInvalidToken = 4003

	// maxFrameSize caps a single inbound frame.
	maxFrameSize = 4 * 1024 * 1024

	closeGrace = time.Second
)

// ErrEmptyURL indicates the dialer has no endpoint.
var ErrEmptyURL = errors.New("realtime URL not configured")

// Conn is one open realtime connection. ReadText blocks until a frame
// arrives or the connection ends; it is called from a single goroutine.
// WriteText and Close may be called from any goroutine.
type Conn interface {
	ReadText() (string, error)
	WriteText(text string) error
	Close() error
}

// Dialer opens realtime connections authenticated with a bearer token.
type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

// CloseError is returned by ReadText when the peer closed the connection
// with a close frame. Any other read error is a transport failure.
type CloseError struct {
	Code   int
	Reason string
}

// Error implements the error interface.
func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection closed (code %d)", e.Code)
	}
	return fmt.Sprintf("connection closed (code %d): %s", e.Code, e.Reason)
}

// AuthRejected reports whether the server refused the token.
func (e *CloseError) AuthRejected() bool {
	return e.Code == CloseInvalidToken
}

// IsClosure reports whether err is an orderly closure rather than a
// transport failure.
func IsClosure(err error) bool {
	var ce *CloseError
	return errors.As(err, &ce)
}

// =============================================================================
// WEBSOCKET DIALER
// =============================================================================

// WSDialer dials the chat websocket endpoint. The token travels as the
// "token" query parameter, which is what the server's handshake expects.
type WSDialer struct {
	URL              string
	TLSConfig        *tls.Config
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Logger           *zap.Logger
}

// NewWSDialer creates a dialer for endpoint (ws:// or wss://).
func NewWSDialer(endpoint string) *WSDialer {
	return &WSDialer{
		URL:              endpoint,
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		Logger:           zap.NewNop(),
	}
}

// Endpoint returns the URL dialed for token.
func (d *WSDialer) Endpoint(token string) (string, error) {
	if d.URL == "" {
		return "", ErrEmptyURL
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return "", fmt.Errorf("invalid realtime URL: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial performs the websocket handshake.
func (d *WSDialer) Dial(ctx context.Context, token string) (Conn, error) {
	endpoint, err := d.Endpoint(token)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
		TLSClientConfig:  d.TLSConfig,
	}

	ws, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	ws.SetReadLimit(maxFrameSize)

	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("websocket connected", zap.String("host", ws.RemoteAddr().String()))

	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &wsConn{ws: ws, writeTimeout: writeTimeout}, nil
}

// =============================================================================
// CONNECTION
// =============================================================================

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	// gorilla allows one concurrent writer
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) ReadText() (string, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			// gorilla reports a vanished peer as 1006; no close frame was
			// actually received, so that is a transport failure.
			if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
				return "", &CloseError{Code: ce.Code, Reason: ce.Text}
			}
			return "", fmt.Errorf("connection lost: %w", err)
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return string(data), nil
		}
	}
}

func (c *wsConn) WriteText(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(text))
}

// Close sends a normal close frame and releases the socket. Safe to call
// more than once. It does not wait for a pending WriteText: gorilla lets
// WriteControl and Close run alongside the writer, and closing the socket
// unblocks it.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
