// Package session implements the session multiplexer: sequence
// allocation, the pending-request table, connect/reconnect, dispatch, and
// keepalive (spec.md section 4.2). It is shared by the reader, keepalive,
// and telemetry tasks and by every caller goroutine invoking Request.
package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"maxclient/errs"
	"maxclient/transport"
	"maxclient/transport/mobile"
	"maxclient/transport/web"
	"maxclient/wire"
)

// DefaultRequestTimeout is the single fixed request timeout (spec.md
// section 4.2 and section 7 — "no rate-limit negotiation beyond a single
// fixed request timeout").
const DefaultRequestTimeout = 10 * time.Second

// KeepaliveInterval is the keepalive tick period (spec.md section 4.2).
const KeepaliveInterval = 30 * time.Second

// pingOpcode and handshakeOpcode are the two opcodes the session core
// itself issues, as opposed to the business-layer request helpers.
const (
	pingOpcode      = 1
	handshakeOpcode = 6
)

// initialScreen is the telemetry current_screen default (spec.md section 3).
const initialScreen = "chats_list_tab"

// Dialer abstracts dialing either wire transport so Client doesn't need
// to know about WebSocket vs TLS/MessagePack details directly.
type Dialer interface {
	Dial(ctx context.Context) (transport.Conn, error)
}

// pendingSlot is the one-shot completion sink registered before sending a
// request and completed by the reader task (spec.md section 3, "Pending
// slot").
type pendingSlot struct {
	resultCh chan result
}

type result struct {
	resp wire.Response
	err  error
}

// state is the exclusively-owned mutable record of spec.md section 3,
// guarded by Client.mu. It is split from Client itself only so the field
// list mirrors the spec directly.
type state struct {
	writer    transport.Writer
	seq       uint64
	tempToken string
	token     string
	userID    uint64
	hasUserID bool

	actionID     uint64
	sessionID    int64
	deviceID     string
	mtInstance   string
	currentScreen string

	shutdownCh chan struct{}
}

// Client is the shared session handle: callers, the reader task, the
// keepalive task, and the telemetry task all hold a clone of the same
// *Client (spec.md section 9, "cyclic ownership... shared ownership with
// a single interior mutex").
type Client struct {
	mu    sync.Mutex
	state state

	pendingMu sync.Mutex
	pending   map[uint64]pendingSlot

	eventsMu sync.Mutex
	events   []chan wire.Response

	reconnectGroup singleflight.Group

	webDialer    Dialer
	mobileDialer Dialer

	readerWG sync.WaitGroup
}

// eventChannelCapacity bounds the broadcast event channel (spec.md
// section 5, "Backpressure").
const eventChannelCapacity = 20

// New constructs an idle client with all tokens cleared, session_id = now
// (ms), and current_screen = "chats_list_tab" (spec.md section 4.2).
func New() *Client {
	c := &Client{
		pending:      make(map[uint64]pendingSlot),
		webDialer:    web.NewDialer(),
		mobileDialer: mobile.NewDialer(),
	}
	c.state.currentScreen = initialScreen
	c.state.sessionID = nowMillis()
	return c
}

// nowMillis is isolated in one place so tests can see exactly where wall
// clock time enters the session core.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// SetWebDialer / SetMobileDialer override the transport dialer, used by
// tests to point the client at a mock server.
func (c *Client) SetWebDialer(d Dialer)    { c.webDialer = d }
func (c *Client) SetMobileDialer(d Dialer) { c.mobileDialer = d }

// IsConnected reports whether a writer is currently installed.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.writer != nil
}

func (c *Client) SetUserID(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.userID = id
	c.state.hasUserID = true
}

func (c *Client) UserID() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.userID, c.state.hasUserID
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.token = token
}

func (c *Client) SetTempToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.tempToken = token
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.token
}

func (c *Client) TempToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.tempToken
}

// CurrentScreen and SetCurrentScreen are used by the telemetry producer.
func (c *Client) CurrentScreen() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.currentScreen
}

func (c *Client) SetCurrentScreen(screen string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.currentScreen = screen
}

// SessionID and NextActionID expose the telemetry fields of spec.md
// section 3 without leaking the rest of state.
func (c *Client) SessionID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.sessionID
}

func (c *Client) NextActionID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.state.actionID
	c.state.actionID++
	return id
}

// Subscribe returns a fan-out receiver for unsolicited server frames: any
// frame whose seq is not in pending (spec.md section 4.2).
func (c *Client) Subscribe() <-chan wire.Response {
	ch := make(chan wire.Response, eventChannelCapacity)
	c.eventsMu.Lock()
	c.events = append(c.events, ch)
	c.eventsMu.Unlock()
	return ch
}

func (c *Client) publish(resp wire.Response) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	for _, ch := range c.events {
		select {
		case ch <- resp:
		default:
			// Overflow drops the oldest entry for a slow subscriber
			// (spec.md section 5, "Backpressure"): make room, then retry
			// once. Events are informational, never required for
			// correctness.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- resp:
			default:
			}
		}
	}
}

// ShutdownSignal returns the shutdown channel for the current connection,
// or nil if not connected. It changes identity across reconnects, so
// long-lived background tasks that outlive a single connection (the
// telemetry producer) must re-fetch it on every wait rather than caching
// it once at spawn time.
func (c *Client) ShutdownSignal() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.shutdownCh
}
