package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"maxclient/session"
	"maxclient/transport"
	"maxclient/wire"
)

// scriptedConn answers every Send with a canned response looked up by
// opcode, echoing back whatever seq the caller used.
type scriptedConn struct {
	mu      sync.Mutex
	replies map[uint16]wire.Value
	inbox   chan wire.Response
	closed  chan struct{}
	lastReq wire.Request
}

func newScriptedConn() *scriptedConn {
	return &scriptedConn{replies: make(map[uint16]wire.Value), inbox: make(chan wire.Response, 8), closed: make(chan struct{})}
}

func (s *scriptedConn) on(opcode uint16, payload wire.Value) { s.replies[opcode] = payload }

func (s *scriptedConn) Split() (transport.Writer, transport.Reader) { return s, s }

func (s *scriptedConn) Send(ctx context.Context, req wire.Request) error {
	s.mu.Lock()
	payload, ok := s.replies[req.Opcode]
	s.lastReq = req
	s.mu.Unlock()
	if !ok {
		payload = wire.Map()
	}
	s.inbox <- wire.Response{Ver: req.Ver, Seq: req.Seq, Opcode: req.Opcode, Payload: payload}
	return nil
}

func (s *scriptedConn) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

func (s *scriptedConn) Next(ctx context.Context) (wire.Response, error) {
	select {
	case r := <-s.inbox:
		return r, nil
	case <-s.closed:
		return wire.Response{}, context.Canceled
	case <-ctx.Done():
		return wire.Response{}, ctx.Err()
	}
}

func (s *scriptedConn) lastSent() wire.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq
}

type scriptedDialer struct{ conn *scriptedConn }

func (d *scriptedDialer) Dial(ctx context.Context) (transport.Conn, error) { return d.conn, nil }

func newConnectedClient(t *testing.T, conn *scriptedConn) *session.Client {
	t.Helper()
	c := session.New()
	c.SetWebDialer(&scriptedDialer{conn: conn})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.Connect(ctx, "device-1", "mt-1", false); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return c
}
