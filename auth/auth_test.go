package auth

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"maxclient/session"
	"maxclient/transport"
	"maxclient/wire"
)

// scriptedConn answers every Send with a canned response looked up by
// opcode, echoing back whatever seq the caller used. It stands in for a
// real server across the small request/response exchanges auth.go drives.
type scriptedConn struct {
	mu      sync.Mutex
	replies map[uint16]wire.Value
	inbox   chan wire.Response
	closed  chan struct{}
}

func newScriptedConn() *scriptedConn {
	return &scriptedConn{replies: make(map[uint16]wire.Value), inbox: make(chan wire.Response, 8), closed: make(chan struct{})}
}

func (s *scriptedConn) on(opcode uint16, payload wire.Value) { s.replies[opcode] = payload }

func (s *scriptedConn) Split() (transport.Writer, transport.Reader) { return s, s }

func (s *scriptedConn) Send(ctx context.Context, req wire.Request) error {
	s.mu.Lock()
	payload, ok := s.replies[req.Opcode]
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
		return wire.Response{}, io.EOF
	case <-ctx.Done():
		return wire.Response{}, ctx.Err()
	}
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

func TestStartAuthStoresTempToken(t *testing.T) {
	conn := newScriptedConn()
	conn.on(opStartAuth, wire.Map(wire.KV("token", wire.String("temp-123"))))
	c := newConnectedClient(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := StartAuth(ctx, c, "+70000000000"); err != nil {
		t.Fatalf("start auth: %v", err)
	}
	if c.TempToken() != "temp-123" {
		t.Fatalf("got %q", c.TempToken())
	}
}

func TestCheckCodeLoginStoresDurableToken(t *testing.T) {
	conn := newScriptedConn()
	conn.on(opCheckCode, wire.Map(
		wire.KV("token", wire.String("login-token")),
		wire.KV("tokenType", wire.String("LOGIN")),
	))
	c := newConnectedClient(t, conn)
	c.SetTempToken("temp-xyz")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := CheckCode(ctx, c, "1234"); err != nil {
		t.Fatalf("check code: %v", err)
	}
	if c.Token() != "login-token" {
		t.Fatalf("expected durable token to be set, got %q", c.Token())
	}
}

func TestCheckCodeRegisterKeepsTempToken(t *testing.T) {
	conn := newScriptedConn()
	conn.on(opCheckCode, wire.Map(
		wire.KV("token", wire.String("register-token")),
		wire.KV("tokenType", wire.String("REGISTER")),
	))
	c := newConnectedClient(t, conn)
	c.SetTempToken("temp-xyz")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := CheckCode(ctx, c, "1234"); err != nil {
		t.Fatalf("check code: %v", err)
	}
	if c.Token() != "" {
		t.Fatalf("did not expect the durable token to be set for a REGISTER tokenType")
	}
	if c.TempToken() != "register-token" {
		t.Fatalf("expected temp_token to be refreshed, got %q", c.TempToken())
	}
}

func TestSyncAndSetUserIDExtractsProfileContactID(t *testing.T) {
	conn := newScriptedConn()
	conn.on(opSync, wire.Map(wire.KV("profile", wire.Map(
		wire.KV("contact", wire.Map(wire.KV("id", wire.Int(555)))),
	))))
	c := newConnectedClient(t, conn)
	c.SetToken("tok")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := SyncAndSetUserID(ctx, c); err != nil {
		t.Fatalf("sync: %v", err)
	}
	userID, ok := c.UserID()
	if !ok || userID != 555 {
		t.Fatalf("got userID=%d ok=%v", userID, ok)
	}
}

func TestExtractUserIDMissingProfile(t *testing.T) {
	if _, ok := ExtractUserID(wire.Response{Payload: wire.Map()}); ok {
		t.Fatalf("expected no user id to be found")
	}
}
