package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"maxclient/errs"
	"maxclient/transport"
	"maxclient/transport/web"
	"maxclient/wire"
)

// gorillaDialer is an alternate web-mode dialer built on
// github.com/gorilla/websocket instead of nhooyr.io/websocket, offered
// purely as a second implementation of transport.Conn behind the same
// session.Dialer interface — the teacher's internal/transport package
// keeps both a coder/websocket and a gorilla/websocket stack side by side
// for the same reason (protocol compatibility fallback).
type gorillaDialer struct {
	url string
}

func newGorillaDialer(url string) *gorillaDialer {
	if url == "" {
		url = web.Endpoint
	}
	return &gorillaDialer{url: url}
}

func (d *gorillaDialer) Dial(ctx context.Context) (transport.Conn, error) {
	header := http.Header{}
	header.Set("Origin", "https://web.max.ru")
	header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	dialer := &websocket.Dialer{
		HandshakeTimeout:  45 * time.Second,
		EnableCompression: true,
	}
	conn, resp, err := dialer.DialContext(ctx, d.url, header)
	if err != nil {
		return nil, errs.ConnectionFailed("gorilla websocket dial", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	return &gorillaConn{conn: conn}, nil
}

type gorillaConn struct {
	conn *websocket.Conn
}

func (c *gorillaConn) Split() (transport.Writer, transport.Reader) {
	return &gorillaWriter{conn: c.conn}, &gorillaReader{conn: c.conn}
}

type gorillaFrame struct {
	Ver     uint8      `json:"ver"`
	Cmd     uint8      `json:"cmd"`
	Seq     uint64     `json:"seq"`
	Opcode  uint16     `json:"opcode"`
	Payload wire.Value `json:"payload"`
}

type gorillaWriter struct{ conn *websocket.Conn }

func (w *gorillaWriter) Send(ctx context.Context, req wire.Request) error {
	body, err := json.Marshal(gorillaFrame{
		Ver: req.Ver, Cmd: req.Cmd, Seq: req.Seq, Opcode: req.Opcode, Payload: req.Payload,
	})
	if err != nil {
		return errs.SendFailed("json encode", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(deadline)
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return errs.SendFailed("gorilla websocket write", err)
	}
	return nil
}

func (w *gorillaWriter) Close() error { return w.conn.Close() }

type gorillaReader struct{ conn *websocket.Conn }

func (r *gorillaReader) Next(ctx context.Context) (wire.Response, error) {
	for {
		typ, data, err := r.conn.ReadMessage()
		if err != nil {
			return wire.Response{}, errs.ConnectionClosed("gorilla websocket closed", err)
		}
		if typ != websocket.TextMessage {
			continue
		}
		var f gorillaFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return wire.Response{}, errs.ParseError("json decode", err)
		}
		return wire.Response{
			Ver: f.Ver, Cmd: f.Cmd, Seq: f.Seq, Opcode: f.Opcode, Payload: f.Payload,
		}, nil
	}
}
