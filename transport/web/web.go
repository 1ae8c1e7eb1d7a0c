// Package web implements the text/JSON-over-WebSocket transport ("web
// mode" in spec.md section 4.1): one frame per text WebSocket message,
// body is the JSON encoding of the logical request/response record.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"maxclient/errs"
	"maxclient/transport"
	"maxclient/wire"
)

// Endpoint is the fixed WebSocket URL this client dials (spec.md section 6).
const Endpoint = "wss://ws-api.oneme.ru/websocket"

const (
	originHeader = "https://web.max.ru"
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64; rv:142.0) Gecko/20100101 Firefox/142.0"
)

// frameJSON mirrors wire.Request/wire.Response on the wire; a missing cmd
// on an inbound frame is treated as 0 (spec.md section 4.1).
type frameJSON struct {
	Ver     uint8     `json:"ver"`
	Cmd     uint8     `json:"cmd"`
	Seq     uint64    `json:"seq"`
	Opcode  uint16    `json:"opcode"`
	Payload wire.Value `json:"payload"`
}

// Dialer dials the web transport with a caller-overridable URL, used by
// tests to point at a mock server.
type Dialer struct {
	URL        string
	HTTPClient *http.Client
}

func NewDialer() *Dialer {
	return &Dialer{URL: Endpoint}
}

func (d *Dialer) Dial(ctx context.Context) (transport.Conn, error) {
	url := d.URL
	if url == "" {
		url = Endpoint
	}
	header := http.Header{}
	header.Set("Origin", originHeader)
	header.Set("User-Agent", userAgent)

	client := d.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient:      client,
		HTTPHeader:      header,
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		return nil, errs.ConnectionFailed("websocket dial", err)
	}
	conn.SetReadLimit(-1)
	return &wsConn{c: conn}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Split() (transport.Writer, transport.Reader) {
	return &writer{c: w.c}, &reader{c: w.c}
}

type writer struct{ c *websocket.Conn }

func (w *writer) Send(ctx context.Context, req wire.Request) error {
	body, err := json.Marshal(frameJSON{
		Ver:     req.Ver,
		Cmd:     req.Cmd,
		Seq:     req.Seq,
		Opcode:  req.Opcode,
		Payload: req.Payload,
	})
	if err != nil {
		return errs.SendFailed("json encode", err)
	}
	if err := w.c.Write(ctx, websocket.MessageText, body); err != nil {
		return errs.SendFailed("websocket write", err)
	}
	return nil
}

func (w *writer) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "bye")
}

type reader struct{ c *websocket.Conn }

// Next reads the next frame. Binary messages and anything other than a
// close/error are ignored (spec.md section 4.1); a close or read error
// surfaces as end-of-stream to the caller.
func (r *reader) Next(ctx context.Context) (wire.Response, error) {
	for {
		typ, data, err := r.c.Read(ctx)
		if err != nil {
			return wire.Response{}, errs.ConnectionClosed("websocket closed", err)
		}
		if typ != websocket.MessageText {
			continue
		}
		var f frameJSON
		if err := json.Unmarshal(data, &f); err != nil {
			return wire.Response{}, errs.ParseError("json decode", err)
		}
		return wire.Response{
			Ver:     f.Ver,
			Cmd:     f.Cmd,
			Seq:     f.Seq,
			Opcode:  f.Opcode,
			Payload: f.Payload,
		}, nil
	}
}
