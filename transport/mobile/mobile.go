// Package mobile implements the binary MessagePack-over-TLS transport
// ("mobile mode" in spec.md section 4.1): a 10-byte big-endian header
// followed by an opaque, optionally LZ4-compressed MessagePack payload.
package mobile

import (
	"context"
	"encoding/binary"
	"io"
	"net"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"maxclient/errs"
	"maxclient/transport"
	"maxclient/wire"
)

// DefaultMaxDecompressedSize bounds LZ4 decompression of an inbound
// payload (spec.md section 4.1, "a caller-chosen max output size").
const DefaultMaxDecompressedSize = 5 * 1024 * 1024

const headerLen = 10

// maxPayloadLen is the largest payload_len this client will send; the
// field occupies the low 24 bits of the packed_len word.
const maxPayloadLen = 0xFFFFFF

// Dialer opens the mobile transport. Host/Port default to the fixed
// endpoint; callers can override them to point at another TLS listener.
type Dialer struct {
	Host                string
	Port                int
	MaxDecompressedSize int
}

func NewDialer() *Dialer {
	return &Dialer{Host: Host, Port: Port, MaxDecompressedSize: DefaultMaxDecompressedSize}
}

func (d *Dialer) Dial(ctx context.Context) (transport.Conn, error) {
	host, port := d.Host, d.Port
	if host == "" {
		host = Host
	}
	if port == 0 {
		port = Port
	}
	conn, err := dialTLS(ctx, host, port)
	if err != nil {
		return nil, errs.ConnectionFailed("tls dial", err)
	}
	maxSize := d.MaxDecompressedSize
	if maxSize == 0 {
		maxSize = DefaultMaxDecompressedSize
	}
	return &mobileConn{conn: conn, maxDecompressedSize: maxSize}, nil
}

type mobileConn struct {
	conn                net.Conn
	maxDecompressedSize int
}

func (c *mobileConn) Split() (transport.Writer, transport.Reader) {
	return &writer{conn: c.conn}, &reader{conn: c.conn, maxDecompressedSize: c.maxDecompressedSize}
}

type writer struct{ conn net.Conn }

// Send encodes req as header + MessagePack payload. comp_flag is always 0
// on send (spec.md section 4.1); oversized payloads fail fast rather than
// silently truncating packed_len.
func (w *writer) Send(ctx context.Context, req wire.Request) error {
	payload, err := msgpack.Marshal(req.Payload.ToInterface())
	if err != nil {
		return errs.SendFailed("msgpack encode", err)
	}
	if len(payload) > maxPayloadLen {
		return errs.SendFailed("payload exceeds 0xFFFFFF bytes", nil)
	}

	buf := make([]byte, headerLen+len(payload))
	buf[0] = req.Ver
	binary.BigEndian.PutUint16(buf[1:3], uint16(req.Cmd))
	buf[3] = byte(req.Seq)
	binary.BigEndian.PutUint16(buf[4:6], req.Opcode)
	binary.BigEndian.PutUint32(buf[6:10], uint32(len(payload))&0xFFFFFF)
	copy(buf[headerLen:], payload)

	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(deadline)
	}
	if _, err := w.conn.Write(buf); err != nil {
		return errs.SendFailed("tls write", err)
	}
	return nil
}

func (w *writer) Close() error { return w.conn.Close() }

type reader struct {
	conn                net.Conn
	maxDecompressedSize int
}

// Next reads one frame. A short read anywhere in the 10-byte header yields
// end-of-stream (a connection-closed error). A short read of the payload
// surfaces as a parse error for that frame. An LZ4 failure or a malformed
// MessagePack body surfaces as an API-response error whose payload carries
// "error" and "details", returned together with a Response that keeps the
// frame's header fields (seq included) and a null Payload; neither
// terminates the session.
func (r *reader) Next(ctx context.Context) (wire.Response, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r.conn, header); err != nil {
		if err == io.EOF {
			return wire.Response{}, errs.ConnectionClosed("eof", err)
		}
		if err == io.ErrUnexpectedEOF {
			return wire.Response{}, errs.ConnectionClosed("eof mid-header", err)
		}
		return wire.Response{}, errs.ConnectionClosed("tls read", err)
	}

	ver := header[0]
	cmd := binary.BigEndian.Uint16(header[1:3])
	seq := uint64(header[3])
	opcode := binary.BigEndian.Uint16(header[4:6])
	packedLen := binary.BigEndian.Uint32(header[6:10])
	compFlag := byte(packedLen >> 24)
	payloadLen := int(packedLen & 0xFFFFFF)

	if payloadLen == 0 {
		return wire.Response{Ver: ver, Cmd: uint8(cmd), Seq: seq, Opcode: opcode, Payload: wire.Null()}, nil
	}

	payloadBuf := make([]byte, payloadLen)
	if _, err := io.ReadFull(r.conn, payloadBuf); err != nil {
		return wire.Response{}, errs.ParseError("short payload read", err)
	}

	if compFlag != 0 {
		decompressed, err := decompressLZ4(payloadBuf, r.maxDecompressedSize)
		if err != nil {
			return wire.Response{
				Ver: ver, Cmd: uint8(cmd), Seq: seq, Opcode: opcode,
			}, errs.APIResponse(wire.Map(
				wire.KV("error", wire.String("LZ4 error")),
				wire.KV("details", wire.String(err.Error())),
			))
		}
		payloadBuf = decompressed
	}

	if len(payloadBuf) == 0 {
		return wire.Response{Ver: ver, Cmd: uint8(cmd), Seq: seq, Opcode: opcode, Payload: wire.Null()}, nil
	}

	var raw interface{}
	if err := msgpack.Unmarshal(payloadBuf, &raw); err != nil {
		return wire.Response{
			Ver: ver, Cmd: uint8(cmd), Seq: seq, Opcode: opcode,
		}, errs.APIResponse(wire.Map(
			wire.KV("error", wire.String("MsgPack decode error")),
			wire.KV("details", wire.String(err.Error())),
		))
	}

	return wire.Response{
		Ver:     ver,
		Cmd:     uint8(cmd),
		Seq:     seq,
		Opcode:  opcode,
		Payload: wire.FromInterface(raw),
	}, nil
}

// decompressLZ4 decompresses an LZ4 block payload, bounded by maxSize.
func decompressLZ4(src []byte, maxSize int) ([]byte, error) {
	dst := make([]byte, maxSize)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}
