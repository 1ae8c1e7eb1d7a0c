package mobile

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"maxclient/errs"
	"maxclient/wire"
)

func pipe() (net.Conn, net.Conn) { return net.Pipe() }

func withTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestWriterSendEncodesHeaderAndPayload(t *testing.T) {
	client, server := pipe()
	defer client.Close()
	defer server.Close()

	w := &writer{conn: client}
	req := wire.Request{
		Ver: 11, Cmd: 0, Seq: 200, Opcode: 64,
		Payload: wire.Map(wire.KV("chatId", wire.Int(1))),
	}

	done := make(chan error, 1)
	go func() { done <- w.Send(withTimeout(t), req) }()

	header := make([]byte, headerLen)
	if _, err := fullRead(server, header); err != nil {
		t.Fatalf("read header: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("send: %v", err)
	}

	if header[0] != 11 {
		t.Fatalf("ver: got %d", header[0])
	}
	if header[3] != byte(200) { // seq is truncated to the low 8 bits on the wire
		t.Fatalf("seq byte: got %d", header[3])
	}
	opcode := binary.BigEndian.Uint16(header[4:6])
	if opcode != 64 {
		t.Fatalf("opcode: got %d", opcode)
	}
	payloadLen := int(binary.BigEndian.Uint32(header[6:10]) & 0xFFFFFF)

	payload := make([]byte, payloadLen)
	if _, err := fullRead(server, payload); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	var decoded map[string]interface{}
	if err := msgpack.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("msgpack decode: %v", err)
	}
	if asInt64(t, decoded["chatId"]) != 1 {
		t.Fatalf("chatId: got %v (%T)", decoded["chatId"], decoded["chatId"])
	}
}

func asInt64(t *testing.T, v interface{}) int64 {
	t.Helper()
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	case int:
		return int64(n)
	default:
		t.Fatalf("unexpected integer type %T", v)
		return 0
	}
}

func TestReaderNextDecodesUncompressedFrame(t *testing.T) {
	client, server := pipe()
	defer client.Close()
	defer server.Close()

	payload, err := msgpack.Marshal(map[string]interface{}{"ok": true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	go writeMobileFrame(t, server, 11, 0, 3, 6, 0, payload)

	r := &reader{conn: client, maxDecompressedSize: DefaultMaxDecompressedSize}
	resp, err := r.Next(withTimeout(t))
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if resp.Seq != 3 || resp.Opcode != 6 {
		t.Fatalf("got seq=%d opcode=%d", resp.Seq, resp.Opcode)
	}
	ok, _ := resp.Payload.Get("ok")
	if b, _ := ok.AsBool(); !b {
		t.Fatalf("expected payload.ok == true")
	}
}

func TestReaderNextDecompressesLZ4Frame(t *testing.T) {
	client, server := pipe()
	defer client.Close()
	defer server.Close()

	raw, err := msgpack.Marshal(map[string]interface{}{"hello": "world"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	compressed := make([]byte, len(raw)+64)
	hashTable := make([]int, 1<<16)
	n, err := lz4.CompressBlock(raw, compressed, hashTable)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	compressed = compressed[:n]

	go writeMobileFrame(t, server, 11, 0, 9, 5, 1, compressed)

	r := &reader{conn: client, maxDecompressedSize: DefaultMaxDecompressedSize}
	resp, err := r.Next(withTimeout(t))
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	hello, _ := resp.Payload.Get("hello")
	if s, _ := hello.AsString(); s != "world" {
		t.Fatalf("got %q", s)
	}
}

func TestReaderNextSurfacesAPIResponseOnOversizedDecompression(t *testing.T) {
	client, server := pipe()
	defer client.Close()
	defer server.Close()

	raw, err := msgpack.Marshal(map[string]interface{}{"padding": string(make([]byte, 4096))})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	compressed := make([]byte, len(raw)+64)
	hashTable := make([]int, 1<<16)
	n, err := lz4.CompressBlock(raw, compressed, hashTable)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	compressed = compressed[:n]

	go writeMobileFrame(t, server, 11, 0, 42, 6, 1, compressed)

	r := &reader{conn: client, maxDecompressedSize: 16} // far smaller than the decompressed payload
	resp, err := r.Next(withTimeout(t))
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errs.Is(err, errs.KindAPIResponse) {
		t.Fatalf("expected KindAPIResponse, got %v", err)
	}
	if resp.Seq != 42 {
		t.Fatalf("expected the response to still carry seq for routing, got %d", resp.Seq)
	}
	if _, ok := resp.Payload.Get("error"); ok {
		t.Fatalf("reader.Next leaves Payload unset on this path; the error detail lives in err, not resp.Payload")
	}
}

func TestReaderNextDecodesZeroLengthPayloadAsNullRegardlessOfCompFlag(t *testing.T) {
	for _, compFlag := range []byte{0, 1} {
		client, server := pipe()
		go writeMobileFrame(t, server, 11, 0, 5, 7, compFlag, nil)

		r := &reader{conn: client, maxDecompressedSize: DefaultMaxDecompressedSize}
		resp, err := r.Next(withTimeout(t))
		if err != nil {
			t.Fatalf("compFlag=%d: next: %v", compFlag, err)
		}
		if !resp.Payload.IsNull() {
			t.Fatalf("compFlag=%d: expected a null payload for payload_len == 0, got %v", compFlag, resp.Payload)
		}
		if resp.Seq != 5 || resp.Opcode != 7 {
			t.Fatalf("compFlag=%d: got seq=%d opcode=%d", compFlag, resp.Seq, resp.Opcode)
		}

		client.Close()
		server.Close()
	}
}

func TestReaderNextSurfacesAPIResponseOnMalformedMsgPack(t *testing.T) {
	client, server := pipe()
	defer client.Close()
	defer server.Close()

	go writeMobileFrame(t, server, 11, 0, 77, 6, 0, []byte{0xC1}) // 0xC1 is reserved/invalid in MessagePack

	r := &reader{conn: client, maxDecompressedSize: DefaultMaxDecompressedSize}
	resp, err := r.Next(withTimeout(t))
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errs.Is(err, errs.KindAPIResponse) {
		t.Fatalf("expected KindAPIResponse, got %v", err)
	}
	if resp.Seq != 77 {
		t.Fatalf("got seq=%d", resp.Seq)
	}
}

// writeMobileFrame writes one raw mobile-transport frame directly to conn,
// bypassing writer.Send, so tests can exercise reader.Next against
// payloads the real writer would never produce (malformed MessagePack, an
// oversized compressed block).
func writeMobileFrame(t *testing.T, conn net.Conn, ver uint8, cmd uint16, seq uint8, opcode uint16, compFlag byte, payload []byte) {
	t.Helper()
	header := make([]byte, headerLen+len(payload))
	header[0] = ver
	binary.BigEndian.PutUint16(header[1:3], cmd)
	header[3] = seq
	binary.BigEndian.PutUint16(header[4:6], opcode)
	packedLen := uint32(len(payload))&0xFFFFFF | uint32(compFlag)<<24
	binary.BigEndian.PutUint32(header[6:10], packedLen)
	copy(header[headerLen:], payload)
	_, _ = conn.Write(header)
}

func fullRead(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
