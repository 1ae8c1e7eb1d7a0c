package session

import (
	"context"
	"time"

	"maxclient/errs"
	"maxclient/wire"
)

func connectionClosedForDisconnect() error {
	return errs.ConnectionClosed("disconnected", nil)
}

// Request is the central operation (spec.md section 4.2, "send_and_wait"):
// allocate a seq under the session lock, hand the frame to the writer
// (reconnecting lazily if needed), then wait on the completion slot up to
// the default timeout.
func (c *Client) Request(ctx context.Context, opcode uint16, payload wire.Value) (wire.Response, error) {
	return c.RequestCmd(ctx, opcode, payload, 0)
}

// RequestCmd is Request with an explicit cmd byte (spec.md section 3; 0
// for normal requests).
func (c *Client) RequestCmd(ctx context.Context, opcode uint16, payload wire.Value, cmd uint8) (wire.Response, error) {
	c.mu.Lock()
	seq, slot := c.registerPendingLocked()
	c.mu.Unlock()

	req := wire.Request{
		Ver:     wire.ProtocolVersion,
		Cmd:     cmd,
		Seq:     seq,
		Opcode:  opcode,
		Payload: payload,
	}

	if err := c.sendFrame(ctx, req); err != nil {
		c.removePending(seq)
		return wire.Response{}, err
	}

	timer := time.NewTimer(DefaultRequestTimeout)
	defer timer.Stop()

	select {
	case r := <-slot.resultCh:
		if r.err != nil {
			return wire.Response{}, r.err
		}
		if errPayload, ok := r.resp.Error(); ok {
			return wire.Response{}, errs.APIResponse(errPayload.ToInterface())
		}
		return r.resp, nil
	case <-timer.C:
		c.removePending(seq)
		return wire.Response{}, errs.RequestTimeout(DefaultRequestTimeout)
	case <-ctx.Done():
		c.removePending(seq)
		return wire.Response{}, ctx.Err()
	}
}

// sendFrame hands req to the writer. If no writer is installed but device
// identifiers are known, it performs a one-shot reconnect inline before
// sending (spec.md section 4.2, step 2); concurrent callers collapse onto
// a single reconnect attempt via singleflight.
func (c *Client) sendFrame(ctx context.Context, req wire.Request) error {
	c.mu.Lock()
	writer := c.state.writer
	deviceID := c.state.deviceID
	mtInstance := c.state.mtInstance
	c.mu.Unlock()

	if writer == nil {
		if deviceID == "" || mtInstance == "" {
			return errs.NotConnected()
		}
		if _, err, _ := c.reconnectGroup.Do("reconnect", func() (interface{}, error) {
			_, err := c.Connect(ctx, deviceID, mtInstance, true)
			return nil, err
		}); err != nil {
			return err
		}
		c.mu.Lock()
		writer = c.state.writer
		c.mu.Unlock()
		if writer == nil {
			return errs.NotConnected()
		}
	}

	// The writer is used only under the session lock, so concurrent
	// requests never interleave writes on the transport.
	c.mu.Lock()
	defer c.mu.Unlock()
	return writer.Send(ctx, req)
}
