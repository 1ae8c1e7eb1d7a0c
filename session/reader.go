package session

import (
	"context"

	"maxclient/errs"
	"maxclient/transport"
	"maxclient/wire"
)

// readTask owns the transport reader for the lifetime of one connection.
// It races the next inbound frame against shutdown (spec.md section 4.2,
// "Reader task"). Shutdown terminates the task immediately without
// draining; EOF or an I/O error clears the writer and drains pending with
// a connection-closed error before exiting.
func (c *Client) readTask(reader transport.Reader, shutdownCh chan struct{}) {
	defer c.readerWG.Done()

	frames := make(chan result, 1)
	go func() {
		for {
			resp, err := reader.Next(context.Background())
			select {
			case frames <- result{resp: resp, err: err}:
			case <-shutdownCh:
				return
			}
			if err != nil && !isParseError(err) {
				return
			}
		}
	}()

	for {
		select {
		case <-shutdownCh:
			return
		case r := <-frames:
			if r.err != nil {
				if errs.Is(r.err, errs.KindAPIResponse) {
					// The mobile transport surfaces a malformed or
					// over-size compressed payload as an API-shaped error
					// tied to the frame's seq (spec.md section 4.1);
					// route it to whichever caller is waiting on that
					// seq instead of dropping it, and keep the session
					// alive either way.
					c.dispatchInboundError(r.resp.Seq, r.err)
					continue
				}
				if isParseError(r.err) {
					// Per-frame decode failure with no reliable seq to
					// correlate against (malformed JSON, a short read
					// mid-frame); the web and mobile transports both
					// report these without tearing down the socket
					// (spec.md section 4.1), so the reader keeps looping.
					continue
				}
				c.onReaderTerminated(r.err)
				return
			}
			c.dispatchInbound(r.resp)
		}
	}
}

// isParseError reports whether err is a per-frame decode failure that the
// inner read loop should keep going past, rather than a fatal transport
// error. Both parse errors and the mobile transport's API-shaped decode
// errors (LZ4/MessagePack) qualify; the outer loop further distinguishes
// between them to decide whether a seq-keyed caller can be notified.
func isParseError(err error) bool {
	return errs.Is(err, errs.KindParseError) || errs.Is(err, errs.KindAPIResponse)
}

// dispatchInbound completes the matching pending slot, or publishes the
// frame as an unsolicited event if no slot is waiting (spec.md section
// 4.2). Mobile-transport responses only echo the low 8 bits of seq
// (spec.md section 4.1); the match therefore compares on the truncated
// value against every still-outstanding full seq (see DESIGN.md, Open
// Question 1).
func (c *Client) dispatchInbound(resp wire.Response) {
	slot, seq, ok := c.takePendingMatching(resp.Seq)
	if !ok {
		c.publish(resp)
		return
	}
	resp.Seq = seq
	slot.resultCh <- result{resp: resp}
}

// dispatchInboundError completes the pending slot matching seq with err
// instead of a response, so a decode failure on one frame surfaces at the
// Request call that sent it rather than as a silent timeout (spec.md
// section 7, "a compressed frame whose decompressed size exceeds the
// configured max ... surfaces ApiResponse(...) and does not terminate the
// session"). If no caller is waiting on that seq, it is dropped.
func (c *Client) dispatchInboundError(seq uint64, err error) {
	slot, _, ok := c.takePendingMatching(seq)
	if !ok {
		return
	}
	slot.resultCh <- result{err: err}
}

// onReaderTerminated clears the writer and drains every pending slot with
// a connection-closed error carrying the underlying message (spec.md
// section 4.2).
func (c *Client) onReaderTerminated(err error) {
	c.mu.Lock()
	c.state.writer = nil
	c.mu.Unlock()

	closed := errs.ConnectionClosed("reader terminated", err)
	c.drainPendingWith(closed)
}
