package session

import (
	"context"
	"time"

	"maxclient/wire"
)

// keepaliveTask ticks every KeepaliveInterval, issuing a ping request
// through the same request path. Any error (timeout or transport) ends
// the task; it never reconnects on its own (spec.md section 4.2,
// "Keepalive task").
func (c *Client) keepaliveTask(shutdownCh chan struct{}) {
	ticker := time.NewTicker(KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdownCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
			_, err := c.Request(ctx, pingOpcode, wire.Map(wire.KV("interactive", wire.Bool(true))))
			cancel()
			if err != nil {
				return
			}
		}
	}
}
