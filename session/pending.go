package session

// registerPendingLocked allocates the next sequence number and registers a
// one-shot completion slot keyed by that seq (spec.md section 4.2, step
// 1). Must be called while holding c.mu.
func (c *Client) registerPendingLocked() (uint64, pendingSlot) {
	c.state.seq++
	seq := c.state.seq
	slot := pendingSlot{resultCh: make(chan result, 1)}
	c.pendingMu.Lock()
	c.pending[seq] = slot
	c.pendingMu.Unlock()
	return seq, slot
}

func (c *Client) removePending(seq uint64) {
	c.pendingMu.Lock()
	delete(c.pending, seq)
	c.pendingMu.Unlock()
}

// takePendingMatching removes and returns the pending slot for an inbound
// seq. It first tries a direct match (the web transport echoes the full
// seq); if none is found and the inbound value fits in a byte, it falls
// back to matching any outstanding seq whose low 8 bits agree, which is
// what the mobile transport's 1-byte seq field actually carries (spec.md
// section 4.1 and DESIGN.md Open Question 1).
func (c *Client) takePendingMatching(inbound uint64) (pendingSlot, uint64, bool) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	if slot, ok := c.pending[inbound]; ok {
		delete(c.pending, inbound)
		return slot, inbound, true
	}
	if inbound <= 0xFF {
		for seq, slot := range c.pending {
			if seq&0xFF == inbound {
				delete(c.pending, seq)
				return slot, seq, true
			}
		}
	}
	return pendingSlot{}, 0, false
}

// drainPending empties pending, completing every outstanding caller with
// a generic connection-closed error (used by Disconnect).
func (c *Client) drainPending() {
	c.drainPendingWith(nil)
}

func (c *Client) drainPendingWith(withErr error) {
	c.pendingMu.Lock()
	slots := c.pending
	c.pending = make(map[uint64]pendingSlot)
	c.pendingMu.Unlock()

	for _, slot := range slots {
		err := withErr
		if err == nil {
			err = connectionClosedForDisconnect()
		}
		slot.resultCh <- result{err: err}
	}
}
