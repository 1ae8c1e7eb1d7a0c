// Package api implements the business-layer request helpers spec.md
// marks out of scope beyond "mechanical wrappers over request(opcode,
// payload)": contacts, messaging/history, and reactions. Each function
// only shapes a payload and opcode; correlation, timeouts, and transport
// selection all live in session.Client.Request.
package api

import (
	"context"

	"maxclient/session"
	"maxclient/wire"
)

const (
	opFetchContacts = 32
	opContactAction = 34
	opGetByPhone    = 46
)

// GetByPhone resolves a contact by phone number (opcode 46).
func GetByPhone(ctx context.Context, c *session.Client, phone string) (wire.Response, error) {
	return c.Request(ctx, opGetByPhone, wire.Map(
		wire.KV("phone", wire.String(phone)),
	))
}

// FetchContacts resolves a batch of contact ids (opcode 32).
func FetchContacts(ctx context.Context, c *session.Client, userIDs []uint64) (wire.Response, error) {
	ids := make([]wire.Value, len(userIDs))
	for i, id := range userIDs {
		ids[i] = wire.Int(int64(id))
	}
	return c.Request(ctx, opFetchContacts, wire.Map(
		wire.KV("contactIds", wire.Array(ids...)),
	))
}

// AddContact adds userID to the contact list (opcode 34, action ADD).
func AddContact(ctx context.Context, c *session.Client, userID uint64) (wire.Response, error) {
	return c.Request(ctx, opContactAction, wire.Map(
		wire.KV("contactId", wire.Int(int64(userID))),
		wire.KV("action", wire.String("ADD")),
	))
}

// DeleteContact removes userID from the contact list (opcode 34, action
// REMOVE).
func DeleteContact(ctx context.Context, c *session.Client, userID uint64) (wire.Response, error) {
	return c.Request(ctx, opContactAction, wire.Map(
		wire.KV("contactId", wire.Int(int64(userID))),
		wire.KV("action", wire.String("REMOVE")),
	))
}
