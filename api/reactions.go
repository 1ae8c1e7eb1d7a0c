package api

import (
	"context"

	"maxclient/session"
	"maxclient/wire"
)

const (
	opAddReaction    = 178
	opRemoveReaction = 179
)

// AddReaction attaches reaction (an emoji or named reaction id) to a
// message (opcode 178). This operation is not present in the reference
// client's retained sources but is wired the same way as every other
// business call: a chatId/messageId-scoped payload over request.
func AddReaction(ctx context.Context, c *session.Client, chatID, messageID uint64, reaction string) (wire.Response, error) {
	return c.Request(ctx, opAddReaction, wire.Map(
		wire.KV("chatId", wire.Int(int64(chatID))),
		wire.KV("messageId", wire.Int(int64(messageID))),
		wire.KV("reaction", wire.Map(
			wire.KV("type", wire.String("EMOJI")),
			wire.KV("id", wire.String(reaction)),
		)),
	))
}

// RemoveReaction undoes a prior AddReaction (opcode 179).
func RemoveReaction(ctx context.Context, c *session.Client, chatID, messageID uint64, reaction string) (wire.Response, error) {
	return c.Request(ctx, opRemoveReaction, wire.Map(
		wire.KV("chatId", wire.Int(int64(chatID))),
		wire.KV("messageId", wire.Int(int64(messageID))),
		wire.KV("reaction", wire.Map(
			wire.KV("type", wire.String("EMOJI")),
			wire.KV("id", wire.String(reaction)),
		)),
	))
}
