package api

import (
	"context"
	"time"

	"maxclient/session"
	"maxclient/wire"
)

const (
	opSendMessage  = 64
	opFetchHistory = 49
)

// SendMessageArgs carries the optional fields of a send_message call
// (src/api/messaging.rs's HashMap<String, Value> "args" map, given names):
// Attaches are raw attachment payloads forwarded as-is, ReplyTo is the
// message id being replied to, and Notify defaults to true when unset.
type SendMessageArgs struct {
	Attaches []wire.Value
	ReplyTo  *uint64
	Notify   *bool
}

// SendMessage posts text to chatID (opcode 64). The client id (cid) is a
// millisecond timestamp, matching the original client's de-duplication
// scheme.
func SendMessage(ctx context.Context, c *session.Client, chatID uint64, text string, args SendMessageArgs) (wire.Response, error) {
	attaches := args.Attaches
	if attaches == nil {
		attaches = []wire.Value{}
	}

	link := wire.Null()
	if args.ReplyTo != nil {
		link = wire.Map(
			wire.KV("type", wire.String("REPLY")),
			wire.KV("messageId", wire.Int(int64(*args.ReplyTo))),
		)
	}

	notify := wire.Bool(true)
	if args.Notify != nil {
		notify = wire.Bool(*args.Notify)
	}

	message := wire.Map(
		wire.KV("text", wire.String(text)),
		wire.KV("cid", wire.Int(time.Now().UnixMilli())),
		wire.KV("elements", wire.Array()),
		wire.KV("attaches", wire.Array(attaches...)),
		wire.KV("link", link),
	)

	return c.Request(ctx, opSendMessage, wire.Map(
		wire.KV("chatId", wire.Int(int64(chatID))),
		wire.KV("message", message),
		wire.KV("notify", notify),
	))
}

// FetchHistory pages through chatID's message history (opcode 49). fromMs
// defaults to now when nil, matching from_time.unwrap_or(now) in the
// original client.
func FetchHistory(ctx context.Context, c *session.Client, chatID uint64, fromMs *int64, forward, backward uint64) (wire.Response, error) {
	from := time.Now().UnixMilli()
	if fromMs != nil {
		from = *fromMs
	}
	return c.Request(ctx, opFetchHistory, wire.Map(
		wire.KV("chatId", wire.Int(int64(chatID))),
		wire.KV("from", wire.Int(from)),
		wire.KV("forward", wire.Int(int64(forward))),
		wire.KV("backward", wire.Int(int64(backward))),
		wire.KV("getMessages", wire.Bool(true)),
	))
}
