// Package transport defines the minimal split reader/writer capability
// the session core needs from either wire transport. There is no shared
// base type beyond these two operations (spec.md section 9): the web and
// mobile transports each implement Writer and Reader independently.
package transport

import (
	"context"

	"maxclient/wire"
)

// Writer sends one request frame. Implementations own the write half of
// the underlying connection; the session core calls Send only while
// holding its session lock, so no two writes race (spec.md section 5).
type Writer interface {
	Send(ctx context.Context, req wire.Request) error
	Close() error
}

// Reader receives the next response frame. The reader task is the sole
// caller of Next; a returned error with errs.KindConnectionClosed (wrapped
// or bare) signals end-of-stream.
type Reader interface {
	Next(ctx context.Context) (wire.Response, error)
}

// Conn is a connected transport split into its two halves.
type Conn interface {
	Split() (Writer, Reader)
}
