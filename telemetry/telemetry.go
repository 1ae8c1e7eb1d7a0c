// Package telemetry implements the background navigation-event producer
// of spec.md section 4.4: once a session has logged in, it emits a single
// COLD_START event followed by an unbounded stream of NAV events at
// randomly sampled intervals, sharing the session's request path and
// logging rather than failing on send errors.
package telemetry

import (
	"context"
	"log"
	"math/rand"
	"time"

	"maxclient/session"
	"maxclient/wire"
)

const telemetryOpcode = 5

// sleepRange and its weight mirror the five declared buckets of spec.md
// section 4.4 and section 7 ("observed category frequencies converge to
// {0.05, 0.10, 0.15, 0.20, 0.50}").
type sleepRange struct {
	lo, hi time.Duration
	weight float64
}

var sleepRanges = []sleepRange{
	{lo: 1000 * time.Second, hi: 3000 * time.Second, weight: 0.05},
	{lo: 300 * time.Second, hi: 1000 * time.Second, weight: 0.10},
	{lo: 60 * time.Second, hi: 300 * time.Second, weight: 0.15},
	{lo: 5 * time.Second, hi: 60 * time.Second, weight: 0.20},
	{lo: 5 * time.Second, hi: 20 * time.Second, weight: 0.50},
}

// Producer runs the telemetry task against one session. Graph defaults to
// DefaultScreenGraph when nil; Rand defaults to a process-seeded source.
type Producer struct {
	Client *session.Client
	Graph  ScreenGraph
	Rand   *rand.Rand
}

// New constructs a Producer with the default screen graph and a fresh,
// independently-seeded random source (each task gets its own so telemetry
// sampling doesn't contend with unrelated callers of math/rand's global
// source).
func New(c *session.Client) *Producer {
	return &Producer{
		Client: c,
		Graph:  DefaultScreenGraph(),
		Rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run waits for the session to be connected with a known user_id, emits
// COLD_START, then loops emitting NAV events until ctx is cancelled or the
// session shuts down (spec.md section 4.4). Call once per login, in its
// own goroutine.
func (p *Producer) Run(ctx context.Context) {
	if !p.waitForLogin(ctx) {
		return
	}

	p.sendColdStart(ctx)

	for {
		d := p.sampleSleep()
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.shutdownCh():
			timer.Stop()
			return
		case <-timer.C:
		}

		if !p.Client.IsConnected() {
			log.Printf("telemetry: session disconnected, stopping")
			return
		}
		p.sendNav(ctx)
	}
}

// shutdownCh returns a channel that is safe to select on even when the
// session currently has no active connection.
func (p *Producer) shutdownCh() chan struct{} {
	if ch := p.Client.ShutdownSignal(); ch != nil {
		return ch
	}
	return make(chan struct{})
}

func (p *Producer) waitForLogin(ctx context.Context) bool {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		_, hasUserID := p.Client.UserID()
		if p.Client.IsConnected() && hasUserID {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func (p *Producer) sendColdStart(ctx context.Context) {
	userID, ok := p.Client.UserID()
	if !ok {
		log.Printf("telemetry: cannot send COLD_START, user_id not set")
		return
	}
	actionID := p.Client.NextActionID()
	event := navEventPayload("COLD_START", userID, navEventParams{
		actionID:   actionID,
		screenTo:   p.Graph.ScreenID("chats_list_tab"),
		screenFrom: 1,
		sourceID:   1,
		sessionID:  p.Client.SessionID(),
	})
	p.send(ctx, event)
}

func (p *Producer) sendNav(ctx context.Context) {
	userID, ok := p.Client.UserID()
	if !ok {
		log.Printf("telemetry: cannot send NAV, user_id not set")
		return
	}
	from := p.Client.CurrentScreen()
	to := p.Graph.NextScreen(from, p.Rand.Intn)
	p.Client.SetCurrentScreen(to)

	actionID := p.Client.NextActionID()
	event := navEventPayload("NAV", userID, navEventParams{
		actionID:   actionID,
		screenFrom: p.Graph.ScreenID(from),
		screenTo:   p.Graph.ScreenID(to),
		sourceID:   1,
		sessionID:  p.Client.SessionID(),
	})
	p.send(ctx, event)
}

type navEventParams struct {
	actionID   uint64
	screenTo   uint32
	screenFrom uint32
	sourceID   uint32
	sessionID  int64
}

func navEventPayload(event string, userID uint64, params navEventParams) wire.Value {
	return wire.Map(
		wire.KV("event", wire.String(event)),
		wire.KV("time", wire.Int(time.Now().UnixMilli())),
		wire.KV("userId", wire.Int(int64(userID))),
		wire.KV("type", wire.String("NAV")),
		wire.KV("params", wire.Map(
			wire.KV("actionId", wire.Int(int64(params.actionID))),
			wire.KV("screenTo", wire.Int(int64(params.screenTo))),
			wire.KV("screenFrom", wire.Int(int64(params.screenFrom))),
			wire.KV("sourceId", wire.Int(int64(params.sourceID))),
			wire.KV("sessionId", wire.Int(params.sessionID)),
		)),
	)
}

// send batches a single event into the {"events": [...]} envelope and
// issues it on opcode 5; errors are logged, never propagated, so a
// telemetry failure never tears down the session (spec.md section 4.4).
func (p *Producer) send(ctx context.Context, event wire.Value) {
	payload := wire.Map(wire.KV("events", wire.Array(event)))
	resp, err := p.Client.Request(ctx, telemetryOpcode, payload)
	if err != nil {
		log.Printf("telemetry: send failed: %v", err)
		return
	}
	if errPayload, ok := resp.Error(); ok {
		log.Printf("telemetry: api returned error: %v", errPayload.ToInterface())
	}
}

// sampleSleep draws a duration from the weighted ranges of spec.md section
// 4.4.
func (p *Producer) sampleSleep() time.Duration {
	r := p.Rand.Float64()
	var cumulative float64
	chosen := sleepRanges[len(sleepRanges)-1]
	for _, sr := range sleepRanges {
		cumulative += sr.weight
		if r < cumulative {
			chosen = sr
			break
		}
	}
	span := int64(chosen.hi - chosen.lo)
	if span <= 0 {
		return chosen.lo
	}
	return chosen.lo + time.Duration(p.Rand.Int63n(span+1))
}
