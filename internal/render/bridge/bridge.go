// Package bridge carries render requests from the host side of the
// application to the sandbox side over an asynchronous envelope
// channel. The two sides share no state beyond the mailbox: the host
// serializes an envelope and posts it, the sandbox deserializes,
// checks the origin, and renders.
//
// The mailbox holds at most one pending envelope. Posting while one is
// pending replaces it, so a burst of refinements collapses to the
// newest code and the sandbox never renders stale requests it has not
// started yet.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/koopa0/atelier/internal/render"
)

// TypeRenderCode is the only envelope type on the wire.
const TypeRenderCode = "RENDER_CODE"

// DefaultRetryDelay is how long a post waits for the sandbox's ready
// signal before its single retry.
const DefaultRetryDelay = 100 * time.Millisecond

// ErrSandboxNotReady is returned when the sandbox has not signaled
// readiness after the post's retry.
var ErrSandboxNotReady = errors.New("bridge: sandbox not ready")

// Envelope is the wire format between host and sandbox.
type Envelope struct {
	Type   string         `json:"type"`
	Origin string         `json:"origin"`
	Code   render.Payload `json:"code"`
}

// mailbox is a capacity-one channel with replace-pending semantics.
type mailbox struct {
	ch chan []byte
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan []byte, 1)}
}

// put delivers raw, displacing any undelivered envelope.
func (m *mailbox) put(raw []byte) {
	for {
		select {
		case m.ch <- raw:
			return
		default:
		}
		select {
		case <-m.ch: // drop the pending envelope
		default:
		}
	}
}

// Host is the posting side.
type Host struct {
	origin     string
	box        *mailbox
	ready      <-chan struct{}
	retryDelay time.Duration
	logger     *slog.Logger
}

// Sandbox is the receiving side. Run must be called for posts to be
// consumed; it signals readiness on entry.
type Sandbox struct {
	origin    string
	box       *mailbox
	ready     chan struct{}
	readyOnce sync.Once
	renderer  *render.Renderer
	onOutcome func(render.Outcome)
	logger    *slog.Logger
}

// signalReady unblocks pending posts. Run calls it on entry.
func (s *Sandbox) signalReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// New wires a host/sandbox pair around a shared mailbox. Both sides
// carry the same origin; envelopes from any other origin are dropped.
func New(origin string, renderer *render.Renderer, logger *slog.Logger) (*Host, *Sandbox) {
	box := newMailbox()
	ready := make(chan struct{})
	h := &Host{
		origin:     origin,
		box:        box,
		ready:      ready,
		retryDelay: DefaultRetryDelay,
		logger:     logger,
	}
	s := &Sandbox{
		origin:   origin,
		box:      box,
		ready:    ready,
		renderer: renderer,
		logger:   logger,
	}
	return h, s
}

// WithRetryDelay overrides the ready-wait before the single retry.
func (h *Host) WithRetryDelay(d time.Duration) *Host {
	h.retryDelay = d
	return h
}

// Post serializes the payload into an envelope and delivers it. When
// the sandbox has not signaled readiness yet, Post waits once for the
// retry delay and checks again; if it is still not ready the envelope
// is dropped with ErrSandboxNotReady.
func (h *Host) Post(ctx context.Context, p render.Payload) error {
	raw, err := json.Marshal(Envelope{Type: TypeRenderCode, Origin: h.origin, Code: p})
	if err != nil {
		return err
	}

	select {
	case <-h.ready:
	default:
		h.logger.Debug("sandbox not ready, retrying", "delay", h.retryDelay)
		select {
		case <-h.ready:
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.retryDelay):
			select {
			case <-h.ready:
			default:
				return ErrSandboxNotReady
			}
		}
	}

	h.box.put(raw)
	return nil
}

// OnOutcome registers a callback invoked after each render. Set it
// before Run; it is not safe to change afterwards.
func (s *Sandbox) OnOutcome(fn func(render.Outcome)) {
	s.onOutcome = fn
}

// Run signals readiness and consumes envelopes until the context ends.
func (s *Sandbox) Run(ctx context.Context) error {
	s.signalReady()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw := <-s.box.ch:
			s.handle(ctx, raw)
		}
	}
}

func (s *Sandbox) handle(ctx context.Context, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn("dropping malformed envelope", "error", err)
		return
	}
	if env.Origin != s.origin {
		s.logger.Warn("dropping envelope from foreign origin", "origin", env.Origin)
		return
	}
	if env.Type != TypeRenderCode {
		s.logger.Warn("dropping envelope of unknown type", "type", env.Type)
		return
	}

	out := s.renderer.Render(ctx, env.Code)
	if s.onOutcome != nil {
		s.onOutcome(out)
	}
}
