// Package delivery injects a finished result into the previously focused
// application: reactivate, let focus settle, write the clipboard, send the
// paste chord. The order is fixed; the clipboard write happens only after the
// target application holds focus again.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sottovoce/sotto/internal/session"
	"github.com/sottovoce/sotto/pkg/clipboard"
	"github.com/sottovoce/sotto/pkg/focus"
)

const defaultSettle = 150 * time.Millisecond

// Paster performs the reactivate-and-paste steps, sharing the session's focus
// gateway.
type Paster struct {
	focus  focus.Gateway
	clip   clipboard.Gateway
	settle time.Duration
}

var _ session.Deliverer = (*Paster)(nil)

// Option configures a Paster.
type Option func(*Paster)

// WithSettleDelay overrides the pause between reactivating the target
// application and writing the clipboard.
func WithSettleDelay(d time.Duration) Option {
	return func(p *Paster) {
		if d > 0 {
			p.settle = d
		}
	}
}

// New returns a Paster over the given gateways.
func New(fg focus.Gateway, cg clipboard.Gateway, opts ...Option) *Paster {
	p := &Paster{focus: fg, clip: cg, settle: defaultSettle}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Deliver implements [session.Deliverer]. A failed reactivation is logged and
// tolerated: the paste then lands in whatever application currently holds
// focus, which is the least surprising fallback. Clipboard and paste failures
// are returned.
func (p *Paster) Deliver(ctx context.Context, text string, app focus.App, hasApp bool) error {
	if hasApp {
		if err := p.focus.Activate(app); err != nil {
			slog.Warn("delivery: reactivate application", "pid", app.PID, "title", app.Title, "error", err)
		}
	}

	select {
	case <-time.After(p.settle):
	case <-ctx.Done():
		return fmt.Errorf("delivery: %w", ctx.Err())
	}

	if err := p.clip.WriteText(text); err != nil {
		return fmt.Errorf("delivery: write clipboard: %w", err)
	}
	if err := p.focus.SimulatePaste(); err != nil {
		return fmt.Errorf("delivery: simulate paste: %w", err)
	}
	return nil
}
