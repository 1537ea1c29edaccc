// Package mock provides test doubles for the focus package interfaces.
//
// Gateway records an ordered operation log ("activate", "paste") so tests can
// assert delivery sequencing against clipboard writes.
package mock

import (
	"sync"

	"github.com/sottovoce/sotto/pkg/focus"
)

// Gateway is a mock implementation of focus.Gateway.
type Gateway struct {
	mu sync.Mutex

	// Active is returned from CaptureActive together with HasActive.
	Active    focus.App
	HasActive bool

	// ActivateErr, if non-nil, is returned from Activate.
	ActivateErr error

	// PasteErr, if non-nil, is returned from SimulatePaste.
	PasteErr error

	// CaptureCalls counts calls to CaptureActive.
	CaptureCalls int

	// Activated records every app passed to Activate.
	Activated []focus.App

	// Ops is the ordered log of "activate" and "paste" operations.
	Ops []string
}

var _ focus.Gateway = (*Gateway)(nil)

// CaptureActive records the call and returns Active, HasActive.
func (g *Gateway) CaptureActive() (focus.App, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.CaptureCalls++
	return g.Active, g.HasActive
}

// Activate records the call and returns ActivateErr.
func (g *Gateway) Activate(app focus.App) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ActivateErr != nil {
		return g.ActivateErr
	}
	g.Activated = append(g.Activated, app)
	g.Ops = append(g.Ops, "activate")
	return nil
}

// SimulatePaste records the call and returns PasteErr.
func (g *Gateway) SimulatePaste() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.PasteErr != nil {
		return g.PasteErr
	}
	g.Ops = append(g.Ops, "paste")
	return nil
}

// OpLog returns a snapshot of the ordered operation log.
func (g *Gateway) OpLog() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.Ops))
	copy(out, g.Ops)
	return out
}
