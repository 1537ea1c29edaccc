// Package gohook provides a hotkey Listener backed by github.com/robotn/gohook,
// which installs a global keyboard hook on macOS, Windows, and X11.
package gohook

import (
	"context"
	"fmt"
	"log/slog"

	hook "github.com/robotn/gohook"

	"github.com/sottovoce/sotto/pkg/hotkey"
)

// Compile-time assertion that Listener implements hotkey.Listener.
var _ hotkey.Listener = (*Listener)(nil)

// Listener implements hotkey.Listener.
type Listener struct {
	bindings []hotkey.Binding
}

// New returns a Listener for the given bindings.
func New(bindings []hotkey.Binding) (*Listener, error) {
	if len(bindings) == 0 {
		return nil, fmt.Errorf("hotkey: no bindings configured")
	}
	for _, b := range bindings {
		if len(b.Keys) == 0 {
			return nil, fmt.Errorf("hotkey: binding for action %q has no keys", b.Action)
		}
	}
	return &Listener{bindings: bindings}, nil
}

// Start implements hotkey.Listener. The hook runs until ctx is cancelled.
// Events are dropped rather than blocking when the consumer falls behind;
// a hotkey press the user has to repeat beats a frozen hook thread.
func (l *Listener) Start(ctx context.Context) (<-chan hotkey.Event, error) {
	events := make(chan hotkey.Event, 8)

	for _, b := range l.bindings {
		b := b
		hook.Register(hook.KeyDown, b.Keys, func(_ hook.Event) {
			select {
			case events <- hotkey.Event{Action: b.Action, Arg: b.Arg}:
			default:
				slog.Warn("hotkey: event dropped, consumer too slow", "action", b.Action)
			}
		})
	}

	raw := hook.Start()
	processed := hook.Process(raw)

	go func() {
		defer close(events)
		select {
		case <-ctx.Done():
			hook.End()
			<-processed
		case <-processed:
		}
	}()

	return events, nil
}
