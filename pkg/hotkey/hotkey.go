// Package hotkey defines the Listener interface for global hotkey input.
//
// Listeners translate OS-level key chords into sotto actions. The mapping from
// chords to actions is configuration; the core session engine never sees key
// codes, only [Event] values.
package hotkey

import "context"

// Action identifies what a hotkey chord asks the application to do.
type Action string

const (
	// ActionToggle starts recording, stops it, or continues from a shown
	// result, depending on current session state.
	ActionToggle Action = "toggle"

	// ActionCancel discards the open recording.
	ActionCancel Action = "cancel"

	// ActionDismiss closes a shown result.
	ActionDismiss Action = "dismiss"

	// ActionMode selects a session mode while recording. Event.Arg carries
	// the mode name.
	ActionMode Action = "mode"

	// ActionRouting flips result routing between paste and chat while
	// recording.
	ActionRouting Action = "routing"
)

// IsValid reports whether a is a recognised action.
func (a Action) IsValid() bool {
	switch a {
	case ActionToggle, ActionCancel, ActionDismiss, ActionMode, ActionRouting:
		return true
	}
	return false
}

// Event is a single triggered hotkey.
type Event struct {
	// Action is what the chord is bound to.
	Action Action

	// Arg is the action argument, e.g. the mode name for ActionMode.
	Arg string
}

// Binding associates a key chord with an action.
type Binding struct {
	// Keys is the chord as understood by the underlying hook library,
	// e.g. ["ctrl", "shift", "space"].
	Keys []string

	// Action is dispatched when the chord fires.
	Action Action

	// Arg is the action argument carried on the emitted Event.
	Arg string
}

// Listener is the abstraction over a global hotkey hook.
type Listener interface {
	// Start installs the hook and returns the event channel. The channel is
	// closed when ctx is cancelled and the hook has been removed.
	Start(ctx context.Context) (<-chan Event, error)
}
