// Package focus defines the Gateway interface over OS window focus and paste
// simulation.
//
// The foreground-application pointer is a process-wide, externally owned
// resource. sotto captures it once when a fresh session starts, keeps the
// original handle across Ask continuations, and uses it exactly once — to
// restore focus before pasting a result.
package focus

// App is a handle to an external application window.
type App struct {
	// PID is the OS process id that owned the window at capture time.
	PID int

	// Title is the window title at capture time. Informational only; focus
	// restoration keys off the PID.
	Title string
}

// Gateway is the abstraction over OS focus and keystroke injection.
type Gateway interface {
	// CaptureActive returns a handle to the currently focused external
	// application. ok is false when no foreground window could be resolved
	// (e.g., the desktop itself has focus).
	CaptureActive() (app App, ok bool)

	// Activate brings the given application back to the foreground.
	Activate(app App) error

	// SimulatePaste injects the platform paste chord (Cmd+V on macOS,
	// Ctrl+V elsewhere) into the currently focused application.
	SimulatePaste() error
}
