// Package robotgo provides a focus Gateway backed by github.com/go-vgo/robotgo
// for window handling and github.com/micmonay/keybd_event for the paste chord.
//
// robotgo resolves and re-activates windows by PID across macOS, Windows, and
// X11. keybd_event is used for the paste keystroke because it synthesises key
// events at a lower level than robotgo's typing helpers, which matters for
// applications that filter synthetic input.
package robotgo

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/micmonay/keybd_event"

	"github.com/sottovoce/sotto/pkg/focus"
)

// Compile-time assertion that Gateway implements focus.Gateway.
var _ focus.Gateway = (*Gateway)(nil)

// Gateway implements focus.Gateway.
type Gateway struct {
	kb keybd_event.KeyBonding
}

// New returns a new Gateway. On Linux the underlying uinput device needs a
// short warm-up after creation before synthetic key events register; New
// performs that wait so SimulatePaste is immediately usable.
func New() (*Gateway, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("focus: create key bonding: %w", err)
	}
	if runtime.GOOS == "linux" {
		time.Sleep(2 * time.Second)
	}
	return &Gateway{kb: kb}, nil
}

// CaptureActive implements focus.Gateway.
func (g *Gateway) CaptureActive() (focus.App, bool) {
	pid := robotgo.GetPid()
	if pid <= 0 {
		return focus.App{}, false
	}
	return focus.App{PID: int(pid), Title: robotgo.GetTitle()}, true
}

// Activate implements focus.Gateway.
func (g *Gateway) Activate(app focus.App) error {
	if app.PID <= 0 {
		return fmt.Errorf("focus: invalid pid %d", app.PID)
	}
	if err := robotgo.ActivePid(app.PID); err != nil {
		return fmt.Errorf("focus: activate pid %d: %w", app.PID, err)
	}
	return nil
}

// SimulatePaste implements focus.Gateway.
func (g *Gateway) SimulatePaste() error {
	kb := g.kb
	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("focus: paste keystroke: %w", err)
	}
	return nil
}
