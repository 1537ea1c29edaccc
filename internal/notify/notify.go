// Package notify raises best-effort desktop notifications for session errors.
//
// Notifications are a convenience surface only: failures to display one are
// logged and never propagated, and the session engine does not depend on this
// package — cmd/sotto wires it in as an EventSink decorator.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// Notifier sends desktop notifications.
type Notifier struct {
	// AppName is the notification title prefix.
	AppName string
}

// New returns a Notifier titled with appName.
func New(appName string) *Notifier {
	if appName == "" {
		appName = "sotto"
	}
	return &Notifier{AppName: appName}
}

// Error raises an alert-level notification.
func (n *Notifier) Error(message string) {
	if err := beeep.Alert(n.AppName, message, ""); err != nil {
		slog.Debug("notify: alert failed", "err", err)
	}
}

// Info raises a regular notification.
func (n *Notifier) Info(message string) {
	if err := beeep.Notify(n.AppName, message, ""); err != nil {
		slog.Debug("notify: notification failed", "err", err)
	}
}
