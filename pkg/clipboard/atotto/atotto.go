// Package atotto provides a text-only clipboard Gateway backed by
// github.com/atotto/clipboard. It has no cgo requirement, which makes it the
// safe default; image snapshots are not supported, so Process mode treats an
// image-only clipboard as empty under this gateway.
package atotto

import (
	"fmt"

	ac "github.com/atotto/clipboard"

	"github.com/sottovoce/sotto/pkg/clipboard"
)

// Compile-time assertion that Gateway implements clipboard.Gateway.
var _ clipboard.Gateway = (*Gateway)(nil)

// Gateway implements clipboard.Gateway for plain text.
type Gateway struct{}

// New returns a text-only clipboard gateway.
func New() *Gateway {
	return &Gateway{}
}

// Snapshot implements clipboard.Gateway. Read failures and non-text content
// both yield an empty snapshot.
func (g *Gateway) Snapshot() clipboard.Snapshot {
	text, err := ac.ReadAll()
	if err != nil || text == "" {
		return clipboard.Snapshot{Kind: clipboard.KindEmpty}
	}
	return clipboard.Snapshot{Kind: clipboard.KindText, Text: text}
}

// WriteText implements clipboard.Gateway.
func (g *Gateway) WriteText(text string) error {
	if err := ac.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: write text: %w", err)
	}
	return nil
}
