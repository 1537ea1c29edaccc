// Package designx provides a clipboard Gateway backed by
// golang.design/x/clipboard, which can read image content (PNG) in addition
// to text. This is the gateway to wire when Process mode should handle
// screenshots; it requires cgo on macOS and X11 headers on Linux.
package designx

import (
	"fmt"
	"sync"

	xclip "golang.design/x/clipboard"

	"github.com/sottovoce/sotto/pkg/clipboard"
)

var (
	initOnce sync.Once
	initErr  error
)

// Compile-time assertion that Gateway implements clipboard.Gateway.
var _ clipboard.Gateway = (*Gateway)(nil)

// Gateway implements clipboard.Gateway with text and image support.
type Gateway struct{}

// New returns an image-capable clipboard gateway. The underlying library
// binds to the display server once per process; an unavailable display
// surfaces here as an error.
func New() (*Gateway, error) {
	initOnce.Do(func() {
		initErr = xclip.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("clipboard: init: %w", initErr)
	}
	return &Gateway{}, nil
}

// Snapshot implements clipboard.Gateway. Text wins when the clipboard offers
// both representations.
func (g *Gateway) Snapshot() clipboard.Snapshot {
	if text := xclip.Read(xclip.FmtText); len(text) > 0 {
		return clipboard.Snapshot{Kind: clipboard.KindText, Text: string(text)}
	}
	if img := xclip.Read(xclip.FmtImage); len(img) > 0 {
		return clipboard.Snapshot{Kind: clipboard.KindImage, Image: img}
	}
	return clipboard.Snapshot{Kind: clipboard.KindEmpty}
}

// WriteText implements clipboard.Gateway.
func (g *Gateway) WriteText(text string) error {
	xclip.Write(xclip.FmtText, []byte(text))
	return nil
}
