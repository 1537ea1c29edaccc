// Package mock provides test doubles for the clipboard package interfaces.
package mock

import (
	"sync"

	"github.com/sottovoce/sotto/pkg/clipboard"
)

// Gateway is a mock implementation of clipboard.Gateway.
type Gateway struct {
	mu sync.Mutex

	// Content is returned from Snapshot.
	Content clipboard.Snapshot

	// WriteErr, if non-nil, is returned from WriteText.
	WriteErr error

	// SnapshotCalls counts calls to Snapshot.
	SnapshotCalls int

	// Written records every text passed to WriteText, in order.
	Written []string
}

var _ clipboard.Gateway = (*Gateway)(nil)

// Snapshot records the call and returns Content.
func (g *Gateway) Snapshot() clipboard.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SnapshotCalls++
	return g.Content
}

// WriteText records text and returns WriteErr.
func (g *Gateway) WriteText(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.WriteErr != nil {
		return g.WriteErr
	}
	g.Written = append(g.Written, text)
	return nil
}

// LastWritten returns the most recent WriteText payload, or "".
func (g *Gateway) LastWritten() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Written) == 0 {
		return ""
	}
	return g.Written[len(g.Written)-1]
}
