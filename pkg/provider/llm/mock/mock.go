// Package mock provides test doubles for the llm package interfaces.
//
// Completer records every call and returns scripted results, so tests can
// verify exactly which prompts and histories the pipeline produced:
//
//	c := &mock.Completer{Response: "4"}
//	got, _ := c.Complete(ctx, req)
//	if c.CompleteCalls[0].Req.System == "" { ... }
package mock

import (
	"context"
	"sync"

	"github.com/sottovoce/sotto/pkg/provider/llm"
)

// CompleteCall records a single invocation of Completer.Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the request passed to Complete.
	Req llm.Request
}

// ImageCall records a single invocation of Completer.CompleteWithImage.
type ImageCall struct {
	Ctx    context.Context
	System string
	User   string
	Image  []byte
}

// Completer is a mock implementation of llm.Completer.
type Completer struct {
	mu sync.Mutex

	// Response is returned from Complete when Responses is empty.
	Response string

	// Responses, when non-empty, is consumed front-to-back across successive
	// Complete calls.
	Responses []string

	// Err, if non-nil, is returned from Complete.
	Err error

	// ImageResponse is returned from CompleteWithImage.
	ImageResponse string

	// ImageErr, if non-nil, is returned from CompleteWithImage.
	ImageErr error

	// CompleteCalls records every call to Complete.
	CompleteCalls []CompleteCall

	// ImageCalls records every call to CompleteWithImage.
	ImageCalls []ImageCall
}

var _ llm.Completer = (*Completer)(nil)

// Complete records the call and returns the next scripted response.
func (c *Completer) Complete(ctx context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CompleteCalls = append(c.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Responses) > 0 {
		resp := c.Responses[0]
		c.Responses = c.Responses[1:]
		return resp, nil
	}
	return c.Response, nil
}

// CompleteWithImage records the call and returns ImageResponse, ImageErr.
func (c *Completer) CompleteWithImage(ctx context.Context, system, user string, image []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ImageCalls = append(c.ImageCalls, ImageCall{Ctx: ctx, System: system, User: user, Image: image})
	if c.ImageErr != nil {
		return "", c.ImageErr
	}
	return c.ImageResponse, nil
}
