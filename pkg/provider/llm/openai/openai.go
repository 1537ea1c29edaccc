// Package openai provides a Completer backed by the OpenAI chat completions API.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/sottovoce/sotto/pkg/provider/llm"
)

// Compile-time assertion that Completer implements llm.Completer.
var _ llm.Completer = (*Completer)(nil)

// Completer implements llm.Completer using the OpenAI API.
type Completer struct {
	client      oai.Client
	model       string
	visionModel string
}

// config holds optional configuration for the completer.
type config struct {
	baseURL     string
	timeout     time.Duration
	visionModel string
}

// Option is a functional option for Completer.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// OpenAI-compatible local servers.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithVisionModel sets the model used for CompleteWithImage. Defaults to the
// completer's main model, which for current OpenAI models is already
// vision-capable.
func WithVisionModel(model string) Option {
	return func(c *config) {
		c.visionModel = model
	}
}

// New constructs a new OpenAI Completer.
func New(apiKey string, model string, opts ...Option) (*Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	visionModel := cfg.visionModel
	if visionModel == "" {
		visionModel = model
	}

	return &Completer{
		client:      oai.NewClient(reqOpts...),
		model:       model,
		visionModel: visionModel,
	}, nil
}

// Complete implements llm.Completer.
func (c *Completer) Complete(ctx context.Context, req llm.Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("openai: request has no messages")
	}

	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, oai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleAssistant:
			messages = append(messages, oai.AssistantMessage(m.Content))
		default:
			messages = append(messages, oai.UserMessage(m.Content))
		}
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	params := oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(model),
		Messages: messages,
	}
	if req.WebSearch {
		params.WebSearchOptions = oai.ChatCompletionNewParamsWebSearchOptions{}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteWithImage implements llm.Completer. The image is inlined as a
// base64 data URL; PNG and JPEG payloads are detected by magic bytes.
func (c *Completer) CompleteWithImage(ctx context.Context, system, user string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("openai: image must not be empty")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", sniffImageMIME(image), base64.StdEncoding.EncodeToString(image))

	messages := []oai.ChatCompletionMessageParamUnion{}
	if system != "" {
		messages = append(messages, oai.SystemMessage(system))
	}
	messages = append(messages, oai.UserMessage([]oai.ChatCompletionContentPartUnionParam{
		oai.TextContentPart(user),
		oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	}))

	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(c.visionModel),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai: image completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: image completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// sniffImageMIME returns the MIME type for the given image bytes. Falls back
// to image/png, which current vision endpoints accept for most raster data.
func sniffImageMIME(data []byte) string {
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	return "image/png"
}
