// Package transport defines the provider-neutral request/response types and
// the handler chain shared by the LLM client and its provider adapters.
// Keeping these types in their own package lets adapters and middleware
// depend on them without importing the client.
package transport

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// ContentPart is one element of a multimodal request: either text or an
// encoded image. Exactly one of Text and Data is populated.
type ContentPart struct {
	Text string
	Data []byte
	MIME string
}

// IsImage reports whether the part carries image bytes.
func (p ContentPart) IsImage() bool { return len(p.Data) > 0 }

// TextPart builds a text content part.
func TextPart(text string) ContentPart { return ContentPart{Text: text} }

// ImagePart builds an image content part.
func ImagePart(data []byte, mime string) ContentPart { return ContentPart{Data: data, MIME: mime} }

// Request is a normalized generation request. One Request maps to exactly one
// provider call: retries, if any, belong to the caller.
type Request struct {
	// Provider routes the request; empty selects the client default.
	Provider string

	// Model is the provider-side model identifier.
	Model string

	// Temperature defaults to 0 for deterministic output.
	Temperature float64

	// MaxTokens bounds the response. Tally forms can carry on the order of
	// a hundred entries, so extraction callers size this generously.
	MaxTokens int

	// SystemPrompt is the provider's system instruction, optional.
	SystemPrompt string

	// Parts is the ordered multimodal content: page images and text context.
	Parts []ContentPart

	// ResponseSchema, when set, constrains the response to a fixed JSON
	// schema. Adapters translate it to the provider's structured-output
	// mechanism.
	ResponseSchema *jsonschema.Schema

	// Timeout bounds the whole call, covering every page in the request.
	// Zero means the client default applies.
	Timeout time.Duration

	// TraceID correlates logs across the middleware chain.
	TraceID string
}

// Usage is the provider-reported token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a normalized generation response.
type Response struct {
	Content      string
	FinishReason string
	Provider     string
	Model        string
	Usage        Usage
}

// Handler executes one normalized request.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware wraps a handler with cross-cutting behavior.
type Middleware func(Handler) Handler

// Chain applies middleware around base, first middleware outermost.
func Chain(base Handler, middleware ...Middleware) Handler {
	h := base
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}
