// Package reasoning provides the client for the external reasoning service
// that powers gap synthesis and ranked retrieval. The service speaks an
// OpenAI-style chat-completions API and returns JSON text whose shape is
// never trusted: callers apply defensive defaults to everything it emits.
package reasoning

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the client has no reachable backend.
var ErrUnavailable = errors.New("reasoning service unavailable")

// Request is a single reasoning invocation.
type Request struct {
	// System frames the task for the model.
	System string

	// Prompt is the user-facing content to reason over.
	Prompt string

	// ResponseHint describes the JSON shape the caller expects. Appended
	// to the system framing; the model may still ignore it.
	ResponseHint string

	// MaxTokens overrides the configured completion budget when > 0.
	MaxTokens int
}

// Response is the raw text output of a reasoning invocation.
type Response struct {
	Output string
}

// Client invokes the reasoning service.
//
// Invoke is synchronous and respects ctx cancellation. Errors are upstream
// failures; callers decide whether to degrade or abort.
type Client interface {
	Invoke(ctx context.Context, req Request) (Response, error)

	// Available reports whether the client is configured with a backend.
	Available() bool
}
