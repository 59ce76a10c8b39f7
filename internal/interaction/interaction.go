// Package interaction records assistant interaction events and exposes the
// read side consumed by gap detection. An event is problematic when the
// assistant answered with low confidence or escalated to a human channel;
// only problematic events feed the clustering pipeline.
package interaction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Confidence levels reported by the assistant for an answer.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Event is a single recorded assistant interaction.
type Event struct {
	ID    string `json:"id"`
	Input string `json:"input"`

	// Confidence is the assistant's self-reported answer confidence.
	Confidence string `json:"confidence"`

	// EscalationTarget is set when the interaction was handed off to a
	// human channel. Non-empty means the assistant could not help.
	EscalationTarget string `json:"escalation_target,omitempty"`

	// Context carries optional structured metadata captured with the
	// event. It is opaque here; parse failures downstream must not drop
	// the event from analysis.
	Context json.RawMessage `json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Problematic reports whether the event signals a knowledge gap: a
// low-confidence answer or any escalation.
func (e Event) Problematic() bool {
	return strings.EqualFold(e.Confidence, ConfidenceLow) || e.EscalationTarget != ""
}

// EventContext is the known shape of Event.Context. Fields are optional.
type EventContext struct {
	SessionID string `json:"session_id,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

// ParseContext decodes the event's metadata. ok is false when no metadata
// was captured; a non-nil error means the payload was present but malformed.
func ParseContext(e Event) (ec EventContext, ok bool, err error) {
	if len(e.Context) == 0 {
		return EventContext{}, false, nil
	}
	if err := json.Unmarshal(e.Context, &ec); err != nil {
		return EventContext{}, false, fmt.Errorf("parse event context: %w", err)
	}
	return ec, true, nil
}

// Log is the read contract for recorded interaction events.
type Log interface {
	// List returns up to limit events, newest first.
	List(ctx context.Context, limit int) ([]Event, error)

	// Since returns up to limit events recorded strictly after cutoff,
	// newest first.
	Since(ctx context.Context, cutoff time.Time, limit int) ([]Event, error)
}
