package gapdetect

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/gapd/internal/knowledge"
	"github.com/fyrsmithlabs/gapd/internal/reasoning"
)

// promptExamples bounds the member inputs quoted in a synthesis prompt.
const promptExamples = 3

// candidateExamples bounds the example queries carried to the merge engine.
const candidateExamples = 5

// Candidate is a synthesized gap description plus the originating cluster's
// evidence, ready for the merge engine.
type Candidate struct {
	Topic         string
	Description   string
	SuggestedTags []string
	ContentType   knowledge.ContentType
	Frequency     int
	Examples      []string
}

const synthesizeSystem = `You analyze recurring unanswered questions from a knowledge-base assistant and describe the missing content.`

const synthesizeHint = `{
  "topic": "short topic phrase",
  "content_type": "document|qa|both",
  "description": "what content is missing and why users need it",
  "suggested_tags": ["tag"]
}`

// gapResponse is the expected reasoning output. Every field is optional;
// the service is not guaranteed to conform to the hint.
type gapResponse struct {
	Topic         string   `json:"topic"`
	ContentType   string   `json:"content_type"`
	Description   string   `json:"description"`
	SuggestedTags []string `json:"suggested_tags"`
}

// Synthesizer turns clusters into gap candidates via the reasoning service.
type Synthesizer struct {
	client reasoning.Client
}

// NewSynthesizer creates a synthesizer backed by the given client.
func NewSynthesizer(client reasoning.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize sends one bounded prompt for the cluster and returns a defended
// candidate. A failure aborts only this cluster, never the whole run.
func (s *Synthesizer) Synthesize(ctx context.Context, c Cluster) (Candidate, error) {
	resp, err := s.client.Invoke(ctx, reasoning.Request{
		System:       synthesizeSystem,
		Prompt:       buildPrompt(c),
		ResponseHint: synthesizeHint,
	})
	if err != nil {
		return Candidate{}, fmt.Errorf("synthesize cluster %q: %w", c.Signature, err)
	}

	var parsed gapResponse
	if err := reasoning.DecodeObject(resp.Output, &parsed); err != nil {
		return Candidate{}, fmt.Errorf("synthesize cluster %q: %w", c.Signature, err)
	}

	topic := strings.TrimSpace(parsed.Topic)
	if topic == "" {
		// Fall back to the signature so the evidence is not lost.
		topic = c.Signature
	}
	tags := parsed.SuggestedTags
	if tags == nil {
		tags = []string{}
	}

	return Candidate{
		Topic:         topic,
		Description:   strings.TrimSpace(parsed.Description),
		SuggestedTags: tags,
		ContentType:   knowledge.NormalizeContentType(parsed.ContentType),
		Frequency:     c.Frequency(),
		Examples:      c.Examples(candidateExamples),
	}, nil
}

func buildPrompt(c Cluster) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A group of %d similar user questions could not be answered well.\n", c.Frequency())
	fmt.Fprintf(&b, "Escalated to a human: %d. Answered with low confidence: %d.\n\n", c.EscalationCount(), c.LowConfidenceCount())
	b.WriteString("Example questions:\n")
	for _, ex := range c.Examples(promptExamples) {
		fmt.Fprintf(&b, "- %s\n", ex)
	}
	b.WriteString("\nDescribe the knowledge-base content that is missing.")
	return b.String()
}
