// Package knowledge defines the knowledge-store contract consumed by gapd:
// documents, curated Q&A pairs, and content-gap records, plus the access
// principals that gate writes. The store itself lives outside gapd; this
// package carries the entity semantics (gap lifecycle, priority bands,
// bounded example lists) and an in-memory implementation used for tests and
// embedded deployments.
package knowledge

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors for knowledge store operations.
var (
	ErrGapNotFound       = errors.New("content gap not found")
	ErrEmptyTopic        = errors.New("gap topic cannot be empty")
	ErrVersionConflict   = errors.New("version conflict on update")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid gap status transition")
)

// Entity carries the fields common to all persisted records.
type Entity struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version is an optimistic concurrency token. Updates must present the
	// version they read; a mismatch fails with ErrVersionConflict.
	Version int64 `json:"version"`
}

// Document is a knowledge-base article.
type Document struct {
	Entity
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
	Status  string   `json:"status"`
	OwnerID string   `json:"owner_id,omitempty"`
}

// CuratedQA is a curated question/answer pair.
type CuratedQA struct {
	Entity
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags,omitempty"`
	Status   string   `json:"status"`
	OwnerID  string   `json:"owner_id,omitempty"`
}

// Item statuses shared by documents and curated Q&A.
const (
	StatusPublished = "published"
	StatusApproved  = "approved"
	StatusDraft     = "draft"
)

// GapStatus is the lifecycle state of a content gap.
type GapStatus string

const (
	// GapIdentified is the initial state of a detected gap.
	GapIdentified GapStatus = "identified"

	// GapInProgress means someone is working on content for this gap.
	GapInProgress GapStatus = "in_progress"

	// GapAddressed means content was created; terminal.
	GapAddressed GapStatus = "addressed"

	// GapDismissed means the gap was rejected; terminal.
	GapDismissed GapStatus = "dismissed"
)

// Terminal reports whether the status ends the gap lifecycle.
func (s GapStatus) Terminal() bool {
	return s == GapAddressed || s == GapDismissed
}

// gapTransitions lists the allowed status moves.
var gapTransitions = map[GapStatus][]GapStatus{
	GapIdentified: {GapInProgress, GapAddressed, GapDismissed},
	GapInProgress: {GapAddressed, GapDismissed},
}

// CanTransition reports whether a move from s to next is allowed.
func (s GapStatus) CanTransition(next GapStatus) bool {
	for _, allowed := range gapTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// GapPriority is the low/medium/high band derived from frequency.
type GapPriority string

const (
	PriorityLow    GapPriority = "low"
	PriorityMedium GapPriority = "medium"
	PriorityHigh   GapPriority = "high"
)

// PriorityForFrequency derives the priority band from a gap's frequency.
// The band is the only source of gap priority; it is recomputed on every
// merge and never taken from upstream text.
func PriorityForFrequency(frequency int) GapPriority {
	switch {
	case frequency >= 5:
		return PriorityHigh
	case frequency >= 3:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ContentType suggests what kind of content would close a gap.
type ContentType string

const (
	ContentDocument ContentType = "document"
	ContentQA       ContentType = "qa"
	ContentBoth     ContentType = "both"
)

// NormalizeContentType maps an untrusted upstream string onto a known
// content type, defaulting to ContentDocument.
func NormalizeContentType(s string) ContentType {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case ContentQA:
		return ContentQA
	case ContentBoth:
		return ContentBoth
	default:
		return ContentDocument
	}
}

// MaxQueryExamples caps the examples retained on a gap across merges.
const MaxQueryExamples = 10

// ContentGap is a persisted record of a recurring, under-served topic.
//
// Topic is the dedup key: no two active gaps may have topics where one
// case-insensitively contains the other. Frequency only grows while the gap
// is active, and priority is always PriorityForFrequency(Frequency).
type ContentGap struct {
	Entity
	Topic                string      `json:"topic"`
	Description          string      `json:"description,omitempty"`
	SuggestedTags        []string    `json:"suggested_tags,omitempty"`
	Frequency            int         `json:"frequency"`
	QueryExamples        []string    `json:"query_examples,omitempty"`
	Priority             GapPriority `json:"priority"`
	Status               GapStatus   `json:"status"`
	SuggestedContentType ContentType `json:"suggested_content_type"`

	// ConfidenceScores records provenance of the interaction signals that
	// produced this gap ("low" for low-confidence answers).
	ConfidenceScores []string `json:"confidence_scores,omitempty"`
}

// NewContentGap creates a gap in the identified state with derived priority.
// Frequency defaults to 1 and examples are capped at 5 on creation.
func NewContentGap(topic, description string, frequency int, examples []string) (*ContentGap, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, ErrEmptyTopic
	}
	if frequency < 1 {
		frequency = 1
	}
	if len(examples) > 5 {
		examples = examples[:5]
	}

	return &ContentGap{
		Topic:                topic,
		Description:          description,
		Frequency:            frequency,
		QueryExamples:        append([]string(nil), examples...),
		Priority:             PriorityForFrequency(frequency),
		Status:               GapIdentified,
		SuggestedContentType: ContentDocument,
		ConfidenceScores:     []string{"low"},
	}, nil
}

// Validate checks the gap's invariants.
func (g *ContentGap) Validate() error {
	if strings.TrimSpace(g.Topic) == "" {
		return ErrEmptyTopic
	}
	if g.Frequency < 1 {
		return fmt.Errorf("frequency must be >= 1, got %d", g.Frequency)
	}
	if len(g.QueryExamples) > MaxQueryExamples {
		return fmt.Errorf("query examples exceed cap: %d > %d", len(g.QueryExamples), MaxQueryExamples)
	}
	if g.Priority != PriorityForFrequency(g.Frequency) {
		return fmt.Errorf("priority %q does not match frequency %d", g.Priority, g.Frequency)
	}
	switch g.Status {
	case GapIdentified, GapInProgress, GapAddressed, GapDismissed:
	default:
		return fmt.Errorf("unknown gap status %q", g.Status)
	}
	return nil
}

// AppendExamples appends new examples and truncates to the most recent
// MaxQueryExamples. Duplicates across merges are tolerated.
func (g *ContentGap) AppendExamples(examples []string) {
	g.QueryExamples = append(g.QueryExamples, examples...)
	if n := len(g.QueryExamples); n > MaxQueryExamples {
		g.QueryExamples = g.QueryExamples[n-MaxQueryExamples:]
	}
}

// Transition moves the gap to a new status, enforcing terminal states.
func (g *ContentGap) Transition(next GapStatus) error {
	if !g.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.Status, next)
	}
	g.Status = next
	return nil
}

// ItemKind distinguishes the two knowledge item sources.
type ItemKind string

const (
	KindDocument ItemKind = "document"
	KindQA       ItemKind = "qa"
)

// KnowledgeItem is the flattened union of Document and CuratedQA used by the
// ranked search and recommendation flows.
type KnowledgeItem struct {
	ID        string    `json:"id"`
	Kind      ItemKind  `json:"kind"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	Status    string    `json:"status"`
	OwnerID   string    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item flattens a document into a KnowledgeItem.
func (d Document) Item() KnowledgeItem {
	return KnowledgeItem{
		ID:        d.ID,
		Kind:      KindDocument,
		Title:     d.Title,
		Content:   d.Content,
		Tags:      d.Tags,
		Status:    d.Status,
		OwnerID:   d.OwnerID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// Item flattens a curated Q&A pair into a KnowledgeItem.
func (q CuratedQA) Item() KnowledgeItem {
	return KnowledgeItem{
		ID:        q.ID,
		Kind:      KindQA,
		Title:     q.Question,
		Content:   q.Answer,
		Tags:      q.Tags,
		Status:    q.Status,
		OwnerID:   q.OwnerID,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}
