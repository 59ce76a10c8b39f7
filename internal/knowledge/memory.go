package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and embedded deployments.
// Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
	qas  map[string]CuratedQA
	gaps map[string]ContentGap

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]Document),
		qas:  make(map[string]CuratedQA),
		gaps: make(map[string]ContentGap),
		now:  time.Now,
	}
}

// SeedDocument inserts a document, assigning ID and timestamps.
func (s *MemoryStore) SeedDocument(doc Document) Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.ID = uuid.NewString()
	doc.CreatedAt = s.now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	doc.Version = 1
	if doc.Status == "" {
		doc.Status = StatusPublished
	}
	s.docs[doc.ID] = doc
	return doc
}

// SeedQA inserts a curated Q&A pair, assigning ID and timestamps.
func (s *MemoryStore) SeedQA(qa CuratedQA) CuratedQA {
	s.mu.Lock()
	defer s.mu.Unlock()

	qa.ID = uuid.NewString()
	qa.CreatedAt = s.now().UTC()
	qa.UpdatedAt = qa.CreatedAt
	qa.Version = 1
	if qa.Status == "" {
		qa.Status = StatusApproved
	}
	s.qas[qa.ID] = qa
	return qa
}

// ListDocuments returns all documents, newest first.
func (s *MemoryStore) ListDocuments(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListQAs returns all curated Q&A pairs, newest first.
func (s *MemoryStore) ListQAs(ctx context.Context) ([]CuratedQA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CuratedQA, 0, len(s.qas))
	for _, q := range s.qas {
		out = append(out, q)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListGaps returns content gaps matching the filter, newest first.
func (s *MemoryStore) ListGaps(ctx context.Context, filter GapFilter) ([]ContentGap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ContentGap, 0, len(s.gaps))
	for _, g := range s.gaps {
		if filter.ExcludeTerminal && g.Status.Terminal() {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, g.Status) {
			continue
		}
		out = append(out, cloneGap(g))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CreateGap persists a new gap. System principals only.
func (s *MemoryStore) CreateGap(ctx context.Context, p Principal, gap *ContentGap) (*ContentGap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Role != RoleSystem {
		return nil, fmt.Errorf("%w: gap writes require the system role", ErrPermissionDenied)
	}
	if err := gap.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneGap(*gap)
	stored.ID = uuid.NewString()
	stored.CreatedAt = s.now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	stored.Version = 1
	s.gaps[stored.ID] = stored

	result := cloneGap(stored)
	return &result, nil
}

// UpdateGap persists changes to an existing gap under optimistic concurrency.
func (s *MemoryStore) UpdateGap(ctx context.Context, p Principal, gap *ContentGap) (*ContentGap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Role != RoleSystem {
		return nil, fmt.Errorf("%w: gap writes require the system role", ErrPermissionDenied)
	}
	if err := gap.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.gaps[gap.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGapNotFound, gap.ID)
	}
	if current.Version != gap.Version {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrVersionConflict, gap.Version, current.Version)
	}

	stored := cloneGap(*gap)
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = s.now().UTC()
	stored.Version = current.Version + 1
	s.gaps[stored.ID] = stored

	result := cloneGap(stored)
	return &result, nil
}

// GetGap returns a gap by ID. Test helper.
func (s *MemoryStore) GetGap(id string) (ContentGap, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gaps[id]
	if !ok {
		return ContentGap{}, false
	}
	return cloneGap(g), true
}

func cloneGap(g ContentGap) ContentGap {
	out := g
	out.SuggestedTags = append([]string(nil), g.SuggestedTags...)
	out.QueryExamples = append([]string(nil), g.QueryExamples...)
	out.ConfidenceScores = append([]string(nil), g.ConfidenceScores...)
	return out
}

func containsStatus(statuses []GapStatus, s GapStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}
