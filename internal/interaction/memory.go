package interaction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLog is an in-memory Log for tests and embedded deployments.
// Safe for concurrent use.
type MemoryLog struct {
	mu     sync.RWMutex
	events []Event

	now func() time.Time
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{now: time.Now}
}

// Record appends an event, assigning ID and timestamp when unset.
func (l *MemoryLog) Record(e Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now().UTC()
	}
	l.events = append(l.events, e)
	return e
}

// List returns up to limit events, newest first.
func (l *MemoryLog) List(ctx context.Context, limit int) ([]Event, error) {
	return l.Since(ctx, time.Time{}, limit)
}

// Since returns up to limit events recorded strictly after cutoff, newest
// first.
func (l *MemoryLog) Since(ctx context.Context, cutoff time.Time, limit int) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, 0, len(l.events))
	for _, e := range l.events {
		if e.CreatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
