package knowledge

import "context"

// Role identifies the kind of actor performing a store operation.
type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

// Principal identifies who is performing a store operation. Gap writes are
// reserved for the system principal; user principals read only.
type Principal struct {
	ID   string
	Role Role
}

// SystemPrincipal returns the principal used by background detection runs.
func SystemPrincipal() Principal {
	return Principal{ID: "gapd", Role: RoleSystem}
}

// GapFilter narrows ListGaps results. Zero values mean no filtering.
type GapFilter struct {
	// Statuses restricts results to the given lifecycle states.
	Statuses []GapStatus

	// ExcludeTerminal drops addressed and dismissed gaps.
	ExcludeTerminal bool
}

// Store is the persistence contract for knowledge items and content gaps.
//
// Implementations must enforce optimistic concurrency on UpdateGap: the gap's
// Version must match the stored version or the update fails with
// ErrVersionConflict.
type Store interface {
	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]Document, error)

	// ListQAs returns all curated Q&A pairs, newest first.
	ListQAs(ctx context.Context) ([]CuratedQA, error)

	// ListGaps returns content gaps matching the filter, newest first.
	ListGaps(ctx context.Context, filter GapFilter) ([]ContentGap, error)

	// CreateGap persists a new gap. System principals only.
	CreateGap(ctx context.Context, p Principal, gap *ContentGap) (*ContentGap, error)

	// UpdateGap persists changes to an existing gap. System principals
	// only. Returns ErrVersionConflict when the presented Version is
	// stale, and ErrGapNotFound when the ID is unknown.
	UpdateGap(ctx context.Context, p Principal, gap *ContentGap) (*ContentGap, error)
}
