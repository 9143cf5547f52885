package mail

import (
	"context"
	"errors"
)

// ErrPendingDraftExists is returned by CreateDraft when the thread already
// has a pending draft.
var ErrPendingDraftExists = errors.New("thread already has a pending draft")

// Store is the persistence interface for threads and drafts. Lookups return
// copies; writes are last-write-wins (single active reviewer).
type Store interface {
	GetThread(ctx context.Context, id string) (*Thread, bool, error)
	PutThread(ctx context.Context, t *Thread) error
	ListThreads(ctx context.Context, status ThreadStatus) ([]Thread, error)

	GetDraft(ctx context.Context, id string) (*Draft, bool, error)
	// CreateDraft inserts a new draft, enforcing the one-pending-draft-per-
	// thread invariant. Returns ErrPendingDraftExists on violation.
	CreateDraft(ctx context.Context, d *Draft) error
	PutDraft(ctx context.Context, d *Draft) error
	// PendingDraft returns the thread's pending draft, if any.
	PendingDraft(ctx context.Context, threadID string) (*Draft, bool, error)
}
