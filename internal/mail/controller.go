package mail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// ErrInvalidTransition is returned when a lifecycle operation is attempted
// from a state that does not permit it. The draft is left unchanged.
var ErrInvalidTransition = errors.New("invalid draft transition")

// ErrEmptyBody is returned when approving a draft with no body.
var ErrEmptyBody = errors.New("draft body is empty")

// Controller owns draft status transitions and the edit side-state. A draft
// moves pending→approved→sent or pending→rejected; both terminal states are
// absorbing, and repeated approve/reject calls on a non-pending draft are
// reported as ErrInvalidTransition rather than silently ignored.
type Controller struct {
	store  Store
	logger log.Logger

	mu    sync.Mutex
	edits map[string]string // draft ID -> edit buffer
}

// NewController creates a lifecycle controller over the given store.
func NewController(store Store, logger log.Logger) *Controller {
	if logger == nil {
		logger = log.Nop()
	}
	return &Controller{
		store:  store,
		logger: logger,
		edits:  make(map[string]string),
	}
}

// NewDraft creates a pending draft for a thread and records it as the
// thread's current draft. Fails if the thread already has a pending one.
func (c *Controller) NewDraft(ctx context.Context, threadID, body string) (*Draft, error) {
	thread, ok, err := c.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("lookup thread %s: %w", threadID, err)
	}
	if !ok {
		return nil, fmt.Errorf("thread %s not found", threadID)
	}

	d := &Draft{
		ID:        ulid.Make().String(),
		ThreadID:  threadID,
		Body:      body,
		Status:    DraftPending,
		CreatedAt: time.Now(),
	}
	if err := c.store.CreateDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}

	thread.DraftID = d.ID
	if err := c.store.PutThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("link draft to thread: %w", err)
	}

	c.logger.Info(ctx, "draft created", "draft_id", d.ID, "thread_id", threadID)
	return d, nil
}

// Approve moves a pending draft to approved. Requires a non-empty body.
func (c *Controller) Approve(ctx context.Context, draftID string) (*Draft, error) {
	return c.transition(ctx, draftID, DraftApproved, func(d *Draft) error {
		if d.Status != DraftPending {
			return fmt.Errorf("approve draft %s in status %q: %w", d.ID, d.Status, ErrInvalidTransition)
		}
		if d.Body == "" {
			return fmt.Errorf("approve draft %s: %w", d.ID, ErrEmptyBody)
		}
		return nil
	})
}

// Reject moves a pending draft to rejected (terminal).
func (c *Controller) Reject(ctx context.Context, draftID string) (*Draft, error) {
	d, err := c.transition(ctx, draftID, DraftRejected, func(d *Draft) error {
		if d.Status != DraftPending {
			return fmt.Errorf("reject draft %s in status %q: %w", d.ID, d.Status, ErrInvalidTransition)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.discardEdit(draftID)
	return d, nil
}

// MarkSent moves an approved draft to sent (terminal) and stamps SentAt.
func (c *Controller) MarkSent(ctx context.Context, draftID string) (*Draft, error) {
	d, err := c.transition(ctx, draftID, DraftSent, func(d *Draft) error {
		if d.Status != DraftApproved {
			return fmt.Errorf("send draft %s in status %q: %w", d.ID, d.Status, ErrInvalidTransition)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.discardEdit(draftID)
	return d, nil
}

// ReplaceBody swaps the body of a pending draft in place, leaving status
// untouched. Used when a refinement session is accepted.
func (c *Controller) ReplaceBody(ctx context.Context, draftID, body string) (*Draft, error) {
	d, ok, err := c.store.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("lookup draft %s: %w", draftID, err)
	}
	if !ok {
		return nil, fmt.Errorf("draft %s not found", draftID)
	}
	if d.Status != DraftPending {
		return nil, fmt.Errorf("replace body of draft %s in status %q: %w", d.ID, d.Status, ErrInvalidTransition)
	}

	d.Body = body
	if err := c.store.PutDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("update draft %s: %w", draftID, err)
	}
	return d, nil
}

// BeginEdit opens an edit buffer seeded with the draft's current body.
// Editing is only permitted while the draft is pending.
func (c *Controller) BeginEdit(ctx context.Context, draftID string) (string, error) {
	d, ok, err := c.store.GetDraft(ctx, draftID)
	if err != nil {
		return "", fmt.Errorf("lookup draft %s: %w", draftID, err)
	}
	if !ok {
		return "", fmt.Errorf("draft %s not found", draftID)
	}
	if d.Status != DraftPending {
		return "", fmt.Errorf("edit draft %s in status %q: %w", d.ID, d.Status, ErrInvalidTransition)
	}

	c.mu.Lock()
	c.edits[draftID] = d.Body
	c.mu.Unlock()
	return d.Body, nil
}

// UpdateEdit replaces the contents of an open edit buffer without touching
// the stored draft.
func (c *Controller) UpdateEdit(draftID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.edits[draftID]; !ok {
		return fmt.Errorf("no edit in progress for draft %s: %w", draftID, ErrInvalidTransition)
	}
	c.edits[draftID] = text
	return nil
}

// SaveEdit writes the edit buffer into the draft body, status unchanged,
// and closes the buffer.
func (c *Controller) SaveEdit(ctx context.Context, draftID string) (*Draft, error) {
	c.mu.Lock()
	text, ok := c.edits[draftID]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no edit in progress for draft %s: %w", draftID, ErrInvalidTransition)
	}

	d, err := c.ReplaceBody(ctx, draftID, text)
	if err != nil {
		return nil, err
	}
	c.discardEdit(draftID)
	return d, nil
}

// CancelEdit discards the edit buffer, leaving the draft untouched.
func (c *Controller) CancelEdit(draftID string) {
	c.discardEdit(draftID)
}

// Archive moves a thread out of the active queue.
func (c *Controller) Archive(ctx context.Context, threadID string) error {
	return c.setThreadStatus(ctx, threadID, ThreadArchived)
}

// Snooze parks a thread for later.
func (c *Controller) Snooze(ctx context.Context, threadID string) error {
	return c.setThreadStatus(ctx, threadID, ThreadSnoozed)
}

// SetImportance tags a thread with an importance label.
func (c *Controller) SetImportance(ctx context.Context, threadID, importance string) error {
	t, ok, err := c.store.GetThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("lookup thread %s: %w", threadID, err)
	}
	if !ok {
		return fmt.Errorf("thread %s not found", threadID)
	}
	t.Importance = importance
	if err := c.store.PutThread(ctx, t); err != nil {
		return fmt.Errorf("update thread %s: %w", threadID, err)
	}
	return nil
}

func (c *Controller) setThreadStatus(ctx context.Context, threadID string, status ThreadStatus) error {
	t, ok, err := c.store.GetThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("lookup thread %s: %w", threadID, err)
	}
	if !ok {
		return fmt.Errorf("thread %s not found", threadID)
	}
	t.Status = status
	if err := c.store.PutThread(ctx, t); err != nil {
		return fmt.Errorf("update thread %s: %w", threadID, err)
	}
	c.logger.Info(ctx, "thread status changed", "thread_id", threadID, "status", status)
	return nil
}

// transition validates and applies one status change. The check runs against
// the freshly loaded draft; on failure nothing is written.
func (c *Controller) transition(ctx context.Context, draftID string, to DraftStatus, check func(*Draft) error) (*Draft, error) {
	d, ok, err := c.store.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("lookup draft %s: %w", draftID, err)
	}
	if !ok {
		return nil, fmt.Errorf("draft %s not found", draftID)
	}
	if err := check(d); err != nil {
		return nil, err
	}

	d.Status = to
	if to == DraftSent {
		d.SentAt = time.Now()
	}
	if err := c.store.PutDraft(ctx, d); err != nil {
		return nil, fmt.Errorf("update draft %s: %w", draftID, err)
	}

	c.logger.Info(ctx, "draft transition", "draft_id", draftID, "status", to)
	return d, nil
}

func (c *Controller) discardEdit(draftID string) {
	c.mu.Lock()
	delete(c.edits, draftID)
	c.mu.Unlock()
}
