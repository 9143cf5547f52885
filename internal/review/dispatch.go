package review

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/kb"
	"github.com/linnemanlabs/sift/internal/mail"
)

// ErrNoArchiveChoice is returned by ResolveArchive when no left-swipe is
// awaiting disambiguation for the thread.
var ErrNoArchiveChoice = errors.New("review: no pending archive choice for thread")

// Extractor pulls people and projects out of thread content.
type Extractor interface {
	ExtractEntities(ctx context.Context, subject, body string) (*kb.Batch, error)
}

// Outcome describes what a dispatch did, for reviewer notification.
type Outcome struct {
	Direction      Direction
	Message        string
	ArchivePending bool   // left swipe awaits ResolveArchive
	EditBody       string // populated on a down swipe
}

// Dispatcher maps a committed direction to a lifecycle or knowledge-base
// operation. A left swipe does not archive by itself: it records a pending
// choice that ResolveArchive settles, because archive-only versus
// archive-and-file is the reviewer's call.
type Dispatcher struct {
	controller *mail.Controller
	resolver   *kb.Resolver
	extractor  Extractor
	store      mail.Store
	logger     log.Logger
	autoFile   bool

	mu      sync.Mutex
	pending map[string]struct{} // thread IDs with an unresolved archive choice
}

// NewDispatcher creates a dispatcher. autoFile controls whether a right
// swipe also files extracted entities before the draft becomes
// sent-eligible.
func NewDispatcher(controller *mail.Controller, resolver *kb.Resolver, extractor Extractor, store mail.Store, logger log.Logger, autoFile bool) *Dispatcher {
	if logger == nil {
		logger = log.Nop()
	}
	return &Dispatcher{
		controller: controller,
		resolver:   resolver,
		extractor:  extractor,
		store:      store,
		logger:     logger,
		autoFile:   autoFile,
		pending:    make(map[string]struct{}),
	}
}

// Dispatch executes the operation for a committed direction on a thread.
// Lifecycle transitions are not re-enterable, so a failed dispatch reports
// its error without partial mutation beyond what the failing operation
// itself applied.
func (d *Dispatcher) Dispatch(ctx context.Context, threadID string, dir Direction) (*Outcome, error) {
	t, ok, err := d.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("lookup thread %s: %w", threadID, err)
	}
	if !ok {
		return nil, fmt.Errorf("thread %s not found", threadID)
	}

	switch dir {
	case DirectionRight:
		return d.approve(ctx, t)
	case DirectionLeft:
		d.mu.Lock()
		d.pending[t.ID] = struct{}{}
		d.mu.Unlock()
		return &Outcome{
			Direction:      dir,
			Message:        "archive: choose archive-only or archive-and-file",
			ArchivePending: true,
		}, nil
	case DirectionUp:
		if err := d.fileEntities(ctx, t); err != nil {
			return nil, err
		}
		return &Outcome{Direction: dir, Message: "entities filed to knowledge base"}, nil
	case DirectionDown:
		if t.DraftID == "" {
			return nil, fmt.Errorf("thread %s has no draft to edit", t.ID)
		}
		body, err := d.controller.BeginEdit(ctx, t.DraftID)
		if err != nil {
			return nil, err
		}
		return &Outcome{Direction: dir, Message: "editing draft", EditBody: body}, nil
	default:
		return nil, fmt.Errorf("dispatch direction %q: %w", dir, mail.ErrInvalidTransition)
	}
}

// ResolveArchive settles a pending left-swipe choice: archive the thread,
// optionally filing its entities first.
func (d *Dispatcher) ResolveArchive(ctx context.Context, threadID string, fileToKB bool) error {
	d.mu.Lock()
	_, ok := d.pending[threadID]
	if ok {
		delete(d.pending, threadID)
	}
	d.mu.Unlock()
	if !ok {
		return ErrNoArchiveChoice
	}

	if fileToKB {
		t, found, err := d.store.GetThread(ctx, threadID)
		if err != nil {
			return fmt.Errorf("lookup thread %s: %w", threadID, err)
		}
		if !found {
			return fmt.Errorf("thread %s not found", threadID)
		}
		if err := d.fileEntities(ctx, t); err != nil {
			return err
		}
	}
	return d.controller.Archive(ctx, threadID)
}

// ArchivePending reports whether a left swipe on the thread awaits its
// follow-up choice.
func (d *Dispatcher) ArchivePending(threadID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[threadID]
	return ok
}

func (d *Dispatcher) approve(ctx context.Context, t *mail.Thread) (*Outcome, error) {
	if t.DraftID == "" {
		return nil, fmt.Errorf("thread %s has no draft to approve", t.ID)
	}
	if _, err := d.controller.Approve(ctx, t.DraftID); err != nil {
		return nil, err
	}

	msg := "draft approved"
	if d.autoFile {
		// Entities go in before the draft is treated as sent-eligible. A
		// failed extraction is reported but does not roll back the approval.
		if err := d.fileEntities(ctx, t); err != nil {
			d.logger.Error(ctx, err, "auto-file after approve failed", "thread_id", t.ID)
			return &Outcome{Direction: DirectionRight, Message: "draft approved; entity filing failed"}, nil
		}
		msg = "draft approved, entities filed"
	}
	return &Outcome{Direction: DirectionRight, Message: msg}, nil
}

// fileEntities extracts people and projects from the thread's content and
// upserts them. An unparsable extraction is discarded wholesale; nothing is
// partially merged.
func (d *Dispatcher) fileEntities(ctx context.Context, t *mail.Thread) error {
	body := t.Summary
	if t.DraftID != "" {
		if draft, ok, err := d.store.GetDraft(ctx, t.DraftID); err == nil && ok {
			body = draft.Body
		}
	}

	batch, err := d.extractor.ExtractEntities(ctx, t.Subject, body)
	if err != nil {
		return fmt.Errorf("extract entities for thread %s: %w", t.ID, err)
	}
	return d.resolver.SaveExtractedEntities(ctx, *batch)
}
