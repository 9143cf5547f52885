package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/linnemanlabs/sift/internal/mail"
)

func TestStore_PutAndGetThread(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	th := &mail.Thread{ID: "th-1", Subject: "hello", Status: mail.ThreadActive}
	if err := s.PutThread(ctx, th); err != nil {
		t.Fatalf("PutThread: %v", err)
	}

	got, ok, err := s.GetThread(ctx, "th-1")
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if !ok {
		t.Fatal("expected thread to be found")
	}
	if got.Subject != "hello" {
		t.Errorf("Subject = %q, want %q", got.Subject, "hello")
	}
}

func TestStore_GetThreadMissing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.GetThread(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing thread")
	}
}

func TestStore_ListThreadsByStatus(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.PutThread(ctx, &mail.Thread{ID: "a", Status: mail.ThreadActive})
	_ = s.PutThread(ctx, &mail.Thread{ID: "b", Status: mail.ThreadArchived})
	_ = s.PutThread(ctx, &mail.Thread{ID: "c", Status: mail.ThreadActive})

	active, err := s.ListThreads(ctx, mail.ThreadActive)
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active = %d, want 2", len(active))
	}

	all, err := s.ListThreads(ctx, "")
	if err != nil {
		t.Fatalf("ListThreads all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all = %d, want 3", len(all))
	}
}

func TestStore_CreateDraftEnforcesOnePending(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	if err := s.CreateDraft(ctx, &mail.Draft{ID: "d-1", ThreadID: "th-1", Status: mail.DraftPending}); err != nil {
		t.Fatalf("first CreateDraft: %v", err)
	}
	err := s.CreateDraft(ctx, &mail.Draft{ID: "d-2", ThreadID: "th-1", Status: mail.DraftPending})
	if !errors.Is(err, mail.ErrPendingDraftExists) {
		t.Fatalf("second CreateDraft err = %v, want ErrPendingDraftExists", err)
	}

	// A retired draft frees the slot.
	_ = s.PutDraft(ctx, &mail.Draft{ID: "d-1", ThreadID: "th-1", Status: mail.DraftRejected})
	if err := s.CreateDraft(ctx, &mail.Draft{ID: "d-3", ThreadID: "th-1", Status: mail.DraftPending}); err != nil {
		t.Fatalf("CreateDraft after retirement: %v", err)
	}
}

func TestStore_PendingDraft(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.CreateDraft(ctx, &mail.Draft{ID: "d-1", ThreadID: "th-1", Status: mail.DraftPending})
	_ = s.PutDraft(ctx, &mail.Draft{ID: "d-0", ThreadID: "th-1", Status: mail.DraftSent})

	got, ok, err := s.PendingDraft(ctx, "th-1")
	if err != nil {
		t.Fatalf("PendingDraft: %v", err)
	}
	if !ok {
		t.Fatal("expected a pending draft")
	}
	if got.ID != "d-1" {
		t.Errorf("ID = %q, want d-1", got.ID)
	}

	_, ok, _ = s.PendingDraft(ctx, "th-other")
	if ok {
		t.Fatal("expected no pending draft for other thread")
	}
}

func TestStore_DraftCopies(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.CreateDraft(ctx, &mail.Draft{ID: "d-1", ThreadID: "th-1", Body: "original", Status: mail.DraftPending})

	got, _, _ := s.GetDraft(ctx, "d-1")
	got.Body = "mutated"

	again, _, _ := s.GetDraft(ctx, "d-1")
	if again.Body != "original" {
		t.Error("store returned a shared reference, want a copy")
	}
}
