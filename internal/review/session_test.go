package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/mail"
	"github.com/linnemanlabs/sift/internal/notify"
)

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(_ context.Context, message string, _ notify.Severity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

type hookCounter struct {
	mu         sync.Mutex
	commits    []string
	snapbacks  int
	dispatches int
	failures   int
}

func (h *hookCounter) hooks() Hooks {
	return Hooks{
		OnCommit: func(dir string) {
			h.mu.Lock()
			h.commits = append(h.commits, dir)
			h.mu.Unlock()
		},
		OnSnapback: func() {
			h.mu.Lock()
			h.snapbacks++
			h.mu.Unlock()
		},
		OnDispatch: func(_ string, _ float64, failed bool) {
			h.mu.Lock()
			h.dispatches++
			if failed {
				h.failures++
			}
			h.mu.Unlock()
		},
	}
}

func (h *hookCounter) dispatched() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dispatches
}

func newTestSession(t *testing.T) (*Session, *dispatchFixture, *mockNotifier, *hookCounter) {
	t.Helper()

	f := newDispatchFixture(t, false)
	notifier := &mockNotifier{}
	hooks := &hookCounter{}
	seq := NewSequencer(Classifier{Width: 400, Height: 500}, 0)
	session := NewSession(seq, f.dispatcher, notifier, log.Nop(), 10*time.Millisecond, hooks.hooks())
	session.SetCard(context.Background(), f.thread.ID)
	return session, f, notifier, hooks
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestSession_CommitDispatchesExactlyOnce(t *testing.T) {
	t.Parallel()

	session, f, notifier, hooks := newTestSession(t)
	ctx := context.Background()

	if session.Locked() {
		t.Fatal("locked before first sample")
	}

	if _, err := session.Motion(80, 5); err != nil {
		t.Fatalf("Motion: %v", err)
	}
	if _, err := session.Motion(170, 10); err != nil {
		t.Fatalf("Motion: %v", err)
	}

	r, committed, err := session.Release(ctx)
	if err != nil || !committed {
		t.Fatalf("Release = (%+v, %v, %v), want commit", r, committed, err)
	}
	if r.Direction != DirectionRight || r.Progress != 0.425 {
		t.Errorf("reading = %+v, want right/0.425", r)
	}
	if !session.Locked() {
		t.Error("not locked after commit")
	}

	waitFor(t, func() bool {
		d, _, _ := f.mailStore.GetDraft(ctx, f.draft.ID)
		return d.Status == mail.DraftApproved
	})
	waitFor(t, func() bool { return !session.Locked() })

	if got := hooks.dispatched(); got != 1 {
		t.Errorf("dispatches = %d, want exactly 1", got)
	}
	if notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", notifier.count())
	}
}

func TestSession_SnapBackNeverDispatches(t *testing.T) {
	t.Parallel()

	session, f, _, hooks := newTestSession(t)
	ctx := context.Background()

	if _, err := session.Motion(100, 0); err != nil { // 25%
		t.Fatalf("Motion: %v", err)
	}
	_, committed, err := session.Release(ctx)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if committed {
		t.Fatal("release at 25% committed")
	}
	if session.Locked() {
		t.Error("locked after snap-back")
	}

	// Give a would-be settle timer time to fire.
	time.Sleep(30 * time.Millisecond)
	d, _, _ := f.mailStore.GetDraft(ctx, f.draft.ID)
	if d.Status != mail.DraftPending {
		t.Errorf("draft status = %q after snap-back", d.Status)
	}
	if got := hooks.dispatched(); got != 0 {
		t.Errorf("dispatches = %d, want 0", got)
	}
	hooks.mu.Lock()
	snapbacks := hooks.snapbacks
	hooks.mu.Unlock()
	if snapbacks != 1 {
		t.Errorf("snapbacks = %d, want 1", snapbacks)
	}
}

func TestSession_CardSwitchAbandonsUnfiredDispatch(t *testing.T) {
	t.Parallel()

	session, f, _, hooks := newTestSession(t)
	ctx := context.Background()

	_, _ = session.Motion(200, 0)
	if _, committed, _ := session.Release(ctx); !committed {
		t.Fatal("release did not commit")
	}

	// Switch away before the settle timer fires.
	session.SetCard(ctx, "th-other")
	if session.Locked() {
		t.Error("locked after card switch")
	}

	time.Sleep(30 * time.Millisecond)
	d, _, _ := f.mailStore.GetDraft(ctx, f.draft.ID)
	if d.Status != mail.DraftPending {
		t.Errorf("draft status = %q, abandoned commit must not dispatch", d.Status)
	}
	if got := hooks.dispatched(); got != 0 {
		t.Errorf("dispatches = %d, want 0", got)
	}
}

func TestSession_InputDroppedWhileSettling(t *testing.T) {
	t.Parallel()

	session, _, _, _ := newTestSession(t)
	ctx := context.Background()

	_, _ = session.Motion(200, 0)
	if _, committed, _ := session.Release(ctx); !committed {
		t.Fatal("release did not commit")
	}

	if _, err := session.Motion(50, 0); !errors.Is(err, ErrLocked) {
		t.Errorf("motion while locked: err = %v, want ErrLocked", err)
	}
	if _, _, err := session.Release(ctx); !errors.Is(err, ErrLocked) {
		t.Errorf("release while locked: err = %v, want ErrLocked", err)
	}
}

func TestSession_DispatchFailureNotifiesError(t *testing.T) {
	t.Parallel()

	session, f, notifier, hooks := newTestSession(t)
	ctx := context.Background()

	// Retire the draft behind the session's back; the right swipe fails.
	if _, err := f.controller.Reject(ctx, f.draft.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	_, _ = session.Motion(200, 0)
	if _, committed, _ := session.Release(ctx); !committed {
		t.Fatal("release did not commit")
	}

	waitFor(t, func() bool { return hooks.dispatched() == 1 })
	hooks.mu.Lock()
	failures := hooks.failures
	hooks.mu.Unlock()
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
	if notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", notifier.count())
	}
	waitFor(t, func() bool { return !session.Locked() })
}

func TestSession_SecondGestureAfterSettleWorks(t *testing.T) {
	t.Parallel()

	session, f, _, _ := newTestSession(t)
	ctx := context.Background()

	_, _ = session.Motion(10, 300)
	if _, committed, _ := session.Release(ctx); !committed {
		t.Fatal("down swipe did not commit")
	}
	waitFor(t, func() bool { return !session.Locked() })

	// The card accepts a fresh gesture once the cycle finished.
	_, _ = session.Motion(200, 0)
	if _, committed, _ := session.Release(ctx); !committed {
		t.Fatal("second gesture did not commit")
	}
	waitFor(t, func() bool {
		d, _, _ := f.mailStore.GetDraft(ctx, f.draft.ID)
		return d.Status == mail.DraftApproved
	})
}
