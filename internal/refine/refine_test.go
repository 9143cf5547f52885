package refine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/mail"
	"github.com/linnemanlabs/sift/internal/mail/memstore"
)

// mockProducer blocks until released so tests can control session timing.
type mockProducer struct {
	mu      sync.Mutex
	text    string
	err     error
	block   chan struct{} // nil = respond immediately
	calls   int
	lastIns string
}

func (m *mockProducer) RefineDraft(ctx context.Context, _, instruction string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastIns = instruction
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func setup(t *testing.T, p Producer, chunks int) (*Engine, *memstore.Store, *mail.Draft) {
	t.Helper()

	store := memstore.New()
	ctx := context.Background()
	_ = store.PutThread(ctx, &mail.Thread{ID: "th-1", Status: mail.ThreadActive, CreatedAt: time.Now()})

	controller := mail.NewController(store, log.Nop())
	d, err := controller.NewDraft(ctx, "th-1", "original body")
	if err != nil {
		t.Fatalf("NewDraft: %v", err)
	}

	engine := NewEngine(p, store, controller, log.Nop(), chunks, 0)
	return engine, store, d
}

func collect(t *testing.T, s *Session) []string {
	t.Helper()
	var got []string
	for prefix := range s.Updates() {
		got = append(got, prefix)
	}
	return got
}

func TestSession_PrefixesGrowMonotonically(t *testing.T) {
	t.Parallel()

	engine, _, d := setup(t, &mockProducer{text: "a much improved draft body"}, 4)

	s, err := engine.Start(context.Background(), d.ID, "improve it")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	got := collect(t, s)
	if len(got) != 4 {
		t.Fatalf("chunks = %d, want 4", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !strings.HasPrefix(got[i], got[i-1]) || len(got[i]) <= len(got[i-1]) {
			t.Errorf("element %d is not a strict extension: %q -> %q", i, got[i-1], got[i])
		}
	}
	if got[len(got)-1] != "a much improved draft body" {
		t.Errorf("final element = %q, want complete text", got[len(got)-1])
	}
}

func TestSession_AcceptReplacesBodyWithFinalElement(t *testing.T) {
	t.Parallel()

	engine, store, d := setup(t, &mockProducer{text: "improved"}, 3)
	ctx := context.Background()

	s, err := engine.Start(ctx, d.ID, "improve")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := collect(t, s)

	updated, err := engine.Accept(ctx, s)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if updated.Body != got[len(got)-1] {
		t.Errorf("body = %q, want final element %q", updated.Body, got[len(got)-1])
	}

	stored, _, _ := store.GetDraft(ctx, d.ID)
	if stored.Body != "improved" {
		t.Errorf("stored body = %q, want %q", stored.Body, "improved")
	}
	if stored.Status != mail.DraftPending {
		t.Errorf("status = %q, want pending (accept does not change status)", stored.Status)
	}
}

func TestSession_CancelNeverMutatesDraft(t *testing.T) {
	t.Parallel()

	engine, store, d := setup(t, &mockProducer{text: "improved text in several chunks"}, 6)
	ctx := context.Background()

	s, err := engine.Start(ctx, d.ID, "improve")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Consume three chunks, then walk away.
	for range 3 {
		if _, ok := <-s.Updates(); !ok {
			t.Fatal("stream closed early")
		}
	}
	s.Cancel()
	for range s.Updates() {
		// drain whatever was in flight
	}

	stored, _, _ := store.GetDraft(ctx, d.ID)
	if stored.Body != "original body" {
		t.Errorf("body = %q, want original (cancel must not mutate)", stored.Body)
	}

	if _, err := engine.Accept(ctx, s); !errors.Is(err, ErrCancelled) {
		t.Fatalf("accept after cancel: err = %v, want ErrCancelled", err)
	}
}

func TestSession_AcceptBeforeCompletionRejected(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	p := &mockProducer{text: "slow result", block: block}
	engine, store, d := setup(t, p, 2)
	ctx := context.Background()

	s, err := engine.Start(ctx, d.ID, "improve")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := engine.Accept(ctx, s); !errors.Is(err, ErrNotComplete) {
		t.Fatalf("accept mid-stream: err = %v, want ErrNotComplete", err)
	}

	stored, _, _ := store.GetDraft(ctx, d.ID)
	if stored.Body != "original body" {
		t.Errorf("body = %q, partial result must never be applied", stored.Body)
	}

	close(block)
	collect(t, s)
	if _, err := engine.Accept(ctx, s); err != nil {
		t.Fatalf("accept after completion: %v", err)
	}
}

func TestEngine_StartSupersedesPriorSession(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	p := &mockProducer{text: "result", block: block}
	engine, _, d := setup(t, p, 2)
	ctx := context.Background()

	first, err := engine.Start(ctx, d.ID, "first instruction")
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	second, err := engine.Start(ctx, d.ID, "second instruction")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}

	close(block)

	// The superseded session's stream ends without completing.
	collect(t, first)
	if _, err := engine.Accept(ctx, first); !errors.Is(err, ErrCancelled) {
		t.Fatalf("accept superseded session: err = %v, want ErrCancelled", err)
	}

	// The new session finishes normally.
	got := collect(t, second)
	if len(got) == 0 || got[len(got)-1] != "result" {
		t.Fatalf("second session chunks = %v, want final %q", got, "result")
	}
	if _, err := engine.Accept(ctx, second); err != nil {
		t.Fatalf("accept second session: %v", err)
	}
}

func TestEngine_ProducerErrorEndsStream(t *testing.T) {
	t.Parallel()

	p := &mockProducer{err: errors.New("provider exploded")}
	engine, store, d := setup(t, p, 3)
	ctx := context.Background()

	s, err := engine.Start(ctx, d.ID, "improve")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	got := collect(t, s)
	if len(got) != 0 {
		t.Errorf("chunks = %v, want none on producer error", got)
	}
	if s.Err() == nil {
		t.Error("expected session error")
	}
	if _, err := engine.Accept(ctx, s); !errors.Is(err, ErrNotComplete) {
		t.Fatalf("accept failed session: err = %v, want ErrNotComplete", err)
	}

	stored, _, _ := store.GetDraft(ctx, d.ID)
	if stored.Body != "original body" {
		t.Errorf("body = %q, want original", stored.Body)
	}
}

func TestEngine_RefineRequiresPendingDraft(t *testing.T) {
	t.Parallel()

	engine, store, d := setup(t, &mockProducer{text: "x"}, 2)
	ctx := context.Background()

	// Retire the draft, then try to refine it.
	d.Status = mail.DraftRejected
	_ = store.PutDraft(ctx, d)

	if _, err := engine.Start(ctx, d.ID, "improve"); !errors.Is(err, mail.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestEngine_AcceptTwiceRejected(t *testing.T) {
	t.Parallel()

	engine, _, d := setup(t, &mockProducer{text: "improved"}, 2)
	ctx := context.Background()

	s, _ := engine.Start(ctx, d.ID, "improve")
	collect(t, s)

	if _, err := engine.Accept(ctx, s); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := engine.Accept(ctx, s); !errors.Is(err, mail.ErrInvalidTransition) {
		t.Fatalf("second accept: err = %v, want ErrInvalidTransition", err)
	}
}
