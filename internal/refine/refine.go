// Package refine runs cancellable draft-improvement sessions. One provider
// call produces the complete improved text; the session then simulates
// incremental delivery by emitting progressively longer prefixes of it. The
// contract callers rely on is "monotonically growing text, terminated by
// completion" - not real token timing - and a session never touches the
// draft unless its final element is explicitly accepted.
package refine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/mail"
)

// ErrNotComplete is returned by Accept before the final element has been
// produced. A partial result is never applied as if it were final.
var ErrNotComplete = errors.New("refine: session has not produced its final text")

// ErrCancelled is returned by Accept on a cancelled or superseded session.
var ErrCancelled = errors.New("refine: session cancelled")

// Producer yields the complete improved draft text for an instruction.
type Producer interface {
	RefineDraft(ctx context.Context, body, instruction string) (string, error)
}

// Engine starts refinement sessions and enforces at most one active session
// per draft: starting a new one supersedes (cancels) the prior session, so
// two sessions' outputs can never interleave.
type Engine struct {
	producer   Producer
	store      mail.Store
	controller *mail.Controller
	logger     log.Logger
	chunks     int
	delay      time.Duration

	mu       sync.Mutex
	sessions map[string]*Session // draft ID -> active session
}

// NewEngine creates a refinement engine. chunks controls how many prefix
// steps the simulated stream takes; delay is the artificial pause between
// them.
func NewEngine(producer Producer, store mail.Store, controller *mail.Controller, logger log.Logger, chunks int, delay time.Duration) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	if chunks < 1 {
		chunks = 1
	}
	return &Engine{
		producer:   producer,
		store:      store,
		controller: controller,
		logger:     logger,
		chunks:     chunks,
		delay:      delay,
		sessions:   make(map[string]*Session),
	}
}

// Session is one in-flight refinement. Updates delivers strictly growing
// text prefixes and is closed on completion, cancellation, or error. The
// sequence is finite and non-restartable.
type Session struct {
	draftID     string
	instruction string

	cancel  context.CancelFunc
	updates chan string

	mu        sync.Mutex
	final     string
	complete  bool
	cancelled bool
	accepted  bool
	err       error
}

// Start begins a refinement session for a pending draft. An existing
// session on the same draft is superseded: cancelled before the new one
// produces anything.
func (e *Engine) Start(ctx context.Context, draftID, instruction string) (*Session, error) {
	d, ok, err := e.store.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("lookup draft %s: %w", draftID, err)
	}
	if !ok {
		return nil, fmt.Errorf("draft %s not found", draftID)
	}
	if d.Status != mail.DraftPending {
		return nil, fmt.Errorf("refine draft %s in status %q: %w", d.ID, d.Status, mail.ErrInvalidTransition)
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		draftID:     draftID,
		instruction: instruction,
		cancel:      cancel,
		updates:     make(chan string),
	}

	e.mu.Lock()
	if prior, ok := e.sessions[draftID]; ok {
		prior.supersede()
		e.logger.Info(ctx, "refinement session superseded", "draft_id", draftID)
	}
	e.sessions[draftID] = s
	e.mu.Unlock()

	go e.run(sctx, s, d.Body)

	e.logger.Info(ctx, "refinement session started", "draft_id", draftID)
	return s, nil
}

// run performs the single provider call and then chunks the result into
// growing prefixes. On any failure or cancellation the updates channel is
// closed without the session ever becoming complete.
func (e *Engine) run(ctx context.Context, s *Session, body string) {
	defer close(s.updates)

	improved, err := e.producer.RefineDraft(ctx, body, s.instruction)
	if err != nil {
		s.fail(err)
		e.logger.Error(ctx, err, "refinement failed", "draft_id", s.draftID)
		return
	}

	for _, prefix := range prefixes(improved, e.chunks) {
		if e.delay > 0 {
			select {
			case <-time.After(e.delay):
			case <-ctx.Done():
				return
			}
		}
		select {
		case s.updates <- prefix:
		case <-ctx.Done():
			return
		}
	}

	s.finish(improved)
}

// Updates returns the prefix stream. Receive until closed; each element is
// a strict extension of the previous, and the last one is the complete
// improved text.
func (s *Session) Updates() <-chan string { return s.updates }

// Err reports why the stream ended early, if it did.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel abandons the session. The underlying draft is untouched; a
// cancelled session can never be accepted.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.cancel()
}

// Accept applies the final improved text to the draft body and ends the
// session. It fails with ErrNotComplete while mid-stream and ErrCancelled
// after Cancel; applying a partial result is unrepresentable.
func (e *Engine) Accept(ctx context.Context, s *Session) (*mail.Draft, error) {
	s.mu.Lock()
	switch {
	case s.cancelled:
		s.mu.Unlock()
		return nil, ErrCancelled
	case !s.complete:
		s.mu.Unlock()
		return nil, ErrNotComplete
	case s.accepted:
		s.mu.Unlock()
		return nil, fmt.Errorf("refine: session already accepted: %w", mail.ErrInvalidTransition)
	}
	s.accepted = true
	final := s.final
	s.mu.Unlock()

	d, err := e.controller.ReplaceBody(ctx, s.draftID, final)
	if err != nil {
		return nil, err
	}

	e.drop(s)
	e.logger.Info(ctx, "refinement accepted", "draft_id", s.draftID)
	return d, nil
}

// Discard removes a finished or abandoned session from the engine.
func (e *Engine) Discard(s *Session) {
	s.Cancel()
	e.drop(s)
}

func (e *Engine) drop(s *Session) {
	e.mu.Lock()
	if e.sessions[s.draftID] == s {
		delete(e.sessions, s.draftID)
	}
	e.mu.Unlock()
}

func (s *Session) supersede() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) finish(final string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.final = final
	s.complete = true
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// prefixes splits text into at most n strictly growing rune-safe prefixes,
// the last being the whole text.
func prefixes(text string, n int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{""}
	}
	if n > len(runes) {
		n = len(runes)
	}
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		end := len(runes) * i / n
		out = append(out, string(runes[:end]))
	}
	return out
}
