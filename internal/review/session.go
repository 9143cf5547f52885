package review

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/notify"
)

// DefaultSettleDuration is how long the commit exit transition plays before
// the dispatch fires.
const DefaultSettleDuration = 250 * time.Millisecond

// Hooks receives review session events. Nil funcs are skipped.
type Hooks struct {
	OnCommit   func(direction string)
	OnSnapback func()
	OnDispatch func(direction string, seconds float64, failed bool)
}

// Session serializes gesture events for the active card and drives the
// commit cycle end to end: classify, lock, settle, dispatch, notify,
// unlock. All event methods are safe for concurrent use; the internal lock
// makes processing effectively single-threaded, so a sample is fully
// applied before the next one is accepted.
type Session struct {
	seq        *Sequencer
	dispatcher *Dispatcher
	notifier   notify.Notifier
	logger     log.Logger
	settle     time.Duration
	hooks      Hooks

	mu       sync.Mutex
	threadID string
	gen      uint64 // bumped on every card switch; stale settle timers check it
	timer    *time.Timer
}

// NewSession creates a review session. settle <= 0 selects
// DefaultSettleDuration.
func NewSession(seq *Sequencer, dispatcher *Dispatcher, notifier notify.Notifier, logger log.Logger, settle time.Duration, hooks Hooks) *Session {
	if notifier == nil {
		notifier = notify.Nop()
	}
	if logger == nil {
		logger = log.Nop()
	}
	if settle <= 0 {
		settle = DefaultSettleDuration
	}
	return &Session{
		seq:        seq,
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		settle:     settle,
		hooks:      hooks,
	}
}

// SetCard switches the session to a different thread. Any in-flight commit
// that has not yet dispatched is abandoned; a dispatch that already fired
// stays fired.
func (s *Session) SetCard(ctx context.Context, threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.seq.Locked() {
		s.logger.Info(ctx, "abandoning in-flight commit on card switch",
			"thread_id", s.threadID, "next_thread_id", threadID)
	}
	s.seq.Reset()
	s.threadID = threadID
	s.gen++
}

// Card returns the active thread ID.
func (s *Session) Card() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// Resize updates the card extent used for classification. Takes effect on
// the next motion sample.
func (s *Session) Resize(c Classifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq.classifier = c
}

// Locked reports whether a commit is in flight on the active card.
func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Locked()
}

// Motion feeds a cumulative motion delta to the sequencer and returns the
// live reading for animation feedback.
func (s *Session) Motion(dx, dy float64) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Motion(dx, dy)
}

// Release ends the swipe. A commit locks the card and schedules the settle
// timer; when it expires the dispatch fires exactly once. The returned bool
// reports whether the release committed.
func (s *Session) Release(ctx context.Context) (Reading, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasSwiping := s.seq.Phase() == PhaseSwiping
	r, committed, err := s.seq.Release()
	if err != nil {
		return r, false, err
	}

	if !committed {
		if wasSwiping && s.hooks.OnSnapback != nil {
			s.hooks.OnSnapback()
		}
		return r, false, nil
	}

	if s.hooks.OnCommit != nil {
		s.hooks.OnCommit(string(r.Direction))
	}

	// The dispatch outlives the release call's context.
	dctx := context.WithoutCancel(ctx)
	gen := s.gen
	threadID := s.threadID
	s.timer = time.AfterFunc(s.settle, func() {
		s.fire(dctx, gen, threadID)
	})

	s.logger.Info(ctx, "gesture committed",
		"thread_id", threadID, "direction", string(r.Direction), "progress", r.Progress)
	return r, true, nil
}

// Reset abandons the current gesture without switching cards.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq.Reset()
	s.gen++
}

// fire runs at settle-timer expiry. A stale generation means the card
// switched while settling; the commit was abandoned and nothing fires.
func (s *Session) fire(ctx context.Context, gen uint64, threadID string) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.seq.Settle()
	dir, ok := s.seq.Finish()
	s.mu.Unlock()
	if !ok {
		return
	}

	start := time.Now()
	outcome, err := s.dispatcher.Dispatch(ctx, threadID, dir)
	if s.hooks.OnDispatch != nil {
		s.hooks.OnDispatch(string(dir), time.Since(start).Seconds(), err != nil)
	}

	if err != nil {
		s.logger.Error(ctx, err, "dispatch failed", "thread_id", threadID, "direction", string(dir))
		if nerr := s.notifier.Notify(ctx, "action failed: "+err.Error(), notify.SeverityError); nerr != nil {
			s.logger.Warn(ctx, "notify failed", "error", nerr.Error())
		}
		return
	}

	s.logger.Info(ctx, "dispatch complete",
		"thread_id", threadID, "direction", string(dir), "message", outcome.Message)
	if nerr := s.notifier.Notify(ctx, outcome.Message, notify.SeverityInfo); nerr != nil {
		s.logger.Warn(ctx, "notify failed", "error", nerr.Error())
	}
}
