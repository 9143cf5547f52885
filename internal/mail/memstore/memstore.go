// Package memstore provides an in-memory implementation of mail.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/sift/internal/mail"
)

// Store holds threads and drafts in memory. Suitable for dev/testing and
// for running without a database URL.
type Store struct {
	mu      sync.RWMutex
	threads map[string]*mail.Thread
	drafts  map[string]*mail.Draft
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		threads: make(map[string]*mail.Thread),
		drafts:  make(map[string]*mail.Draft),
	}
}

// GetThread retrieves a thread by ID. Returns a copy.
func (s *Store) GetThread(_ context.Context, id string) (*mail.Thread, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, false, nil
	}
	cp := cloneThread(t)
	return &cp, true, nil
}

// PutThread stores a copy of the thread.
func (s *Store) PutThread(_ context.Context, t *mail.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneThread(t)
	s.threads[t.ID] = &cp
	return nil
}

// ListThreads returns copies of all threads with the given status; an empty
// status matches everything.
func (s *Store) ListThreads(_ context.Context, status mail.ThreadStatus) ([]mail.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []mail.Thread
	for _, t := range s.threads {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, cloneThread(t))
	}
	return out, nil
}

// GetDraft retrieves a draft by ID. Returns a copy.
func (s *Store) GetDraft(_ context.Context, id string) (*mail.Draft, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, false, nil
	}
	cp := *d
	return &cp, true, nil
}

// CreateDraft inserts a new draft, rejecting a second pending draft on the
// same thread.
func (s *Store) CreateDraft(_ context.Context, d *mail.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Status == mail.DraftPending {
		for _, existing := range s.drafts {
			if existing.ThreadID == d.ThreadID && existing.Status == mail.DraftPending {
				return mail.ErrPendingDraftExists
			}
		}
	}
	cp := *d
	s.drafts[d.ID] = &cp
	return nil
}

// PutDraft stores a copy of the draft, overwriting any previous version.
func (s *Store) PutDraft(_ context.Context, d *mail.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.drafts[d.ID] = &cp
	return nil
}

// PendingDraft returns the thread's pending draft, if any. Returns a copy.
func (s *Store) PendingDraft(_ context.Context, threadID string) (*mail.Draft, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.drafts {
		if d.ThreadID == threadID && d.Status == mail.DraftPending {
			cp := *d
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func cloneThread(t *mail.Thread) mail.Thread {
	cp := *t
	cp.Participants = append([]string(nil), t.Participants...)
	return cp
}
