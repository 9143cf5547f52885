// Package memstore provides an in-memory implementation of kb.Store.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/linnemanlabs/sift/internal/kb"
)

// Store holds knowledge-base records in memory. Suitable for dev/testing
// and for running without a database URL.
type Store struct {
	mu       sync.RWMutex
	people   map[string]*kb.Person  // email -> person
	projects map[string]*kb.Project // lowercased name -> project
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		people:   make(map[string]*kb.Person),
		projects: make(map[string]*kb.Project),
	}
}

// GetPersonByEmail retrieves a person by exact email. Returns a copy.
func (s *Store) GetPersonByEmail(_ context.Context, email string) (*kb.Person, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[email]
	if !ok {
		return nil, false, nil
	}
	cp := clonePerson(p)
	return &cp, true, nil
}

// PutPerson stores a copy of the person, keyed by email.
func (s *Store) PutPerson(_ context.Context, p *kb.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clonePerson(p)
	s.people[p.Email] = &cp
	return nil
}

// ListPeople returns copies of all people.
func (s *Store) ListPeople(_ context.Context) ([]kb.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]kb.Person, 0, len(s.people))
	for _, p := range s.people {
		out = append(out, clonePerson(p))
	}
	return out, nil
}

// GetProjectByName retrieves a project by case-folded name. Returns a copy.
func (s *Store) GetProjectByName(_ context.Context, name string) (*kb.Project, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[strings.ToLower(name)]
	if !ok {
		return nil, false, nil
	}
	cp := cloneProject(p)
	return &cp, true, nil
}

// PutProject stores a copy of the project, keyed by case-folded name.
func (s *Store) PutProject(_ context.Context, p *kb.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneProject(p)
	s.projects[strings.ToLower(p.Name)] = &cp
	return nil
}

// ListProjects returns copies of all projects.
func (s *Store) ListProjects(_ context.Context) ([]kb.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]kb.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, cloneProject(p))
	}
	return out, nil
}

func clonePerson(p *kb.Person) kb.Person {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	return cp
}

func cloneProject(p *kb.Project) kb.Project {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	return cp
}
