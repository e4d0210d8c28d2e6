// Package session holds the in-memory session registry. Sessions live for
// the process lifetime only; durability is a deliberate non-feature, callers
// re-ask instead of replaying.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talk2data/talk2data/internal/model"
)

// ErrNotFound means no session exists for the given ID.
var ErrNotFound = errors.New("session not found")

// ErrNotReady means the session exists but the requested stage result has
// not been produced yet.
var ErrNotReady = errors.New("stage result not ready")

// Store is a concurrency-safe in-memory session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*model.Session)}
}

// Create registers a new session for a question. IDs are UUIDv7 so listing
// order and creation order agree. The store keeps its own copy; the returned
// record stays private to the caller until it is published with Put.
func (s *Store) Create(question string, flags model.Flags) *model.Session {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	now := time.Now().UTC()
	sess := &model.Session{
		ID:        id.String(),
		Question:  question,
		Stage:     model.StageCreated,
		Flags:     flags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cp := *sess

	s.mu.Lock()
	s.sessions[sess.ID] = &cp
	s.mu.Unlock()
	return sess
}

// Get returns a copy of the session, or ErrNotFound. Callers get a snapshot;
// mutation goes through Put.
func (s *Store) Get(id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

// Put stores the session record whole, bumping UpdatedAt.
func (s *Store) Put(sess *model.Session) {
	sess.UpdatedAt = time.Now().UTC()
	cp := *sess

	s.mu.Lock()
	s.sessions[sess.ID] = &cp
	s.mu.Unlock()
}

// Delete removes a session, or returns ErrNotFound.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// List returns session snapshots, newest first.
func (s *Store) List() []*model.Session {
	s.mu.RLock()
	out := make([]*model.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		cp := *sess
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Metadata returns the session's metadata bundle, ErrNotReady if retrieval
// has not run yet.
func (s *Store) Metadata(id string) (*model.Bundle, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Bundle == nil {
		return nil, ErrNotReady
	}
	return sess.Bundle, nil
}

// SQL returns the generated statement, ErrNotReady before generation.
func (s *Store) SQL(id string) (*model.Statement, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Statement == nil {
		return nil, ErrNotReady
	}
	return sess.Statement, nil
}

// Results returns the executed row set, ErrNotReady before execution.
func (s *Store) Results(id string) (*model.RowSet, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.RowSet == nil {
		return nil, ErrNotReady
	}
	return sess.RowSet, nil
}

// Summary returns the narrative, ErrNotReady before summarization.
func (s *Store) Summary(id string) (string, error) {
	sess, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if sess.Summary == "" {
		return "", ErrNotReady
	}
	return sess.Summary, nil
}
