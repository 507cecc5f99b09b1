package application

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
)

// Registry owns the in-memory session mapping. Every change goes through
// Mutate or Replace and is persisted as a full snapshot.
type Registry struct {
	repo ports.SessionRepository

	mu       sync.RWMutex
	sessions map[domain.SessionID]domain.Session

	saveMu sync.Mutex
}

func NewRegistry(repo ports.SessionRepository) *Registry {
	return &Registry{
		repo:     repo,
		sessions: map[domain.SessionID]domain.Session{},
	}
}

func (r *Registry) Load(ctx context.Context) error {
	loaded, err := r.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	sessions := make(map[domain.SessionID]domain.Session, len(loaded))
	for id, session := range loaded {
		if err := session.Validate(); err != nil {
			return fmt.Errorf("validate session %d: %w", id, err)
		}
		sessions[id] = session.Clone()
	}

	r.mu.Lock()
	r.sessions = sessions
	r.mu.Unlock()

	return nil
}

func (r *Registry) Get(id domain.SessionID) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (r *Registry) Exists(id domain.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sessions[id]
	return ok
}

func (r *Registry) IDs() []domain.SessionID {
	r.mu.RLock()
	ids := make([]domain.SessionID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Mutate applies fn to a copy of the session and, if fn and validation
// succeed, commits the copy and persists the mapping. A failing fn leaves
// the stored session untouched, and so does a failing save: the previous
// entry is restored before the error is returned.
func (r *Registry) Mutate(ctx context.Context, id domain.SessionID, fn func(*domain.Session) error) (domain.Session, error) {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	current, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return domain.Session{}, domain.ErrSessionNotFound
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		r.mu.Unlock()
		return domain.Session{}, err
	}
	if err := next.Validate(); err != nil {
		r.mu.Unlock()
		return domain.Session{}, fmt.Errorf("validate session %d: %w", id, err)
	}
	r.sessions[id] = next
	r.mu.Unlock()

	if err := r.saveLocked(ctx); err != nil {
		r.restore(id, current, true)
		return domain.Session{}, err
	}
	return next.Clone(), nil
}

// Replace stores session as-is, creating or overwriting its entry. The
// previous entry is restored when the save fails.
func (r *Registry) Replace(ctx context.Context, session domain.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validate session %d: %w", session.ID, err)
	}

	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	previous, existed := r.sessions[session.ID]
	r.sessions[session.ID] = session.Clone()
	r.mu.Unlock()

	if err := r.saveLocked(ctx); err != nil {
		r.restore(session.ID, previous, existed)
		return err
	}
	return nil
}

// Save writes the whole mapping. Writers hold the save lock from commit to
// write, so a later save never writes older state than an earlier one.
func (r *Registry) Save(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	return r.saveLocked(ctx)
}

func (r *Registry) saveLocked(ctx context.Context) error {
	if err := r.repo.Save(ctx, r.Snapshot()); err != nil {
		return fmt.Errorf("save sessions: %w", err)
	}
	return nil
}

func (r *Registry) restore(id domain.SessionID, previous domain.Session, existed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existed {
		r.sessions[id] = previous
		return
	}
	delete(r.sessions, id)
}

func (r *Registry) Snapshot() map[domain.SessionID]domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[domain.SessionID]domain.Session, len(r.sessions))
	for id, session := range r.sessions {
		snapshot[id] = session.Clone()
	}
	return snapshot
}
