// internal/workflow/store/memory.go
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"admissions-workflow/internal/common/errors"
	"admissions-workflow/internal/models"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It honors the same version semantics as the postgres implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	apps map[string]*models.ApplicationRecord
	seq  map[int]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		apps: make(map[string]*models.ApplicationRecord),
		seq:  make(map[int]int),
	}
}

func (s *MemoryStore) Create(ctx context.Context, app *models.ApplicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apps[app.ID]; exists {
		return errors.NewDuplicateApplicationError(app.Applicant.Email, app.Course)
	}
	s.apps[app.ID] = app.Clone()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*models.ApplicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[id]
	if !ok {
		return nil, errors.NewNotFoundError(id)
	}
	return app.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, app *models.ApplicationRecord, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.apps[app.ID]
	if !ok {
		return errors.NewNotFoundError(app.ID)
	}
	if stored.Version != expectedVersion {
		return errors.NewVersionConflictError(app.ID, expectedVersion)
	}

	cp := app.Clone()
	cp.Version = expectedVersion + 1
	s.apps[app.ID] = cp
	app.Version = cp.Version
	return nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*models.ApplicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ApplicationRecord, 0, len(s.apps))
	for _, app := range s.apps {
		if f.State != "" && app.State != f.State {
			continue
		}
		if f.Course != "" && app.Course != f.Course {
			continue
		}
		out = append(out, app.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Exists(ctx context.Context, email, course string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, app := range s.apps {
		if strings.EqualFold(app.Applicant.Email, email) && app.Course == course {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) NextSequence(ctx context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq[year]++
	return s.seq[year], nil
}

// Seed loads records directly, bypassing workflow rules. Test helper.
func (s *MemoryStore) Seed(apps ...*models.ApplicationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, app := range apps {
		s.apps[app.ID] = app.Clone()
	}
}

func (s *MemoryStore) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("MemoryStore(%d applications)", len(s.apps))
}
