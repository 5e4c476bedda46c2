// Package store defines the persistence contract for application records.
// The workflow core never talks to storage technology directly.
package store

import (
	"context"

	"admissions-workflow/internal/models"
)

// Filter narrows List results for the dashboard projections.
type Filter struct {
	State  models.ApplicationState
	Course string
}

// Store is the repository the controller and intake operate against.
// Save enforces optimistic concurrency: it persists only when the stored
// version equals expectedVersion, bumping the version by one on success.
type Store interface {
	Create(ctx context.Context, app *models.ApplicationRecord) error
	Load(ctx context.Context, id string) (*models.ApplicationRecord, error)
	Save(ctx context.Context, app *models.ApplicationRecord, expectedVersion int) error
	List(ctx context.Context, f Filter) ([]*models.ApplicationRecord, error)

	// Exists reports whether an application for the applicant email and
	// course is already on file, regardless of state.
	Exists(ctx context.Context, email, course string) (bool, error)

	// NextSequence returns the next per-year submission sequence number,
	// used to mint human-readable ids like APP2024003.
	NextSequence(ctx context.Context, year int) (int, error)
}
