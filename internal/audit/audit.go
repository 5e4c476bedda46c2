// Package audit provides the append-only sink for workflow events. Every
// successful transition and document check lands here exactly once; failed
// calls never do.
package audit

import (
	"context"
	"sync"

	"admissions-workflow/internal/models"
)

// Sink receives StateChanged and DocumentVerified events for durable logging.
type Sink interface {
	Record(ctx context.Context, event models.WorkflowEvent) error
}

// MemorySink buffers events in memory; used by tests and local development.
type MemorySink struct {
	mu     sync.Mutex
	events []models.WorkflowEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(ctx context.Context, event models.WorkflowEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *MemorySink) Events() []models.WorkflowEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.WorkflowEvent, len(s.events))
	copy(out, s.events)
	return out
}
