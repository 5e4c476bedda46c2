// internal/workflow/projection/projection.go
//
// Package projection serves the read side of the workflow: filtered
// application listings and per-state counts for the admissions dashboard.
// Results are cached in Redis with a short TTL and invalidated whenever the
// dispatcher sees a state change, so a Redis outage degrades to direct
// store reads rather than an error.
package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"admissions-workflow/internal/common/errors"
	"admissions-workflow/internal/common/logger"
	"admissions-workflow/internal/models"
	"admissions-workflow/internal/workflow/store"
)

const cacheKeyPrefix = "admissions:projection:"

// Summary is the dashboard row for one application.
type Summary struct {
	ID            string                  `json:"id"`
	ApplicantName string                  `json:"applicantName"`
	Course        string                  `json:"course"`
	Semester      string                  `json:"semester"`
	State         models.ApplicationState `json:"state"`
	Documents     int                     `json:"documents"`
	Verified      int                     `json:"verified"`
	SubmittedAt   string                  `json:"submittedAt"`
	UpdatedAt     string                  `json:"updatedAt"`
}

// Counts is the number of applications per lifecycle state.
type Counts struct {
	Applied           int `json:"applied"`
	UnderReview       int `json:"underReview"`
	DocumentsVerified int `json:"documentsVerified"`
	Approved          int `json:"approved"`
	Rejected          int `json:"rejected"`
	Total             int `json:"total"`
}

// Service answers dashboard queries.
type Service struct {
	store  store.Store
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewService builds a projection service. redisClient may be nil, in which
// case every query hits the store directly.
func NewService(st store.Store, redisClient *redis.Client, ttl time.Duration, log logger.Logger) *Service {
	return &Service{
		store:  st,
		redis:  redisClient,
		ttl:    ttl,
		logger: log,
	}
}

// List returns dashboard summaries matching the filter, most recently
// updated first as ordered by the store.
func (s *Service) List(ctx context.Context, f store.Filter) ([]Summary, error) {
	key := listKey(f)
	if cached, ok := s.fromCache(ctx, key); ok {
		var out []Summary
		if err := json.Unmarshal(cached, &out); err == nil {
			return out, nil
		}
	}

	apps, err := s.store.List(ctx, f)
	if err != nil {
		return nil, errors.NewStorageFailedError(err)
	}

	out := make([]Summary, 0, len(apps))
	for _, app := range apps {
		out = append(out, summarize(app))
	}
	s.toCache(ctx, key, out)
	return out, nil
}

// StateCounts returns the per-state application tally for the dashboard
// header.
func (s *Service) StateCounts(ctx context.Context) (Counts, error) {
	key := cacheKeyPrefix + "counts"
	if cached, ok := s.fromCache(ctx, key); ok {
		var out Counts
		if err := json.Unmarshal(cached, &out); err == nil {
			return out, nil
		}
	}

	apps, err := s.store.List(ctx, store.Filter{})
	if err != nil {
		return Counts{}, errors.NewStorageFailedError(err)
	}

	var out Counts
	for _, app := range apps {
		switch app.State {
		case models.StateApplied:
			out.Applied++
		case models.StateUnderReview:
			out.UnderReview++
		case models.StateDocumentsVerified:
			out.DocumentsVerified++
		case models.StateApproved:
			out.Approved++
		case models.StateRejected:
			out.Rejected++
		}
	}
	out.Total = len(apps)
	s.toCache(ctx, key, out)
	return out, nil
}

// Invalidate drops every cached projection. Called by the dispatcher after
// any write to the store.
func (s *Service) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}

	iter := s.redis.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("projection cache scan failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("projection cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Service) fromCache(ctx context.Context, key string) ([]byte, bool) {
	if s.redis == nil {
		return nil, false
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("projection cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return nil, false
	}
	return data, true
}

func (s *Service) toCache(ctx context.Context, key string, v interface{}) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("projection cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func listKey(f store.Filter) string {
	return fmt.Sprintf("%slist:%s:%s", cacheKeyPrefix, f.State, f.Course)
}

func summarize(app *models.ApplicationRecord) Summary {
	verified := 0
	for _, d := range app.Documents {
		if d.Status == models.DocumentVerified {
			verified++
		}
	}
	return Summary{
		ID:            app.ID,
		ApplicantName: app.Applicant.Name,
		Course:        app.Course,
		Semester:      app.Semester,
		State:         app.State,
		Documents:     len(app.Documents),
		Verified:      verified,
		SubmittedAt:   app.SubmittedAt,
		UpdatedAt:     app.UpdatedAt,
	}
}
