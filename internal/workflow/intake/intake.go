// internal/workflow/intake/intake.go
//
// Package intake turns a raw admission form into a validated application
// record. It owns payload validation, duplicate detection, course checklist
// resolution and id minting; once a record exists, all further changes go
// through the workflow controller.
package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"admissions-workflow/internal/common/errors"
	"admissions-workflow/internal/common/logger"
	"admissions-workflow/internal/models"
	"admissions-workflow/internal/workflow/store"
)

// Submission is the admission form payload as received from the applicant.
type Submission struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Course       string `json:"course"`
	Semester     string `json:"semester"`
	AcademicYear string `json:"academicYear"`
}

// Service creates application records from submissions.
type Service struct {
	store     store.Store
	logger    logger.Logger
	schema    *gojsonschema.Schema
	checklist map[string][]string
	now       func() time.Time
	newDocID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDocumentIDs overrides document id generation, for tests.
func WithDocumentIDs(gen func() string) Option {
	return func(s *Service) { s.newDocID = gen }
}

// NewService builds an intake service. requiredDocuments maps a course code
// to its document checklist; the "default" key is the fallback for courses
// without a specific list.
func NewService(st store.Store, requiredDocuments map[string][]string, log logger.Logger, opts ...Option) (*Service, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(submissionSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling submission schema: %w", err)
	}

	s := &Service{
		store:     st,
		logger:    log,
		schema:    schema,
		checklist: requiredDocuments,
		now:       func() time.Time { return time.Now().UTC() },
		newDocID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit validates the form, mints an application id and persists a new
// record in the applied state with every required document marked uploaded.
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.ApplicationRecord, error) {
	if err := s.validate(sub); err != nil {
		return nil, err
	}

	docs, err := s.documentsFor(sub.Course)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.Exists(ctx, sub.Email, sub.Course)
	if err != nil {
		return nil, errors.NewStorageFailedError(err)
	}
	if exists {
		return nil, errors.NewDuplicateApplicationError(sub.Email, sub.Course)
	}

	now := s.now().Format(time.RFC3339)
	id, err := s.mintID(ctx, sub.AcademicYear)
	if err != nil {
		return nil, err
	}

	records := make([]models.DocumentRecord, 0, len(docs))
	for _, name := range docs {
		records = append(records, models.DocumentRecord{
			ID:         s.newDocID(),
			Name:       name,
			Status:     models.DocumentUploaded,
			UploadedAt: now,
		})
	}

	app := &models.ApplicationRecord{
		ID: id,
		Applicant: models.Applicant{
			Name:  strings.TrimSpace(sub.Name),
			Email: strings.ToLower(strings.TrimSpace(sub.Email)),
			Phone: strings.TrimSpace(sub.Phone),
		},
		Course:       sub.Course,
		Semester:     sub.Semester,
		AcademicYear: sub.AcademicYear,
		SubmittedAt:  now,
		Documents:    records,
		State:        models.StateApplied,
		Version:      1,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, app); err != nil {
		if errors.HasCode(err, errors.ErrCodeDuplicateApplication) {
			return nil, err
		}
		return nil, errors.NewStorageFailedError(err)
	}

	s.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"course":        app.Course,
		"documents":     len(app.Documents),
	})
	return app, nil
}

// validate runs the submission through the JSON schema and reports all
// violations in a single error.
func (s *Service) validate(sub Submission) error {
	payload := map[string]interface{}{
		"name":         sub.Name,
		"email":        sub.Email,
		"course":       sub.Course,
		"semester":     sub.Semester,
		"academicYear": sub.AcademicYear,
	}
	if sub.Phone != "" {
		payload["phone"] = sub.Phone
	}

	result, err := s.schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return errors.NewValidationFailedError(err.Error())
	}
	if result.Valid() {
		return nil
	}

	var details []string
	for _, desc := range result.Errors() {
		details = append(details, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.NewValidationFailedError(strings.Join(details, "; "))
}

// documentsFor resolves the document checklist for a course. A course with
// no entry uses the "default" checklist; a missing default means the course
// catalogue does not know the course at all.
func (s *Service) documentsFor(course string) ([]string, error) {
	if docs, ok := s.checklist[course]; ok {
		return docs, nil
	}
	if docs, ok := s.checklist["default"]; ok {
		return docs, nil
	}
	return nil, errors.NewUnknownCourseError(course)
}

// mintID produces the human-readable id APP<year><seq>, e.g. APP2024003.
// The year is the leading year of the academic year string.
func (s *Service) mintID(ctx context.Context, academicYear string) (string, error) {
	year := s.now().Year()
	if len(academicYear) >= 4 {
		var y int
		if _, err := fmt.Sscanf(academicYear[:4], "%d", &y); err == nil {
			year = y
		}
	}

	seq, err := s.store.NextSequence(ctx, year)
	if err != nil {
		return "", errors.NewStorageFailedError(err)
	}
	return fmt.Sprintf("APP%d%03d", year, seq), nil
}
