// Package controller orchestrates admission lifecycle transitions. It is the
// only writer of ApplicationRecord state; all I/O beyond the injected store
// is pushed back to the caller as workflow events.
package controller

import (
	"context"
	"time"

	"github.com/google/uuid"

	"admissions-workflow/internal/common/errors"
	"admissions-workflow/internal/common/logger"
	"admissions-workflow/internal/common/metrics"
	"admissions-workflow/internal/models"
	"admissions-workflow/internal/notify"
	"admissions-workflow/internal/workflow/engine"
	"admissions-workflow/internal/workflow/store"
)

const defaultMaxSaveRetries = 3

type Controller struct {
	store      store.Store
	logger     logger.Logger
	maxRetries int
	now        func() time.Time
	newID      func() string
}

// Option customizes a Controller; used by tests to pin clocks and ids.
type Option func(*Controller)

func WithMaxSaveRetries(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithEventIDs(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

func New(st store.Store, log logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:      st,
		logger:     log.WithFields(map[string]interface{}{"component": "workflow-controller"}),
		maxRetries: defaultMaxSaveRetries,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestTransition moves an application to target if the guard table allows
// it. On success it returns the ordered event list: one StateChanged followed
// by one NotificationRequested addressed to the applicant.
func (c *Controller) RequestTransition(ctx context.Context, applicationID string, target models.ApplicationState, actor models.Actor, reason string) ([]models.WorkflowEvent, error) {
	start := c.now()

	events, err := c.mutate(ctx, applicationID, func(app *models.ApplicationRecord) ([]models.WorkflowEvent, error) {
		return c.applyTransition(app, target, actor, reason)
	})
	if err != nil {
		metrics.TransitionsFailed.WithLabelValues(string(target), string(errors.CodeOf(err))).Inc()
		return nil, err
	}

	metrics.TransitionsCompleted.WithLabelValues(string(target)).Inc()
	metrics.TransitionDuration.WithLabelValues(string(target)).Observe(c.now().Sub(start).Seconds())

	c.logger.Info("transition applied", map[string]interface{}{
		"applicationId": applicationID,
		"targetState":   target,
		"actorId":       actor.ID,
		"actorRole":     actor.Role,
	})
	return events, nil
}

// RecordDocumentAction records a verify/reject against one document, then
// auto-advances the application from UnderReview to DocumentsVerified once
// every document is verified. The auto-advance runs through the same guard
// checks as any other transition.
func (c *Controller) RecordDocumentAction(ctx context.Context, applicationID, documentID string, action engine.DocumentAction, actor models.Actor, reason string) ([]models.WorkflowEvent, error) {
	events, err := c.mutate(ctx, applicationID, func(app *models.ApplicationRecord) ([]models.WorkflowEvent, error) {
		return c.applyDocumentAction(app, documentID, action, actor, reason)
	})
	if err != nil {
		return nil, err
	}

	metrics.DocumentActions.WithLabelValues(string(action)).Inc()
	c.logger.Info("document action recorded", map[string]interface{}{
		"applicationId": applicationID,
		"documentId":    documentID,
		"action":        action,
		"actorId":       actor.ID,
	})

	// Re-evaluate auto-advance against the freshly saved record.
	app, loadErr := c.store.Load(ctx, applicationID)
	if loadErr != nil {
		return events, nil // action is committed; advance can happen on the next call
	}
	if app.State == models.StateUnderReview && engine.AllVerified(app) {
		advanceEvents, advErr := c.RequestTransition(ctx, applicationID, models.StateDocumentsVerified, actor, "")
		if advErr != nil {
			c.logger.Warn("auto-advance skipped", map[string]interface{}{
				"applicationId": applicationID,
				"error":         advErr,
			})
			return events, nil
		}
		events = append(events, advanceEvents...)
	}

	return events, nil
}

// UploadDocument attaches a fresh file reference to one document, resetting
// its status to Uploaded. A rejected document goes back into the review queue
// this way; any earlier check result on it is discarded.
func (c *Controller) UploadDocument(ctx context.Context, applicationID, documentID, fileRef string, actor models.Actor) ([]models.WorkflowEvent, error) {
	events, err := c.mutate(ctx, applicationID, func(app *models.ApplicationRecord) ([]models.WorkflowEvent, error) {
		return c.applyUpload(app, documentID, fileRef, actor)
	})
	if err != nil {
		return nil, err
	}

	metrics.DocumentActions.WithLabelValues("upload").Inc()
	c.logger.Info("document uploaded", map[string]interface{}{
		"applicationId": applicationID,
		"documentId":    documentID,
		"actorId":       actor.ID,
	})
	return events, nil
}

// mutate runs one optimistic read-modify-write cycle with bounded retries.
// fn mutates the cloned record in place and returns the events describing
// the mutation; nothing is persisted when fn fails.
func (c *Controller) mutate(ctx context.Context, applicationID string, fn func(*models.ApplicationRecord) ([]models.WorkflowEvent, error)) ([]models.WorkflowEvent, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		app, err := c.store.Load(ctx, applicationID)
		if err != nil {
			return nil, err
		}
		expectedVersion := app.Version

		events, err := fn(app)
		if err != nil {
			return nil, err
		}

		if err := c.store.Save(ctx, app, expectedVersion); err != nil {
			if errors.HasCode(err, errors.ErrCodeVersionConflict) {
				metrics.SaveConflicts.Inc()
				lastErr = err
				continue // re-evaluate guards against the fresh record
			}
			return nil, err
		}
		return events, nil
	}

	c.logger.Warn("save retries exhausted", map[string]interface{}{
		"applicationId": applicationID,
		"attempts":      c.maxRetries,
	})
	return nil, lastErr
}

func (c *Controller) applyTransition(app *models.ApplicationRecord, target models.ApplicationState, actor models.Actor, reason string) ([]models.WorkflowEvent, error) {
	if err := engine.CanTransition(app, target, actor, reason); err != nil {
		return nil, err
	}

	now := c.now().UTC().Format(time.RFC3339)
	from := app.State

	app.State = target
	app.UpdatedAt = now
	switch target {
	case models.StateApproved:
		app.AdmissionConfirmedAt = now
	case models.StateRejected:
		app.Remarks = reason
	}

	stateChanged := models.WorkflowEvent{
		ID:            c.newID(),
		Kind:          models.EventStateChanged,
		ApplicationID: app.ID,
		Actor:         actor,
		Timestamp:     now,
		StateChanged: &models.StateChangedPayload{
			From:   from,
			To:     target,
			Reason: reason,
		},
	}

	subject, body := notify.Render(target, app)
	notification := models.WorkflowEvent{
		ID:            c.newID(),
		Kind:          models.EventNotificationRequested,
		ApplicationID: app.ID,
		Actor:         actor,
		Timestamp:     now,
		Notification: &models.NotificationPayload{
			To:      app.Applicant.Email,
			Phone:   app.Applicant.Phone,
			Subject: subject,
			Body:    body,
		},
	}

	return []models.WorkflowEvent{stateChanged, notification}, nil
}

func (c *Controller) applyDocumentAction(app *models.ApplicationRecord, documentID string, action engine.DocumentAction, actor models.Actor, reason string) ([]models.WorkflowEvent, error) {
	if err := engine.CanRecordDocumentAction(app, documentID, action, actor, reason); err != nil {
		return nil, err
	}

	now := c.now().UTC().Format(time.RFC3339)
	doc := app.Document(documentID)

	switch action {
	case engine.ActionVerify:
		doc.Status = models.DocumentVerified
	case engine.ActionReject:
		doc.Status = models.DocumentRejected
		doc.Reason = reason
	}
	doc.VerifiedAt = now
	doc.VerifiedBy = actor.ID
	app.UpdatedAt = now

	event := models.WorkflowEvent{
		ID:            c.newID(),
		Kind:          models.EventDocumentVerified,
		ApplicationID: app.ID,
		Actor:         actor,
		Timestamp:     now,
		DocumentVerified: &models.DocumentVerifiedPayload{
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Status:       doc.Status,
			Reason:       reason,
		},
	}

	return []models.WorkflowEvent{event}, nil
}

func (c *Controller) applyUpload(app *models.ApplicationRecord, documentID, fileRef string, actor models.Actor) ([]models.WorkflowEvent, error) {
	if err := engine.CanUploadDocument(app, documentID); err != nil {
		return nil, err
	}

	now := c.now().UTC().Format(time.RFC3339)
	doc := app.Document(documentID)

	doc.Status = models.DocumentUploaded
	doc.FileRef = fileRef
	doc.UploadedAt = now
	doc.VerifiedAt = ""
	doc.VerifiedBy = ""
	doc.Reason = ""
	app.UpdatedAt = now

	event := models.WorkflowEvent{
		ID:            c.newID(),
		Kind:          models.EventDocumentUploaded,
		ApplicationID: app.ID,
		Actor:         actor,
		Timestamp:     now,
		DocumentUploaded: &models.DocumentUploadedPayload{
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			FileRef:      fileRef,
		},
	}

	return []models.WorkflowEvent{event}, nil
}

// Get returns the current record for rendering; read-only.
func (c *Controller) Get(ctx context.Context, applicationID string) (*models.ApplicationRecord, error) {
	return c.store.Load(ctx, applicationID)
}
