// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admissions-workflow/internal/common/errors"
	"admissions-workflow/internal/common/logger"
	"admissions-workflow/internal/models"
	"admissions-workflow/internal/workflow/engine"
	"admissions-workflow/internal/workflow/intake"
	"admissions-workflow/internal/workflow/projection"
	"admissions-workflow/internal/workflow/store"
)

// Workflow is the controller surface the handlers call.
type Workflow interface {
	RequestTransition(ctx context.Context, applicationID string, target models.ApplicationState, actor models.Actor, reason string) ([]models.WorkflowEvent, error)
	RecordDocumentAction(ctx context.Context, applicationID, documentID string, action engine.DocumentAction, actor models.Actor, reason string) ([]models.WorkflowEvent, error)
	UploadDocument(ctx context.Context, applicationID, documentID, fileRef string, actor models.Actor) ([]models.WorkflowEvent, error)
	Get(ctx context.Context, applicationID string) (*models.ApplicationRecord, error)
}

// Intake is the submission surface the handlers call.
type Intake interface {
	Submit(ctx context.Context, sub intake.Submission) (*models.ApplicationRecord, error)
}

// Projections is the dashboard read surface.
type Projections interface {
	List(ctx context.Context, f store.Filter) ([]projection.Summary, error)
	StateCounts(ctx context.Context) (projection.Counts, error)
}

// EventSink receives the events an operation produced. Satisfied by
// *dispatch.Dispatcher.
type EventSink interface {
	Dispatch(ctx context.Context, events []models.WorkflowEvent)
}

// Handler wires the admission endpoints to the workflow services.
type Handler struct {
	workflow    Workflow
	intake      Intake
	projections Projections
	events      EventSink
	logger      logger.Logger
}

// NewHandler builds the HTTP handler set.
func NewHandler(wf Workflow, in Intake, pr Projections, events EventSink, log logger.Logger) *Handler {
	return &Handler{
		workflow:    wf,
		intake:      in,
		projections: pr,
		events:      events,
		logger:      log,
	}
}

// HandleHealth answers liveness probes.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSubmit handles POST /api/applications.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub intake.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, errors.NewValidationFailedError("malformed JSON body"))
		return
	}

	app, err := h.intake.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// HandleList handles GET /api/applications with optional state and course
// query filters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	f := store.Filter{
		State:  models.ApplicationState(r.URL.Query().Get("state")),
		Course: r.URL.Query().Get("course"),
	}
	if f.State != "" && !f.State.Valid() {
		writeError(w, errors.NewValidationFailedError("unknown state filter: "+string(f.State)))
		return
	}

	summaries, err := h.projections.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": summaries})
}

// HandleCounts handles GET /api/applications/counts.
func (h *Handler) HandleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.projections.StateCounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// HandleGet handles GET /api/applications/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	app, err := h.workflow.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type transitionRequest struct {
	Target models.ApplicationState `json:"target"`
	Reason string                  `json:"reason,omitempty"`
}

// HandleTransition handles POST /api/applications/{id}/transitions.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, errors.NewUnauthorizedError("actor headers missing"))
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationFailedError("malformed JSON body"))
		return
	}

	id := chi.URLParam(r, "id")
	events, err := h.workflow.RequestTransition(r.Context(), id, req.Target, actor, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	h.events.Dispatch(r.Context(), events)

	app, err := h.workflow.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type documentActionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// HandleVerifyDocument handles POST /api/applications/{id}/documents/{docID}/verify.
func (h *Handler) HandleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	h.documentAction(w, r, engine.ActionVerify)
}

// HandleRejectDocument handles POST /api/applications/{id}/documents/{docID}/reject.
func (h *Handler) HandleRejectDocument(w http.ResponseWriter, r *http.Request) {
	h.documentAction(w, r, engine.ActionReject)
}

type uploadRequest struct {
	FileRef string `json:"fileRef,omitempty"`
}

// HandleUploadDocument handles POST /api/applications/{id}/documents/{docID}/upload.
// Applicants use it to attach a replacement file after a rejection, so any
// authenticated actor may call it.
func (h *Handler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, errors.NewUnauthorizedError("actor headers missing"))
		return
	}

	var req uploadRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.NewValidationFailedError("malformed JSON body"))
			return
		}
	}

	id := chi.URLParam(r, "id")
	docID := chi.URLParam(r, "docID")
	events, err := h.workflow.UploadDocument(r.Context(), id, docID, req.FileRef, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	h.events.Dispatch(r.Context(), events)

	app, err := h.workflow.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) documentAction(w http.ResponseWriter, r *http.Request, action engine.DocumentAction) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, errors.NewUnauthorizedError("actor headers missing"))
		return
	}

	var req documentActionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.NewValidationFailedError("malformed JSON body"))
			return
		}
	}

	id := chi.URLParam(r, "id")
	docID := chi.URLParam(r, "docID")
	events, err := h.workflow.RecordDocumentAction(r.Context(), id, docID, action, actor, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	h.events.Dispatch(r.Context(), events)

	app, err := h.workflow.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// actorFrom reads the acting identity from request headers. The gateway in
// front of this service authenticates the caller and stamps these headers.
func actorFrom(r *http.Request) (models.Actor, bool) {
	id := r.Header.Get("X-Actor-Id")
	role := models.Role(r.Header.Get("X-Actor-Role"))
	if id == "" || role == "" {
		return models.Actor{}, false
	}
	return models.Actor{
		ID:   id,
		Name: r.Header.Get("X-Actor-Name"),
		Role: role,
	}, true
}
