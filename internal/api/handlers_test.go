// internal/api/handlers_test.go
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"admissions-workflow/internal/audit"
	"admissions-workflow/internal/common/logger"
	"admissions-workflow/internal/dispatch"
	"admissions-workflow/internal/models"
	"admissions-workflow/internal/workflow/controller"
	"admissions-workflow/internal/workflow/intake"
	"admissions-workflow/internal/workflow/projection"
	"admissions-workflow/internal/workflow/store"
)

// ==========================
// Test Harness
// ==========================

type testServer struct {
	router http.Handler
	store  *store.MemoryStore
	sink   *audit.MemorySink
}

func newTestServer(t *testing.T) *testServer {
	log := logger.NewTestLogger(t)
	st := store.NewMemoryStore()

	ctrl := controller.New(st, log)
	intakeSvc, err := intake.NewService(st, map[string][]string{
		"default": {"10th Mark Sheet", "12th Mark Sheet", "Transfer Certificate", "ID Proof"},
	}, log)
	if err != nil {
		t.Fatalf("intake service: %v", err)
	}
	projections := projection.NewService(st, nil, time.Minute, log)
	sink := audit.NewMemorySink()
	dispatcher := dispatch.New(sink, nil, projections, log)

	handler := NewHandler(ctrl, intakeSvc, projections, dispatcher, log)
	return &testServer{
		router: NewRouter(handler, log),
		store:  st,
		sink:   sink,
	}
}

func (s *testServer) request(method, path string, body interface{}, actor *models.Actor) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("X-Actor-Id", actor.ID)
		req.Header.Set("X-Actor-Role", string(actor.Role))
		req.Header.Set("X-Actor-Name", actor.Name)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(state models.ApplicationState, docStatuses ...models.DocumentStatus) {
	docs := make([]models.DocumentRecord, len(docStatuses))
	for i, st := range docStatuses {
		docs[i] = models.DocumentRecord{
			ID:         fmt.Sprintf("doc-%d", i+1),
			Name:       fmt.Sprintf("Document %d", i+1),
			Status:     st,
			UploadedAt: "2024-06-01T09:00:00Z",
		}
	}
	s.store.Seed(&models.ApplicationRecord{
		ID:           "APP2024003",
		Applicant:    models.Applicant{Name: "Anil Kumar", Email: "anil@example.com"},
		Course:       "BSC-CS",
		Semester:     "1",
		AcademicYear: "2024-25",
		Documents:    docs,
		State:        state,
		Version:      1,
	})
}

var (
	staff = &models.Actor{ID: "staff-1", Name: "Priya", Role: models.RoleStaff}
	admin = &models.Actor{ID: "admin-1", Name: "Rao", Role: models.RoleAdmin}
	stud  = &models.Actor{ID: "student-1", Name: "Anil", Role: models.RoleStudent}
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// ==========================
// Submission Endpoint Tests
// ==========================

func TestHandleSubmit(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(http.MethodPost, "/api/applications", map[string]string{
		"name":         "Anil Kumar",
		"email":        "anil@example.com",
		"course":       "BSC-CS",
		"semester":     "1",
		"academicYear": "2024-25",
	}, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var app models.ApplicationRecord
	decodeBody(t, rec, &app)
	assert.Equal(t, models.StateApplied, app.State)
	assert.Len(t, app.Documents, 4)
	assert.Regexp(t, `^APP\d{4}\d{3}$`, app.ID)
}

func TestHandleSubmit_ValidationError(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(http.MethodPost, "/api/applications", map[string]string{
		"name":  "Anil Kumar",
		"email": "not-an-email",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "APPLICATION_VALIDATION_FAILED", resp.Code)
}

func TestHandleSubmit_Duplicate(t *testing.T) {
	srv := newTestServer(t)
	payload := map[string]string{
		"name": "Anil Kumar", "email": "anil@example.com",
		"course": "BSC-CS", "semester": "1", "academicYear": "2024-25",
	}

	assert.Equal(t, http.StatusCreated, srv.request(http.MethodPost, "/api/applications", payload, nil).Code)
	rec := srv.request(http.MethodPost, "/api/applications", payload, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ==========================
// Read Endpoint Tests
// ==========================

func TestHandleGet(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(models.StateUnderReview, models.DocumentUploaded)

	rec := srv.request(http.MethodGet, "/api/applications/APP2024003", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var app models.ApplicationRecord
	decodeBody(t, rec, &app)
	assert.Equal(t, "APP2024003", app.ID)

	rec = srv.request(http.MethodGet, "/api/applications/APP2024999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleList(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(models.StateUnderReview, models.DocumentUploaded)

	rec := srv.request(http.MethodGet, "/api/applications?state=under_review", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Applications []projection.Summary `json:"applications"`
	}
	decodeBody(t, rec, &resp)
	assert.Len(t, resp.Applications, 1)

	rec = srv.request(http.MethodGet, "/api/applications?state=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCounts(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(models.StateUnderReview, models.DocumentUploaded)

	rec := srv.request(http.MethodGet, "/api/applications/counts", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var counts projection.Counts
	decodeBody(t, rec, &counts)
	assert.Equal(t, 1, counts.UnderReview)
	assert.Equal(t, 1, counts.Total)
}

// ==========================
// Transition Endpoint Tests
// ==========================

func TestHandleTransition(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(models.StateApplied, models.DocumentUploaded)

	rec := srv.request(http.MethodPost, "/api/applications/APP2024003/transitions",
		map[string]string{"target": "under_review"}, staff)

	assert.Equal(t, http.StatusOK, rec.Code)

	var app models.ApplicationRecord
	decodeBody(t, rec, &app)
	assert.Equal(t, models.StateUnderReview, app.State)

	events := srv.sink.Events()
	assert.Len(t, events, 2, "state change and notification request are audited")
	assert.Equal(t, models.EventStateChanged, events[0].Kind)
}

func TestHandleTransition_Failures(t *testing.T) {
	tests := []struct {
		name           string
		seedState      models.ApplicationState
		body           map[string]string
		actor          *models.Actor
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "missing actor headers",
			seedState:      models.StateApplied,
			body:           map[string]string{"target": "under_review"},
			actor:          nil,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "UNAUTHORIZED",
		},
		{
			name:           "student forbidden",
			seedState:      models.StateApplied,
			body:           map[string]string{"target": "under_review"},
			actor:          stud,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "UNAUTHORIZED",
		},
		{
			name:           "staff cannot approve",
			seedState:      models.StateDocumentsVerified,
			body:           map[string]string{"target": "approved"},
			actor:          staff,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "UNAUTHORIZED",
		},
		{
			name:           "rejection requires reason",
			seedState:      models.StateApplied,
			body:           map[string]string{"target": "rejected"},
			actor:          staff,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_REASON",
		},
		{
			name:           "illegal edge",
			seedState:      models.StateApplied,
			body:           map[string]string{"target": "approved"},
			actor:          admin,
			expectedStatus: http.StatusConflict,
			expectedCode:   "INVALID_TRANSITION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			srv.seed(tt.seedState, models.DocumentVerified)

			rec := srv.request(http.MethodPost, "/api/applications/APP2024003/transitions", tt.body, tt.actor)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var resp errorResponse
			decodeBody(t, rec, &resp)
			assert.Equal(t, tt.expectedCode, resp.Code)
			assert.Empty(t, srv.sink.Events(), "failed transitions are never audited")
		})
	}
}

// ==========================
// Document Endpoint Tests
// ==========================

func TestHandleVerifyDocument_AutoAdvance(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(models.StateUnderReview, models.DocumentVerified, models.DocumentUploaded)

	rec := srv.request(http.MethodPost, "/api/applications/APP2024003/documents/doc-2/verify", nil, staff)

	assert.Equal(t, http.StatusOK, rec.Code)

	var app models.ApplicationRecord
	decodeBody(t, rec, &app)
	assert.Equal(t, models.StateDocumentsVerified, app.State, "last verification advances the application")

	events := srv.sink.Events()
	assert.Len(t, events, 3)
	assert.Equal(t, models.EventDocumentVerified, events[0].Kind)
	assert.Equal(t, models.EventStateChanged, events[1].Kind)
}

func TestHandleRejectDocument(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(models.StateUnderReview, models.DocumentUploaded)

	rec := srv.request(http.MethodPost, "/api/applications/APP2024003/documents/doc-1/reject",
		map[string]string{"reason": "illegible scan"}, staff)

	assert.Equal(t, http.StatusOK, rec.Code)

	var app models.ApplicationRecord
	decodeBody(t, rec, &app)
	assert.Equal(t, models.StateUnderReview, app.State)
	assert.Equal(t, models.DocumentRejected, app.Documents[0].Status)
}

func TestHandleRejectDocument_RequiresReason(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(models.StateUnderReview, models.DocumentUploaded)

	rec := srv.request(http.MethodPost, "/api/applications/APP2024003/documents/doc-1/reject", nil, staff)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "MISSING_REASON", resp.Code)
}

func TestHandleUploadDocument(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(models.StateUnderReview, models.DocumentRejected)

	rec := srv.request(http.MethodPost, "/api/applications/APP2024003/documents/doc-1/upload",
		map[string]string{"fileRef": "s3://admissions/APP2024003/doc-1-v2.pdf"}, stud)

	assert.Equal(t, http.StatusOK, rec.Code)

	var app models.ApplicationRecord
	decodeBody(t, rec, &app)
	assert.Equal(t, models.DocumentUploaded, app.Documents[0].Status)
	assert.Equal(t, "s3://admissions/APP2024003/doc-1-v2.pdf", app.Documents[0].FileRef)
	assert.Empty(t, app.Documents[0].Reason)

	events := srv.sink.Events()
	assert.Len(t, events, 1)
	assert.Equal(t, models.EventDocumentUploaded, events[0].Kind)
}

func TestHandleUploadDocument_FrozenAfterVerification(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(models.StateDocumentsVerified, models.DocumentVerified)

	rec := srv.request(http.MethodPost, "/api/applications/APP2024003/documents/doc-1/upload",
		map[string]string{"fileRef": "s3://x"}, stud)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "INVALID_TRANSITION", resp.Code)
}

func TestHandleVerifyDocument_UnknownDocument(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(models.StateUnderReview, models.DocumentUploaded)

	rec := srv.request(http.MethodPost, "/api/applications/APP2024003/documents/doc-9/verify", nil, staff)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "INVALID_DOCUMENT_TYPE", resp.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.request(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
