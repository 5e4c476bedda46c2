// internal/workflow/engine/engine_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"admissions-workflow/internal/common/errors"
	"admissions-workflow/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func staffActor() models.Actor {
	return models.Actor{ID: "staff-1", Name: "Priya", Role: models.RoleStaff}
}

func adminActor() models.Actor {
	return models.Actor{ID: "admin-1", Name: "Rao", Role: models.RoleAdmin}
}

func studentActor() models.Actor {
	return models.Actor{ID: "student-1", Name: "Anil", Role: models.RoleStudent}
}

func testApplication(state models.ApplicationState, docStatuses ...models.DocumentStatus) *models.ApplicationRecord {
	docs := make([]models.DocumentRecord, len(docStatuses))
	for i, st := range docStatuses {
		docs[i] = models.DocumentRecord{
			ID:         string(rune('a' + i)),
			Name:       "Document",
			Status:     st,
			UploadedAt: "2024-06-01T09:00:00Z",
		}
	}
	return &models.ApplicationRecord{
		ID:        "APP2024001",
		Applicant: models.Applicant{Name: "Anil Kumar", Email: "anil@example.com"},
		Course:    "BSC-CS",
		State:     state,
		Documents: docs,
		Version:   1,
	}
}

// ==========================
// Transition Guard Tests
// ==========================

func TestCanTransition_LegalEdges(t *testing.T) {
	tests := []struct {
		name   string
		app    *models.ApplicationRecord
		target models.ApplicationState
		actor  models.Actor
		reason string
	}{
		{
			name:   "applied to under review by staff",
			app:    testApplication(models.StateApplied, models.DocumentUploaded),
			target: models.StateUnderReview,
			actor:  staffActor(),
		},
		{
			name:   "applied to rejected with reason",
			app:    testApplication(models.StateApplied, models.DocumentUploaded),
			target: models.StateRejected,
			actor:  staffActor(),
			reason: "incomplete submission",
		},
		{
			name:   "under review to documents verified when all verified",
			app:    testApplication(models.StateUnderReview, models.DocumentVerified, models.DocumentVerified),
			target: models.StateDocumentsVerified,
			actor:  staffActor(),
		},
		{
			name:   "under review to rejected after document rejection",
			app:    testApplication(models.StateUnderReview, models.DocumentVerified, models.DocumentRejected),
			target: models.StateRejected,
			actor:  staffActor(),
			reason: "forged transfer certificate",
		},
		{
			name:   "documents verified to approved by admin",
			app:    testApplication(models.StateDocumentsVerified, models.DocumentVerified),
			target: models.StateApproved,
			actor:  adminActor(),
		},
		{
			name:   "documents verified to rejected by staff with reason",
			app:    testApplication(models.StateDocumentsVerified, models.DocumentVerified),
			target: models.StateRejected,
			actor:  staffActor(),
			reason: "seat quota exhausted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.app, tt.target, tt.actor, tt.reason)
			assert.NoError(t, err)
		})
	}
}

func TestCanTransition_IllegalEdges(t *testing.T) {
	tests := []struct {
		name         string
		app          *models.ApplicationRecord
		target       models.ApplicationState
		actor        models.Actor
		reason       string
		expectedCode errors.ErrorCode
	}{
		{
			name:         "unknown target state",
			app:          testApplication(models.StateApplied, models.DocumentUploaded),
			target:       models.ApplicationState("archived"),
			actor:        adminActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "student may not request transitions",
			app:          testApplication(models.StateApplied, models.DocumentUploaded),
			target:       models.StateUnderReview,
			actor:        studentActor(),
			expectedCode: errors.ErrCodeUnauthorized,
		},
		{
			name:         "student approving is unauthorized even from terminal state",
			app:          testApplication(models.StateRejected, models.DocumentRejected),
			target:       models.StateApproved,
			actor:        studentActor(),
			expectedCode: errors.ErrCodeUnauthorized,
		},
		{
			name:         "staff may not approve",
			app:          testApplication(models.StateDocumentsVerified, models.DocumentVerified),
			target:       models.StateApproved,
			actor:        staffActor(),
			expectedCode: errors.ErrCodeUnauthorized,
		},
		{
			name:         "rejection without reason",
			app:          testApplication(models.StateUnderReview, models.DocumentVerified),
			target:       models.StateRejected,
			actor:        staffActor(),
			expectedCode: errors.ErrCodeMissingReason,
		},
		{
			name:         "no transitions out of approved",
			app:          testApplication(models.StateApproved, models.DocumentVerified),
			target:       models.StateUnderReview,
			actor:        adminActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "no transitions out of rejected",
			app:          testApplication(models.StateRejected, models.DocumentRejected),
			target:       models.StateUnderReview,
			actor:        adminActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "skipping review from applied to documents verified",
			app:          testApplication(models.StateApplied, models.DocumentVerified),
			target:       models.StateDocumentsVerified,
			actor:        staffActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "skipping straight to approved from applied",
			app:          testApplication(models.StateApplied, models.DocumentUploaded),
			target:       models.StateApproved,
			actor:        adminActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "documents verified blocked while one still uploaded",
			app:          testApplication(models.StateUnderReview, models.DocumentVerified, models.DocumentUploaded),
			target:       models.StateDocumentsVerified,
			actor:        staffActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "documents verified blocked while one rejected",
			app:          testApplication(models.StateUnderReview, models.DocumentVerified, models.DocumentRejected),
			target:       models.StateDocumentsVerified,
			actor:        staffActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "documents verified blocked with empty document set",
			app:          testApplication(models.StateUnderReview),
			target:       models.StateDocumentsVerified,
			actor:        staffActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "backwards edge from documents verified to under review",
			app:          testApplication(models.StateDocumentsVerified, models.DocumentVerified),
			target:       models.StateUnderReview,
			actor:        staffActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.app, tt.target, tt.actor, tt.reason)
			assert.Error(t, err)
			assert.Equal(t, tt.expectedCode, errors.CodeOf(err))
		})
	}
}

// ==========================
// Document Action Guard Tests
// ==========================

func TestCanRecordDocumentAction(t *testing.T) {
	tests := []struct {
		name         string
		app          *models.ApplicationRecord
		documentID   string
		action       DocumentAction
		actor        models.Actor
		reason       string
		expectedCode errors.ErrorCode // "" means allowed
	}{
		{
			name:       "verify uploaded document in applied",
			app:        testApplication(models.StateApplied, models.DocumentUploaded),
			documentID: "a",
			action:     ActionVerify,
			actor:      staffActor(),
		},
		{
			name:       "verify uploaded document in under review",
			app:        testApplication(models.StateUnderReview, models.DocumentUploaded),
			documentID: "a",
			action:     ActionVerify,
			actor:      staffActor(),
		},
		{
			name:       "reject uploaded document with reason",
			app:        testApplication(models.StateUnderReview, models.DocumentUploaded),
			documentID: "a",
			action:     ActionReject,
			actor:      staffActor(),
			reason:     "illegible scan",
		},
		{
			name:         "student may not verify",
			app:          testApplication(models.StateUnderReview, models.DocumentUploaded),
			documentID:   "a",
			action:       ActionVerify,
			actor:        studentActor(),
			expectedCode: errors.ErrCodeUnauthorized,
		},
		{
			name:         "reject without reason",
			app:          testApplication(models.StateUnderReview, models.DocumentUploaded),
			documentID:   "a",
			action:       ActionReject,
			actor:        staffActor(),
			expectedCode: errors.ErrCodeMissingReason,
		},
		{
			name:         "unknown action",
			app:          testApplication(models.StateUnderReview, models.DocumentUploaded),
			documentID:   "a",
			action:       DocumentAction("shred"),
			actor:        staffActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "documents frozen once verified state reached",
			app:          testApplication(models.StateDocumentsVerified, models.DocumentVerified),
			documentID:   "a",
			action:       ActionVerify,
			actor:        staffActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "documents frozen in terminal state",
			app:          testApplication(models.StateApproved, models.DocumentVerified),
			documentID:   "a",
			action:       ActionVerify,
			actor:        adminActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "unknown document id",
			app:          testApplication(models.StateUnderReview, models.DocumentUploaded),
			documentID:   "missing",
			action:       ActionVerify,
			actor:        staffActor(),
			expectedCode: errors.ErrCodeInvalidDocumentType,
		},
		{
			name:         "already verified document",
			app:          testApplication(models.StateUnderReview, models.DocumentVerified),
			documentID:   "a",
			action:       ActionVerify,
			actor:        staffActor(),
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "already rejected document",
			app:          testApplication(models.StateUnderReview, models.DocumentRejected),
			documentID:   "a",
			action:       ActionReject,
			actor:        staffActor(),
			reason:       "second look",
			expectedCode: errors.ErrCodeInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanRecordDocumentAction(tt.app, tt.documentID, tt.action, tt.actor, tt.reason)
			if tt.expectedCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, tt.expectedCode, errors.CodeOf(err))
		})
	}
}

// ==========================
// Upload Guard Tests
// ==========================

func TestCanUploadDocument(t *testing.T) {
	tests := []struct {
		name         string
		app          *models.ApplicationRecord
		documentID   string
		expectedCode errors.ErrorCode // "" means allowed
	}{
		{
			name:       "replace uploaded document in applied",
			app:        testApplication(models.StateApplied, models.DocumentUploaded),
			documentID: "a",
		},
		{
			name:       "replace rejected document in under review",
			app:        testApplication(models.StateUnderReview, models.DocumentRejected),
			documentID: "a",
		},
		{
			name:         "document id outside required set",
			app:          testApplication(models.StateApplied, models.DocumentUploaded),
			documentID:   "missing",
			expectedCode: errors.ErrCodeInvalidDocumentType,
		},
		{
			name:         "uploads frozen once documents verified",
			app:          testApplication(models.StateDocumentsVerified, models.DocumentVerified),
			documentID:   "a",
			expectedCode: errors.ErrCodeInvalidTransition,
		},
		{
			name:         "uploads frozen in terminal state",
			app:          testApplication(models.StateRejected, models.DocumentRejected),
			documentID:   "a",
			expectedCode: errors.ErrCodeInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanUploadDocument(tt.app, tt.documentID)
			if tt.expectedCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, tt.expectedCode, errors.CodeOf(err))
		})
	}
}

// ==========================
// Predicate Tests
// ==========================

func TestAllVerified(t *testing.T) {
	assert.False(t, AllVerified(testApplication(models.StateUnderReview)), "empty document set never counts as verified")
	assert.False(t, AllVerified(testApplication(models.StateUnderReview, models.DocumentVerified, models.DocumentUploaded)))
	assert.False(t, AllVerified(testApplication(models.StateUnderReview, models.DocumentVerified, models.DocumentRejected)))
	assert.True(t, AllVerified(testApplication(models.StateUnderReview, models.DocumentVerified, models.DocumentVerified)))
}

func TestAnyRejected(t *testing.T) {
	assert.False(t, AnyRejected(testApplication(models.StateUnderReview, models.DocumentVerified, models.DocumentUploaded)))
	assert.True(t, AnyRejected(testApplication(models.StateUnderReview, models.DocumentVerified, models.DocumentRejected)))
}
