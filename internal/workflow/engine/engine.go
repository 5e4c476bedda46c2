// Package engine holds the pure guard logic for the admission lifecycle.
// Transition legality is decided here and nowhere else; the controller
// never bypasses it.
package engine

import (
	"fmt"

	"admissions-workflow/internal/common/errors"
	"admissions-workflow/internal/models"
)

// DocumentAction is a staff check recorded against one document.
type DocumentAction string

const (
	ActionVerify DocumentAction = "verify"
	ActionReject DocumentAction = "reject"
)

// AllVerified reports whether the application has a non-empty document set
// with every document verified.
func AllVerified(app *models.ApplicationRecord) bool {
	if len(app.Documents) == 0 {
		return false
	}
	for _, doc := range app.Documents {
		if doc.Status != models.DocumentVerified {
			return false
		}
	}
	return true
}

// AnyRejected reports whether at least one document has been rejected.
func AnyRejected(app *models.ApplicationRecord) bool {
	for _, doc := range app.Documents {
		if doc.Status == models.DocumentRejected {
			return true
		}
	}
	return false
}

// CanTransition encodes the guard table. It returns nil when the requested
// transition is legal for the given actor, otherwise a WorkflowError with
// code UNAUTHORIZED, MISSING_REASON or INVALID_TRANSITION.
//
// Authorization is evaluated before state guards: an actor whose role can
// never perform the requested transition gets UNAUTHORIZED regardless of the
// application's current state.
func CanTransition(app *models.ApplicationRecord, target models.ApplicationState, actor models.Actor, reason string) error {
	if !target.Valid() {
		return errors.NewInvalidTransitionError(fmt.Sprintf("unknown target state: %s", target))
	}

	// Only staff or admin may move an application past Applied.
	if !actor.CanReview() {
		return errors.NewUnauthorizedError(fmt.Sprintf("role %s may not request transitions", actor.Role))
	}
	if target == models.StateApproved && !actor.CanApprove() {
		return errors.NewUnauthorizedError(fmt.Sprintf("role %s may not approve admissions", actor.Role))
	}

	if target == models.StateRejected && reason == "" {
		return errors.NewMissingReasonError()
	}

	if app.State.IsTerminal() {
		return errors.NewInvalidTransitionError(fmt.Sprintf("application is in terminal state %s", app.State))
	}

	switch app.State {
	case models.StateApplied:
		switch target {
		case models.StateUnderReview:
			return nil // staff begins review, no further guard
		case models.StateRejected:
			return nil // manual rejection path, reason already checked
		}

	case models.StateUnderReview:
		switch target {
		case models.StateDocumentsVerified:
			if AnyRejected(app) {
				return errors.NewInvalidTransitionError("at least one document is rejected")
			}
			if !AllVerified(app) {
				return errors.NewInvalidTransitionError("not all documents are verified")
			}
			return nil
		case models.StateRejected:
			return nil // rejected document or explicit staff override
		}

	case models.StateDocumentsVerified:
		switch target {
		case models.StateApproved:
			return nil // admin capability checked above
		case models.StateRejected:
			return nil // staff/admin override with reason
		}
	}

	return errors.NewInvalidTransitionError(fmt.Sprintf("no edge from %s to %s", app.State, target))
}

// CanUploadDocument checks whether a new file may be attached to the given
// document. Uploads carry no role requirement, the applicant replaces their
// own files, but the document set is frozen once review completes.
func CanUploadDocument(app *models.ApplicationRecord, documentID string) error {
	if app.State != models.StateApplied && app.State != models.StateUnderReview {
		return errors.NewInvalidTransitionError(fmt.Sprintf("documents are frozen in state %s", app.State))
	}
	if app.Document(documentID) == nil {
		return errors.NewInvalidDocumentTypeError(app.ID, documentID)
	}
	return nil
}

// CanRecordDocumentAction checks whether a verify/reject may be recorded for
// the given document. Document checks happen while the application is still
// moving through review; once DocumentsVerified is reached the set is frozen
// so the state invariant cannot be broken retroactively.
func CanRecordDocumentAction(app *models.ApplicationRecord, documentID string, action DocumentAction, actor models.Actor, reason string) error {
	if !actor.CanReview() {
		return errors.NewUnauthorizedError(fmt.Sprintf("role %s may not verify documents", actor.Role))
	}

	if action != ActionVerify && action != ActionReject {
		return errors.NewInvalidTransitionError(fmt.Sprintf("unknown document action: %s", action))
	}
	if action == ActionReject && reason == "" {
		return errors.NewMissingReasonError()
	}

	if app.State != models.StateApplied && app.State != models.StateUnderReview {
		return errors.NewInvalidTransitionError(fmt.Sprintf("documents are frozen in state %s", app.State))
	}

	doc := app.Document(documentID)
	if doc == nil {
		return errors.NewInvalidDocumentTypeError(app.ID, documentID)
	}
	if doc.Status != models.DocumentUploaded {
		return errors.NewInvalidTransitionError(fmt.Sprintf("document %s already %s", documentID, doc.Status))
	}

	return nil
}
