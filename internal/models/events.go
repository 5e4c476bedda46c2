// internal/models/events.go
package models

// EventKind discriminates the workflow event payload.
type EventKind string

const (
	EventStateChanged          EventKind = "state_changed"
	EventDocumentUploaded      EventKind = "document_uploaded"
	EventDocumentVerified      EventKind = "document_verified"
	EventNotificationRequested EventKind = "notification_requested"
)

// WorkflowEvent is emitted by the controller for every successful mutation.
// The core performs no I/O itself; the dispatcher forwards these to the
// audit sink and the notification gateway.
type WorkflowEvent struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"kind"`
	ApplicationID string    `json:"applicationId"`
	Actor         Actor     `json:"actor"`
	Timestamp     string    `json:"timestamp"` // RFC3339 UTC

	StateChanged     *StateChangedPayload     `json:"stateChanged,omitempty"`
	DocumentUploaded *DocumentUploadedPayload `json:"documentUploaded,omitempty"`
	DocumentVerified *DocumentVerifiedPayload `json:"documentVerified,omitempty"`
	Notification     *NotificationPayload     `json:"notification,omitempty"`
}

// DocumentUploadedPayload records a fresh file landing against a required
// document, either the first upload or a replacement after rejection.
type DocumentUploadedPayload struct {
	DocumentID   string `json:"documentId"`
	DocumentName string `json:"documentName"`
	FileRef      string `json:"fileRef,omitempty"`
}

// StateChangedPayload records one lifecycle transition.
type StateChangedPayload struct {
	From   ApplicationState `json:"from"`
	To     ApplicationState `json:"to"`
	Reason string           `json:"reason,omitempty"`
}

// DocumentVerifiedPayload records a single document check, accepted or not.
type DocumentVerifiedPayload struct {
	DocumentID   string         `json:"documentId"`
	DocumentName string         `json:"documentName"`
	Status       DocumentStatus `json:"status"`
	Reason       string         `json:"reason,omitempty"`
}

// NotificationPayload is the applicant-facing message the gateway delivers.
// The core guarantees it is well-formed, not that delivery succeeds.
type NotificationPayload struct {
	To      string `json:"to"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
