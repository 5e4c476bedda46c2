// internal/models/application.go
package models

// ApplicationState is the canonical lifecycle state of an admission application.
type ApplicationState string

const (
	StateApplied           ApplicationState = "applied"
	StateUnderReview       ApplicationState = "under_review"
	StateDocumentsVerified ApplicationState = "documents_verified"
	StateApproved          ApplicationState = "approved"
	StateRejected          ApplicationState = "rejected"
)

// IsTerminal reports whether no further transition is possible from s.
func (s ApplicationState) IsTerminal() bool {
	return s == StateApproved || s == StateRejected
}

// Valid reports whether s is one of the five canonical states.
func (s ApplicationState) Valid() bool {
	switch s {
	case StateApplied, StateUnderReview, StateDocumentsVerified, StateApproved, StateRejected:
		return true
	}
	return false
}

// DocumentStatus is the verification state of a single required document.
type DocumentStatus string

const (
	DocumentUploaded DocumentStatus = "uploaded"
	DocumentVerified DocumentStatus = "verified"
	DocumentRejected DocumentStatus = "rejected"
)

// DocumentRecord is one required document and its verification state.
// VerifiedAt is set only when the status is verified or rejected.
type DocumentRecord struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Status     DocumentStatus `json:"status"`
	FileRef    string         `json:"fileRef,omitempty"`
	UploadedAt string         `json:"uploadedAt"`
	VerifiedAt string         `json:"verifiedAt,omitempty"`
	VerifiedBy string         `json:"verifiedBy,omitempty"`
	Reason     string         `json:"reason,omitempty"` // set on rejection
}

// Applicant holds the contact details captured at submission. Immutable for
// the purposes of the workflow.
type Applicant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// ApplicationRecord is the aggregate the workflow operates on. It is mutated
// only through controller transitions; Version guards concurrent writes.
type ApplicationRecord struct {
	ID                   string           `json:"id"` // e.g. APP2024001
	Applicant            Applicant        `json:"applicant"`
	Course               string           `json:"course"`
	Semester             string           `json:"semester"`
	AcademicYear         string           `json:"academicYear"`
	SubmittedAt          string           `json:"submittedAt"`
	Documents            []DocumentRecord `json:"documents"`
	State                ApplicationState `json:"state"`
	AdmissionConfirmedAt string           `json:"admissionConfirmedAt,omitempty"`
	Remarks              string           `json:"remarks,omitempty"`
	Version              int              `json:"version"`
	UpdatedAt            string           `json:"updatedAt"`
}

// Document returns the document with the given id, or nil.
func (a *ApplicationRecord) Document(id string) *DocumentRecord {
	for i := range a.Documents {
		if a.Documents[i].ID == id {
			return &a.Documents[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing the
// stored record.
func (a *ApplicationRecord) Clone() *ApplicationRecord {
	cp := *a
	cp.Documents = make([]DocumentRecord, len(a.Documents))
	copy(cp.Documents, a.Documents)
	return &cp
}

// Role is the capability level of the actor invoking an operation.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Actor is the role-bearing identity behind a workflow call.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role"`
}

// CanReview reports whether the actor may run document checks and move
// applications through review.
func (a Actor) CanReview() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}

// CanApprove reports whether the actor may confirm an admission.
func (a Actor) CanApprove() bool {
	return a.Role == RoleAdmin
}
