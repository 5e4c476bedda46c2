// internal/notify/templates.go
package notify

import (
	"fmt"
	"strings"

	"admissions-workflow/internal/models"
)

type template struct {
	Subject string
	Body    string
}

// Applicant-facing message per lifecycle state. Keys are replaced with
// values from the application record.
var stateTemplates = map[models.ApplicationState]template{
	models.StateApplied: {
		Subject: "Application {{applicationId}} received",
		Body:    "Dear {{name}},\n\nYour application {{applicationId}} for {{course}} ({{academicYear}}) has been received. We will notify you as the review progresses.",
	},
	models.StateUnderReview: {
		Subject: "Application {{applicationId}} is under review",
		Body:    "Dear {{name}},\n\nYour application {{applicationId}} for {{course}} is now under review. Our admissions team is checking your submitted documents.",
	},
	models.StateDocumentsVerified: {
		Subject: "Documents verified for application {{applicationId}}",
		Body:    "Dear {{name}},\n\nAll documents for your application {{applicationId}} have been verified. Your application is awaiting the final admission decision.",
	},
	models.StateApproved: {
		Subject: "Admission confirmed - {{applicationId}}",
		Body:    "Dear {{name}},\n\nCongratulations! Your admission to {{course}} ({{academicYear}}) has been confirmed. Application reference: {{applicationId}}.",
	},
	models.StateRejected: {
		Subject: "Application {{applicationId}} update",
		Body:    "Dear {{name}},\n\nWe regret to inform you that your application {{applicationId}} for {{course}} was not successful.\n\nRemarks: {{remarks}}",
	},
}

// Render produces the applicant-facing subject and body for the given state.
func Render(state models.ApplicationState, app *models.ApplicationRecord) (string, string) {
	tmpl, ok := stateTemplates[state]
	if !ok {
		subject := fmt.Sprintf("Application %s update", app.ID)
		return subject, subject
	}

	data := map[string]string{
		"applicationId": app.ID,
		"name":          app.Applicant.Name,
		"course":        app.Course,
		"academicYear":  app.AcademicYear,
		"remarks":       app.Remarks,
	}

	return renderTemplate(tmpl.Subject, data), renderTemplate(tmpl.Body, data)
}

func renderTemplate(tmpl string, data map[string]string) string {
	out := tmpl
	for key, value := range data {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}
