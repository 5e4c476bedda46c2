// internal/workflow/intake/schema.go
package intake

// submissionSchema validates the raw admission form payload before any
// record is created.
const submissionSchema = `{
	"type": "object",
	"properties": {
		"name": {
			"type": "string",
			"minLength": 2,
			"maxLength": 120
		},
		"email": {
			"type": "string",
			"pattern": "^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$"
		},
		"phone": {
			"type": "string",
			"pattern": "^\\+?[0-9][0-9 -]{6,18}$"
		},
		"course": {
			"type": "string",
			"minLength": 1
		},
		"semester": {
			"type": "string",
			"minLength": 1
		},
		"academicYear": {
			"type": "string",
			"pattern": "^[0-9]{4}-[0-9]{2,4}$"
		}
	},
	"required": ["name", "email", "course", "semester", "academicYear"],
	"additionalProperties": true
}`
