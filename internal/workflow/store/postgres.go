// internal/workflow/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"admissions-workflow/internal/common/errors"
	"admissions-workflow/internal/models"
)

// PostgresStore persists applications in a single row per record with the
// applicant and document set as JSONB, the same shape the audit sink uses.
//
// Expected table:
//
//	CREATE TABLE applications (
//	    id            TEXT PRIMARY KEY,
//	    applicant     JSONB NOT NULL,
//	    course        TEXT NOT NULL,
//	    semester      TEXT NOT NULL,
//	    academic_year TEXT NOT NULL,
//	    submitted_at  TEXT NOT NULL,
//	    documents     JSONB NOT NULL,
//	    state         TEXT NOT NULL,
//	    admission_confirmed_at TEXT NOT NULL DEFAULT '',
//	    remarks       TEXT NOT NULL DEFAULT '',
//	    version       INTEGER NOT NULL,
//	    updated_at    TEXT NOT NULL,
//	    applicant_email TEXT NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, app *models.ApplicationRecord) error {
	applicantJSON, err := json.Marshal(app.Applicant)
	if err != nil {
		return errors.NewStorageFailedError(err)
	}
	documentsJSON, err := json.Marshal(app.Documents)
	if err != nil {
		return errors.NewStorageFailedError(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO applications (
			id, applicant, course, semester, academic_year, submitted_at,
			documents, state, admission_confirmed_at, remarks, version,
			updated_at, applicant_email
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		app.ID,
		applicantJSON,
		app.Course,
		app.Semester,
		app.AcademicYear,
		app.SubmittedAt,
		documentsJSON,
		string(app.State),
		app.AdmissionConfirmedAt,
		app.Remarks,
		app.Version,
		app.UpdatedAt,
		app.Applicant.Email,
	)
	if err != nil {
		return errors.NewStorageFailedError(fmt.Errorf("insert application: %w", err))
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*models.ApplicationRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, applicant, course, semester, academic_year, submitted_at,
		       documents, state, admission_confirmed_at, remarks, version, updated_at
		FROM applications
		WHERE id = $1`, id)

	return scanApplication(row, id)
}

func (s *PostgresStore) Save(ctx context.Context, app *models.ApplicationRecord, expectedVersion int) error {
	applicantJSON, err := json.Marshal(app.Applicant)
	if err != nil {
		return errors.NewStorageFailedError(err)
	}
	documentsJSON, err := json.Marshal(app.Documents)
	if err != nil {
		return errors.NewStorageFailedError(err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET applicant = $1, documents = $2, state = $3,
		    admission_confirmed_at = $4, remarks = $5,
		    version = version + 1, updated_at = $6
		WHERE id = $7 AND version = $8`,
		applicantJSON,
		documentsJSON,
		string(app.State),
		app.AdmissionConfirmedAt,
		app.Remarks,
		app.UpdatedAt,
		app.ID,
		expectedVersion,
	)
	if err != nil {
		return errors.NewStorageFailedError(fmt.Errorf("update application: %w", err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errors.NewStorageFailedError(err)
	}
	if rows == 0 {
		// Distinguish a missing row from a stale version.
		var exists bool
		err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1)`, app.ID).Scan(&exists)
		if err != nil {
			return errors.NewStorageFailedError(err)
		}
		if !exists {
			return errors.NewNotFoundError(app.ID)
		}
		return errors.NewVersionConflictError(app.ID, expectedVersion)
	}

	app.Version = expectedVersion + 1
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*models.ApplicationRecord, error) {
	query := `
		SELECT id, applicant, course, semester, academic_year, submitted_at,
		       documents, state, admission_confirmed_at, remarks, version, updated_at
		FROM applications
		WHERE ($1 = '' OR state = $1)
		  AND ($2 = '' OR course = $2)
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, string(f.State), f.Course)
	if err != nil {
		return nil, errors.NewStorageFailedError(fmt.Errorf("list applications: %w", err))
	}
	defer rows.Close()

	var out []*models.ApplicationRecord
	for rows.Next() {
		app, err := scanApplication(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageFailedError(err)
	}
	return out, nil
}

func (s *PostgresStore) Exists(ctx context.Context, email, course string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications
			WHERE LOWER(applicant_email) = LOWER($1) AND course = $2
		)`, email, course).Scan(&exists)
	if err != nil {
		return false, errors.NewStorageFailedError(fmt.Errorf("duplicate check failed: %w", err))
	}
	return exists, nil
}

func (s *PostgresStore) NextSequence(ctx context.Context, year int) (int, error) {
	prefix := fmt.Sprintf("APP%d%%", year)
	var next int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(id FROM 8) AS INTEGER)), 0) + 1
		FROM applications
		WHERE id LIKE $1`, prefix).Scan(&next)
	if err != nil {
		return 0, errors.NewStorageFailedError(fmt.Errorf("next sequence: %w", err))
	}
	return next, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner, id string) (*models.ApplicationRecord, error) {
	var (
		app           models.ApplicationRecord
		applicantJSON []byte
		documentsJSON []byte
		state         string
	)

	err := row.Scan(
		&app.ID,
		&applicantJSON,
		&app.Course,
		&app.Semester,
		&app.AcademicYear,
		&app.SubmittedAt,
		&documentsJSON,
		&state,
		&app.AdmissionConfirmedAt,
		&app.Remarks,
		&app.Version,
		&app.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError(id)
		}
		return nil, errors.NewStorageFailedError(fmt.Errorf("scan application: %w", err))
	}

	if err := json.Unmarshal(applicantJSON, &app.Applicant); err != nil {
		return nil, errors.NewStorageFailedError(fmt.Errorf("decode applicant: %w", err))
	}
	if err := json.Unmarshal(documentsJSON, &app.Documents); err != nil {
		return nil, errors.NewStorageFailedError(fmt.Errorf("decode documents: %w", err))
	}
	app.State = models.ApplicationState(state)

	return &app, nil
}
