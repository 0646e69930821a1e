package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"learning_assist/internal/models"
)

const recordColumns = `record_id, topic_id, school_id, academic_year, grade, section,
       subject_id, subject_name, topic_name, teacher_id, teacher_name,
       parent_phone, status, notes, created_at, updated_at`

// updatableRecordFields are the only attributes Update accepts; everything
// else is part of the record identity and immutable.
var updatableRecordFields = map[string]bool{
	"status":       true,
	"teacher_id":   true,
	"teacher_name": true,
	"subject_name": true,
	"topic_name":   true,
	"notes":        true,
}

// RecordRepository handles academic record database operations
type RecordRepository struct {
	db *DB
}

// NewRecordRepository creates a new academic record repository
func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create inserts a new academic record. A duplicate composite key is
// reported as ErrDuplicateRecord.
func (r *RecordRepository) Create(ctx context.Context, rec *models.AcademicRecord) error {
	query := `
		INSERT INTO academic_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.conn.ExecContext(ctx, query,
		rec.RecordID, rec.TopicID, rec.SchoolID, rec.AcademicYear, rec.Grade, rec.Section,
		rec.SubjectID, rec.SubjectName, rec.TopicName, rec.TeacherID, rec.TeacherName,
		rec.ParentPhone, rec.Status, rec.Notes, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

// Get retrieves one record by its composite key.
func (r *RecordRepository) Get(ctx context.Context, recordID, topicID string) (*models.AcademicRecord, error) {
	var rec models.AcademicRecord
	query := `SELECT ` + recordColumns + ` FROM academic_records WHERE record_id = $1 AND topic_id = $2`

	err := r.db.conn.GetContext(ctx, &rec, query, recordID, topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &rec, nil
}

// Update applies the allowed subset of updates to a record, bumps
// updated_at and returns the new row.
func (r *RecordRepository) Update(ctx context.Context, recordID, topicID string, updates map[string]any) (*models.AcademicRecord, error) {
	setClauses := []string{"updated_at = $3"}
	args := []any{recordID, topicID, time.Now().UTC()}

	for field, value := range updates {
		if !updatableRecordFields[field] {
			continue
		}
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, len(args)))
	}

	query := `
		UPDATE academic_records SET ` + strings.Join(setClauses, ", ") + `
		WHERE record_id = $1 AND topic_id = $2
		RETURNING ` + recordColumns

	var rec models.AcademicRecord
	err := r.db.conn.GetContext(ctx, &rec, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to update record: %w", err)
	}
	return &rec, nil
}

// Delete removes a record by its composite key. Deleting a missing record
// is not an error.
func (r *RecordRepository) Delete(ctx context.Context, recordID, topicID string) error {
	query := `DELETE FROM academic_records WHERE record_id = $1 AND topic_id = $2`

	if _, err := r.db.conn.ExecContext(ctx, query, recordID, topicID); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// ListByTeacher returns all records assigned to a teacher.
func (r *RecordRepository) ListByTeacher(ctx context.Context, teacherID string) ([]*models.AcademicRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM academic_records WHERE teacher_id = $1 ORDER BY record_id, topic_id`
	return r.list(ctx, query, teacherID)
}

// ListBySchool returns all records of a school.
func (r *RecordRepository) ListBySchool(ctx context.Context, schoolID string) ([]*models.AcademicRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM academic_records WHERE school_id = $1 ORDER BY record_id, topic_id`
	return r.list(ctx, query, schoolID)
}

// ListByTopic returns all records covering a topic, across classes.
func (r *RecordRepository) ListByTopic(ctx context.Context, topicID string) ([]*models.AcademicRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM academic_records WHERE topic_id = $1 ORDER BY record_id`
	return r.list(ctx, query, topicID)
}

// ListByClass returns all records of one class across subjects, using the
// composite key prefix {school}#{year}#{grade}#{section}#.
func (r *RecordRepository) ListByClass(ctx context.Context, schoolID, academicYear, grade, section string) ([]*models.AcademicRecord, error) {
	prefix := fmt.Sprintf("%s#%s#%s#%s#", schoolID, academicYear, grade, section)
	query := `SELECT ` + recordColumns + ` FROM academic_records
		WHERE school_id = $1 AND record_id LIKE $2 ORDER BY record_id, topic_id`
	return r.list(ctx, query, schoolID, prefix+"%")
}

func (r *RecordRepository) list(ctx context.Context, query string, args ...any) ([]*models.AcademicRecord, error) {
	records := []*models.AcademicRecord{}
	if err := r.db.conn.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}
