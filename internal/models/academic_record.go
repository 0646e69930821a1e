package models

import (
	"fmt"
	"time"
)

// ValidStatuses are the allowed progress states of a topic within a class.
var ValidStatuses = []string{"not_started", "in_progress", "completed", "on_hold", "cancelled"}

// IsValidStatus reports whether s is an allowed record status.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// AcademicRecord maps one topic of one subject to a class and its teacher.
// RecordID is a composite key of the form
// {school_id}#{academic_year}#{grade}#{section}#{subject_id}; together with
// TopicID it uniquely identifies a record.
type AcademicRecord struct {
	RecordID     string    `db:"record_id" json:"record_id"`
	TopicID      string    `db:"topic_id" json:"topic_id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Grade        string    `db:"grade" json:"grade"`
	Section      string    `db:"section" json:"section"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	SubjectName  string    `db:"subject_name" json:"subject_name"`
	TopicName    string    `db:"topic_name" json:"topic_name"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id,omitempty"`
	TeacherName  string    `db:"teacher_name" json:"teacher_name,omitempty"`
	ParentPhone  string    `db:"parent_phone" json:"parent_phone,omitempty"`
	Status       string    `db:"status" json:"status"`
	Notes        string    `db:"notes" json:"notes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ComposeRecordID builds the composite record key for a class/subject pair.
func ComposeRecordID(schoolID, academicYear, grade, section, subjectID string) string {
	return fmt.Sprintf("%s#%s#%s#%s#%s", schoolID, academicYear, grade, section, subjectID)
}
