package httpapi

import (
	"context"
	"strings"
	"time"

	"learning_assist/internal/logging"
	"learning_assist/internal/models"
	"learning_assist/internal/storage"
	"learning_assist/internal/utils"
)

// memUserStore is an in-memory UserStore for handler tests.
type memUserStore struct {
	users map[string]*models.User // by user_id
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*models.User{}}
}

func (s *memUserStore) Create(ctx context.Context, u *models.User) error {
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return storage.ErrEmailTaken
		}
	}
	clone := *u
	s.users[u.UserID] = &clone
	return nil
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (s *memUserStore) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	for _, u := range s.users {
		if u.PhoneNumber == phone {
			clone := *u
			return &clone, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (s *memUserStore) UpdateLastLogin(ctx context.Context, userID string, when time.Time) error {
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.LastLogin = &when
	return nil
}

// memRecordStore is an in-memory RecordStore for handler tests.
type memRecordStore struct {
	records map[string]*models.AcademicRecord // by record_id + "|" + topic_id
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{records: map[string]*models.AcademicRecord{}}
}

func recordKey(recordID, topicID string) string {
	return recordID + "|" + topicID
}

func (s *memRecordStore) Create(ctx context.Context, rec *models.AcademicRecord) error {
	key := recordKey(rec.RecordID, rec.TopicID)
	if _, ok := s.records[key]; ok {
		return storage.ErrDuplicateRecord
	}
	clone := *rec
	s.records[key] = &clone
	return nil
}

func (s *memRecordStore) Get(ctx context.Context, recordID, topicID string) (*models.AcademicRecord, error) {
	rec, ok := s.records[recordKey(recordID, topicID)]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *memRecordStore) Update(ctx context.Context, recordID, topicID string, updates map[string]any) (*models.AcademicRecord, error) {
	rec, ok := s.records[recordKey(recordID, topicID)]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}
	if v, ok := updates["status"].(string); ok {
		rec.Status = v
	}
	if v, ok := updates["teacher_id"].(string); ok {
		rec.TeacherID = v
	}
	if v, ok := updates["teacher_name"].(string); ok {
		rec.TeacherName = v
	}
	if v, ok := updates["subject_name"].(string); ok {
		rec.SubjectName = v
	}
	if v, ok := updates["topic_name"].(string); ok {
		rec.TopicName = v
	}
	if v, ok := updates["notes"].(string); ok {
		rec.Notes = v
	}
	rec.UpdatedAt = time.Now().UTC()
	clone := *rec
	return &clone, nil
}

func (s *memRecordStore) Delete(ctx context.Context, recordID, topicID string) error {
	delete(s.records, recordKey(recordID, topicID))
	return nil
}

func (s *memRecordStore) ListByTeacher(ctx context.Context, teacherID string) ([]*models.AcademicRecord, error) {
	return s.filter(func(r *models.AcademicRecord) bool { return r.TeacherID == teacherID }), nil
}

func (s *memRecordStore) ListBySchool(ctx context.Context, schoolID string) ([]*models.AcademicRecord, error) {
	return s.filter(func(r *models.AcademicRecord) bool { return r.SchoolID == schoolID }), nil
}

func (s *memRecordStore) ListByTopic(ctx context.Context, topicID string) ([]*models.AcademicRecord, error) {
	return s.filter(func(r *models.AcademicRecord) bool { return r.TopicID == topicID }), nil
}

func (s *memRecordStore) ListByClass(ctx context.Context, schoolID, academicYear, grade, section string) ([]*models.AcademicRecord, error) {
	prefix := schoolID + "#" + academicYear + "#" + grade + "#" + section + "#"
	return s.filter(func(r *models.AcademicRecord) bool {
		return strings.HasPrefix(r.RecordID, prefix)
	}), nil
}

func (s *memRecordStore) filter(keep func(*models.AcademicRecord) bool) []*models.AcademicRecord {
	out := []*models.AcademicRecord{}
	for _, rec := range s.records {
		if keep(rec) {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out
}

func testDependencies() (*Dependencies, *memUserStore, *memRecordStore) {
	users := newMemUserStore()
	records := newMemRecordStore()
	deps := &Dependencies{
		Users:       users,
		Records:     records,
		Logs:        logging.NewNoopSink(),
		TokenSecret: []byte("test-secret"),
		logger:      utils.NewLogger("httpapi-test"),
	}
	return deps, users, records
}
