package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"learning_assist/internal/models"
	"learning_assist/internal/storage"
	"learning_assist/internal/utils"
)

func invalidStatusMessage() string {
	return fmt.Sprintf("Invalid status. Must be one of: [%s]", strings.Join(models.ValidStatuses, ", "))
}

// handleRecords serves /academic-records: POST creates a record, GET
// dispatches on query parameters (teacher_id, school_id with or without the
// class parameters).
func (deps *Dependencies) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		deps.createRecord(w, r)
	case http.MethodGet:
		deps.queryRecords(w, r)
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (deps *Dependencies) createRecord(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	for _, field := range []string{"school_id", "academic_year", "grade", "section", "subject_id", "topic_id"} {
		if _, ok := body[field]; !ok {
			utils.RespondWithError(w, http.StatusBadRequest, "Missing required field: "+field)
			return
		}
	}

	status := "not_started"
	if s, ok := body["status"].(string); ok {
		status = s
	}
	if !models.IsValidStatus(status) {
		utils.RespondWithError(w, http.StatusBadRequest, invalidStatusMessage())
		return
	}

	schoolID := stringField(body, "school_id")
	academicYear := stringField(body, "academic_year")
	grade := coerceString(body["grade"])
	section := strings.ToUpper(stringField(body, "section"))
	subjectID := stringField(body, "subject_id")

	now := time.Now().UTC()
	rec := &models.AcademicRecord{
		RecordID:     models.ComposeRecordID(schoolID, academicYear, grade, section, subjectID),
		TopicID:      stringField(body, "topic_id"),
		SchoolID:     schoolID,
		AcademicYear: academicYear,
		Grade:        grade,
		Section:      section,
		SubjectID:    subjectID,
		SubjectName:  stringField(body, "subject_name"),
		TopicName:    stringField(body, "topic_name"),
		TeacherID:    stringField(body, "teacher_id"),
		TeacherName:  stringField(body, "teacher_name"),
		ParentPhone:  stringField(body, "parent_phone"),
		Status:       status,
		Notes:        stringField(body, "notes"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := deps.Records.Create(r.Context(), rec); err != nil {
		if errors.Is(err, storage.ErrDuplicateRecord) {
			utils.RespondWithError(w, http.StatusConflict, "Record already exists")
			return
		}
		deps.logger.Error("failed to create record", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create record")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, rec)
}

func (deps *Dependencies) queryRecords(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	switch {
	case params.Has("teacher_id"):
		deps.respondRecordList(w, r, func() ([]*models.AcademicRecord, error) {
			return deps.Records.ListByTeacher(r.Context(), params.Get("teacher_id"))
		})
	case params.Has("school_id"):
		if params.Has("academic_year") && params.Has("grade") && params.Has("section") {
			deps.respondRecordList(w, r, func() ([]*models.AcademicRecord, error) {
				return deps.Records.ListByClass(r.Context(),
					params.Get("school_id"), params.Get("academic_year"),
					params.Get("grade"), params.Get("section"))
			})
			return
		}
		deps.respondRecordList(w, r, func() ([]*models.AcademicRecord, error) {
			return deps.Records.ListBySchool(r.Context(), params.Get("school_id"))
		})
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "Missing query parameter")
	}
}

func (deps *Dependencies) respondRecordList(w http.ResponseWriter, r *http.Request, list func() ([]*models.AcademicRecord, error)) {
	records, err := list()
	if err != nil {
		deps.logger.Error("failed to list records", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list records")
		return
	}
	// Query endpoints return a bare JSON array.
	utils.RespondWithJSON(w, http.StatusOK, records)
}

// handleRecordByID serves /academic-records/{record_id}/{topic_id} with
// GET, PUT and DELETE.
func (deps *Dependencies) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/academic-records/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid path format")
		return
	}
	recordID, topicID := parts[0], parts[1]

	switch r.Method {
	case http.MethodGet:
		rec, err := deps.Records.Get(r.Context(), recordID, topicID)
		if err != nil {
			if errors.Is(err, storage.ErrRecordNotFound) {
				utils.RespondWithError(w, http.StatusNotFound, "Record not found")
				return
			}
			deps.logger.Error("failed to get record", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get record")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, rec)

	case http.MethodPut:
		var updates map[string]any
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
		if status, ok := updates["status"].(string); ok && !models.IsValidStatus(status) {
			utils.RespondWithError(w, http.StatusBadRequest, invalidStatusMessage())
			return
		}

		rec, err := deps.Records.Update(r.Context(), recordID, topicID, updates)
		if err != nil {
			if errors.Is(err, storage.ErrRecordNotFound) {
				utils.RespondWithError(w, http.StatusNotFound, "Record not found")
				return
			}
			deps.logger.Error("failed to update record", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update record")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, rec)

	case http.MethodDelete:
		if err := deps.Records.Delete(r.Context(), recordID, topicID); err != nil {
			deps.logger.Error("failed to delete record", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete record")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Record deleted successfully"})

	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleRecordsByTopic serves GET /records/topic/{topic_id}.
func (deps *Dependencies) handleRecordsByTopic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	topicID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/records/topic/"), "/")
	if topicID == "" || strings.Contains(topicID, "/") {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid path format")
		return
	}

	deps.respondRecordList(w, r, func() ([]*models.AcademicRecord, error) {
		return deps.Records.ListByTopic(r.Context(), topicID)
	})
}

// coerceString renders a JSON value as a string; numbers lose a trailing
// ".0" so grade 6 and "6" produce the same composite key.
func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
