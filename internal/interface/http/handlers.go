// Package http implements the REST API for Edulight.
package http

import (
	"github.com/edulight/edulight-backend/config"
	"github.com/edulight/edulight-backend/internal/application/command"
	"github.com/edulight/edulight-backend/internal/application/query"
	"github.com/edulight/edulight-backend/internal/domain/shared"
	"github.com/edulight/edulight-backend/internal/domain/student"
	"github.com/edulight/edulight-backend/pkg/logger"
	"encoding/json"
	"errors"
	"net/http"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Edulight API",
		"version":     "v1",
		"description": "REST API for the Edulight e-learning platform",
		"endpoints": map[string]string{
			"health":    "/health",
			"dashboard": "/api/v1/students/{id}/dashboard",
			"overview":  "/api/v1/courses/{id}/overview",
			"import":    "/api/v1/completions/import",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics handles the metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// statusFromError maps a domain error to an HTTP status and error code.
func statusFromError(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, "already_exists"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, shared.ErrServiceUnavailable) || errors.Is(err, shared.ErrTimeout):
		// Исчерпанные ретраи пересчёта заворачивают конфликт версий,
		// поэтому эта проверка идёт раньше конфликтной.
		return http.StatusServiceUnavailable, "temporarily_unavailable"
	case shared.IsConflict(err):
		return http.StatusConflict, "conflict"
	case errors.Is(err, shared.ErrInvalidState) || errors.Is(err, shared.ErrStateTransition):
		return http.StatusUnprocessableEntity, "invalid_state"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeDomainError logs the error and writes the mapped JSON error response.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFromError(err)

	if status >= 500 {
		s.logger.Error(op+" failed", logger.Err(err), logger.String("request_id", getRequestID(r.Context())))
	} else {
		s.logger.Warn(op+" rejected", logger.Err(err), logger.Int("status", status))
	}

	writeJSONError(w, status, code, err.Error())
}

// decodeBody decodes a JSON request body into dst (1MB limit).
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return false
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT & PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// createStudentRequest is the body for POST /api/v1/students.
type createStudentRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role,omitempty"`
	Password    string `json:"password"`
}

// handleCreateStudent handles POST /api/v1/students
func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	if s.deps.CreateStudentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Student handler not configured")
		return
	}

	var req createStudentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd := command.CreateStudentCommand{
		Email:           req.Email,
		DisplayName:     req.DisplayName,
		Role:            student.Role(req.Role),
		InitialPassword: req.Password,
	}

	created, err := s.deps.CreateStudentHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, "create student", err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleGetDashboard handles GET /api/v1/students/{id}/dashboard
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	// ID в путях - всегда UUID; мусор отбрасываем до похода в базу.
	studentID, err := shared.NewStudentID(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid student ID")
		return
	}

	if s.deps.GetDashboardProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Dashboard handler not configured")
		return
	}

	q := query.GetDashboardProgressQuery{
		StudentID:        studentID.String(),
		IncludeCompleted: !getQueryParamBool(r, "exclude_completed"),
	}

	result, err := s.deps.GetDashboardProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, "get dashboard", err)
		return
	}

	meta := &ResponseMeta{
		TotalCount: len(result.Courses),
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// enrollRequest is the body for POST /api/v1/students/{id}/enrollments.
type enrollRequest struct {
	CourseID string `json:"course_id"`
}

// handleEnroll handles POST /api/v1/students/{id}/enrollments
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	studentID, err := shared.NewStudentID(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid student ID")
		return
	}

	if s.deps.EnrollStudentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enrollment handler not configured")
		return
	}

	var req enrollRequest
	if !decodeBody(w, r, &req) {
		return
	}

	courseID, err := shared.NewCourseID(req.CourseID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid course ID")
		return
	}

	cmd := command.EnrollStudentCommand{
		StudentID:     studentID.String(),
		CourseID:      courseID.String(),
		CorrelationID: getRequestID(r.Context()),
	}

	enrolled, err := s.deps.EnrollStudentHandler.Enroll(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, "enroll student", err)
		return
	}

	writeJSON(w, http.StatusCreated, enrolled)
}

// handleUnenroll handles DELETE /api/v1/students/{id}/enrollments/{courseID}
func (s *Server) handleUnenroll(w http.ResponseWriter, r *http.Request) {
	studentID, err := shared.NewStudentID(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid student ID")
		return
	}
	courseID, err := shared.NewCourseID(r.PathValue("courseID"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid course ID")
		return
	}

	if s.deps.EnrollStudentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enrollment handler not configured")
		return
	}

	cmd := command.EnrollStudentCommand{
		StudentID:     studentID.String(),
		CourseID:      courseID.String(),
		CorrelationID: getRequestID(r.Context()),
	}

	if err := s.deps.EnrollStudentHandler.Unenroll(r.Context(), cmd); err != nil {
		s.writeDomainError(w, r, "unenroll student", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "unenrolled"})
}

// setCompletionRequest is the body for PUT /api/v1/students/{id}/lessons/{lessonID}/completion.
type setCompletionRequest struct {
	Completed        bool `json:"completed"`
	TimeSpentMinutes int  `json:"time_spent_minutes,omitempty"`
}

// handleSetCompletion handles PUT /api/v1/students/{id}/lessons/{lessonID}/completion
func (s *Server) handleSetCompletion(w http.ResponseWriter, r *http.Request) {
	studentID, err := shared.NewStudentID(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid student ID")
		return
	}
	lessonID, err := shared.NewLessonID(r.PathValue("lessonID"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid lesson ID")
		return
	}

	if s.deps.SetCompletionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Completion handler not configured")
		return
	}

	var req setCompletionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd := command.SetCompletionCommand{
		StudentID:        studentID.String(),
		LessonID:         lessonID.String(),
		Completed:        req.Completed,
		TimeSpentMinutes: req.TimeSpentMinutes,
		CorrelationID:    getRequestID(r.Context()),
	}

	result, err := s.deps.SetCompletionHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, "set completion", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetCompletions handles GET /api/v1/students/{id}/courses/{courseID}/completions
func (s *Server) handleGetCompletions(w http.ResponseWriter, r *http.Request) {
	studentID, err := shared.NewStudentID(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid student ID")
		return
	}
	courseID, err := shared.NewCourseID(r.PathValue("courseID"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid course ID")
		return
	}

	if s.deps.GetCompletionsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Completions handler not configured")
		return
	}

	result, err := s.deps.GetCompletionsHandler.Handle(r.Context(), query.GetCompletionsQuery{
		StudentID: studentID.String(),
		CourseID:  courseID.String(),
	})
	if err != nil {
		s.writeDomainError(w, r, "get completions", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// importCompletionsRequest is the body for POST /api/v1/completions/import.
type importCompletionsRequest struct {
	Changes []importCompletionChange `json:"changes"`
}

type importCompletionChange struct {
	StudentID        string `json:"student_id"`
	LessonID         string `json:"lesson_id"`
	Completed        bool   `json:"completed"`
	TimeSpentMinutes int    `json:"time_spent_minutes,omitempty"`
}

// handleImportCompletions handles POST /api/v1/completions/import
func (s *Server) handleImportCompletions(w http.ResponseWriter, r *http.Request) {
	if s.deps.ImportCompletionsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Import handler not configured")
		return
	}

	if s.deps.Features != nil && !s.deps.Features.IsEnabled(config.FeatureBulkImport, nil) {
		writeJSONError(w, http.StatusForbidden, "feature_disabled", "Bulk import is disabled")
		return
	}

	var req importCompletionsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if len(req.Changes) == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "At least one change is required")
		return
	}

	correlationID := getRequestID(r.Context())
	cmd := command.ImportCompletionsCommand{
		Changes:       make([]command.SetCompletionCommand, 0, len(req.Changes)),
		CorrelationID: correlationID,
	}
	for _, c := range req.Changes {
		cmd.Changes = append(cmd.Changes, command.SetCompletionCommand{
			StudentID:        c.StudentID,
			LessonID:         c.LessonID,
			Completed:        c.Completed,
			TimeSpentMinutes: c.TimeSpentMinutes,
			CorrelationID:    correlationID,
		})
	}

	result, err := s.deps.ImportCompletionsHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, "import completions", err)
		return
	}

	// Частичный провал - это всё ещё 200: клиент разбирает счётчики сам.
	meta := &ResponseMeta{
		TotalCount: result.TotalCount,
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// createCourseRequest is the body for POST /api/v1/courses.
type createCourseRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	InstructorID string `json:"instructor_id"`
}

// handleCreateCourse handles POST /api/v1/courses
func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	if s.deps.ManageCatalogHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Catalog handler not configured")
		return
	}

	var req createCourseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd := command.CreateCourseCommand{
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: req.InstructorID,
	}

	course, err := s.deps.ManageCatalogHandler.CreateCourse(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, "create course", err)
		return
	}

	writeJSON(w, http.StatusCreated, course)
}

// handleGetCourseOverview handles GET /api/v1/courses/{id}/overview
func (s *Server) handleGetCourseOverview(w http.ResponseWriter, r *http.Request) {
	courseID, err := shared.NewCourseID(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid course ID")
		return
	}

	if s.deps.GetCourseOverviewHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Overview handler not configured")
		return
	}

	includeStudents := getQueryParamBool(r, "include_students")
	if s.deps.Features != nil && !s.deps.Features.IsEnabled(config.FeatureOverviewStudentBreakdown, nil) {
		includeStudents = false
	}

	q := query.GetCourseOverviewQuery{
		CourseID:        courseID.String(),
		IncludeStudents: includeStudents,
		IncludeLessons:  getQueryParamBool(r, "include_lessons"),
		Students: shared.Pagination{
			Page:     getQueryParamInt(r, "students_page", 1),
			PageSize: getQueryParamInt(r, "students_per_page", 0),
		},
	}

	result, err := s.deps.GetCourseOverviewHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, "get course overview", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// lessonRequest is the body for lesson create and update endpoints.
type lessonRequest struct {
	Title           string `json:"title"`
	Content         string `json:"content,omitempty"`
	Position        int    `json:"position"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	VideoURL        string `json:"video_url,omitempty"`
}

// handleCreateLesson handles POST /api/v1/courses/{id}/lessons
func (s *Server) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")
	if courseID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Course ID is required")
		return
	}

	if s.deps.ManageCatalogHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Catalog handler not configured")
		return
	}

	var req lessonRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd := command.CreateLessonCommand{
		CourseID:        courseID,
		Title:           req.Title,
		Content:         req.Content,
		Position:        req.Position,
		DurationMinutes: req.DurationMinutes,
		VideoURL:        req.VideoURL,
	}

	lesson, err := s.deps.ManageCatalogHandler.CreateLesson(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, "create lesson", err)
		return
	}

	writeJSON(w, http.StatusCreated, lesson)
}

// handleUpdateLesson handles PUT /api/v1/lessons/{id}
func (s *Server) handleUpdateLesson(w http.ResponseWriter, r *http.Request) {
	lessonID := r.PathValue("id")
	if lessonID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Lesson ID is required")
		return
	}

	if s.deps.ManageCatalogHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Catalog handler not configured")
		return
	}

	var req lessonRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd := command.UpdateLessonCommand{
		LessonID:        lessonID,
		Title:           req.Title,
		Content:         req.Content,
		Position:        req.Position,
		DurationMinutes: req.DurationMinutes,
		VideoURL:        req.VideoURL,
	}

	lesson, err := s.deps.ManageCatalogHandler.UpdateLesson(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, "update lesson", err)
		return
	}

	writeJSON(w, http.StatusOK, lesson)
}

// handlePublishLesson handles POST /api/v1/lessons/{id}/publish
func (s *Server) handlePublishLesson(w http.ResponseWriter, r *http.Request) {
	s.handleLessonTransition(w, r, "publish lesson", func(lessonID string) (interface{}, error) {
		return s.deps.ManageCatalogHandler.PublishLesson(r.Context(), lessonID)
	})
}

// handleUnpublishLesson handles POST /api/v1/lessons/{id}/unpublish
func (s *Server) handleUnpublishLesson(w http.ResponseWriter, r *http.Request) {
	s.handleLessonTransition(w, r, "unpublish lesson", func(lessonID string) (interface{}, error) {
		return s.deps.ManageCatalogHandler.UnpublishLesson(r.Context(), lessonID)
	})
}

// handleLessonTransition is the shared implementation for publish/unpublish.
func (s *Server) handleLessonTransition(w http.ResponseWriter, r *http.Request, op string, fn func(lessonID string) (interface{}, error)) {
	lessonID := r.PathValue("id")
	if lessonID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Lesson ID is required")
		return
	}

	if s.deps.ManageCatalogHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Catalog handler not configured")
		return
	}

	lesson, err := fn(lessonID)
	if err != nil {
		s.writeDomainError(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, lesson)
}

// handleDeleteLesson handles DELETE /api/v1/lessons/{id}
func (s *Server) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	lessonID := r.PathValue("id")
	if lessonID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Lesson ID is required")
		return
	}

	if s.deps.ManageCatalogHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Catalog handler not configured")
		return
	}

	if err := s.deps.ManageCatalogHandler.DeleteLesson(r.Context(), lessonID); err != nil {
		s.writeDomainError(w, r, "delete lesson", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
