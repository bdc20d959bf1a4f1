package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edulight/edulight-backend/internal/domain/shared"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			err:        shared.ErrStudentNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "wrapped not found",
			err:        shared.WrapError("catalog", "FindLesson", shared.ErrLessonNotFound, "lesson not found", nil),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "already exists",
			err:        shared.ErrStudentAlreadyExists,
			wantStatus: http.StatusConflict,
			wantCode:   "already_exists",
		},
		{
			name:       "validation",
			err:        shared.WrapError("query", "GetDashboardProgress", shared.ErrValidation, "student_id is required", nil),
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_failed",
		},
		{
			name:       "optimistic lock",
			err:        shared.ErrOptimisticLock,
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
		{
			name:       "retries exhausted",
			err:        shared.WrapError("progress", "Recompute", shared.ErrServiceUnavailable, "summary upsert retries exhausted", shared.ErrOptimisticLock),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "temporarily_unavailable",
		},
		{
			name:       "invalid state",
			err:        shared.ErrInvalidState,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalid_state",
		},
		{
			name:       "wrapped storage failure",
			err:        shared.WrapError("query", "GetDashboardProgress", shared.ErrInternal, "failed to load enrollments", errors.New("connection reset")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusFromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
