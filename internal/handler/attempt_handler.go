package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/assessio/assessio-backend/internal/model"
	"github.com/assessio/assessio-backend/internal/response"
	"github.com/assessio/assessio-backend/internal/service"
)

// AttemptHandler serves the read side of the attempt ledger: history,
// best score and pass status for students, audit trails for reviewers.
type AttemptHandler struct {
	manager *service.SessionManager
	archive service.AuditArchive
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(manager *service.SessionManager, archive service.AuditArchive) *AttemptHandler {
	return &AttemptHandler{manager: manager, archive: archive}
}

// ListAttempts godoc
// GET /api/v1/student/exams/:exam_id/attempts
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	claims, key, ok := sessionContext(c)
	if !ok {
		return
	}

	attempts, err := h.manager.Attempts(c.Request.Context(), key.ExamID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// BestScore godoc
// GET /api/v1/student/exams/:exam_id/best-score
// Returns the attempt with the highest percentage, or null data when the
// student has none.
func (h *AttemptHandler) BestScore(c *gin.Context) {
	claims, key, ok := sessionContext(c)
	if !ok {
		return
	}

	best, err := h.manager.BestScore(c.Request.Context(), key.ExamID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"best": best})
}

// HasPassed godoc
// GET /api/v1/student/exams/:exam_id/passed
func (h *AttemptHandler) HasPassed(c *gin.Context) {
	claims, key, ok := sessionContext(c)
	if !ok {
		return
	}

	passed, err := h.manager.HasPassed(c.Request.Context(), key.ExamID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"passed": passed})
}

// AuditTrail godoc
// GET /api/v1/admin/exams/:exam_id/students/:student_id/audit
// Returns the archived trail plus the live working log when a session is
// still running. Entries are in observed order within each segment.
func (h *AttemptHandler) AuditTrail(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	archived, err := h.archive.List(c.Request.Context(), examID, studentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if archived == nil {
		archived = []model.AuditEntry{}
	}

	key := model.SessionKey{ExamID: examID, StudentID: studentID}
	live, err := h.manager.AuditTrail(c.Request.Context(), key)
	if err != nil {
		live = nil
	}
	if live == nil {
		live = []model.AuditEntry{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"archived": archived,
		"live":     live,
	})
}

// ListStudentAttempts godoc
// GET /api/v1/admin/exams/:exam_id/students/:student_id/attempts
func (h *AttemptHandler) ListStudentAttempts(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempts, err := h.manager.Attempts(c.Request.Context(), examID, studentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}
