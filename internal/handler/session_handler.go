package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/assessio/assessio-backend/internal/middleware"
	"github.com/assessio/assessio-backend/internal/model"
	"github.com/assessio/assessio-backend/internal/response"
	"github.com/assessio/assessio-backend/internal/service"
	"github.com/assessio/assessio-backend/internal/validator"
)

// SessionHandler handles the exam session lifecycle endpoints.
type SessionHandler struct {
	manager *service.SessionManager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *service.SessionManager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// sessionContext extracts the claims and exam id shared by every endpoint.
func sessionContext(c *gin.Context) (*middleware.Claims, model.SessionKey, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, model.SessionKey{}, false
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, model.SessionKey{}, false
	}

	return claims, model.SessionKey{ExamID: examID, StudentID: claims.UserID}, true
}

// failSession maps session lifecycle errors onto API error codes.
func failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAttemptsExhausted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptsExhausted)
	case errors.Is(err, service.ErrSessionAlreadyActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionAlreadyActive)
	case errors.Is(err, service.ErrSessionNotActive):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotActive)
	case errors.Is(err, service.ErrSessionPaused):
		response.Fail(c, http.StatusConflict, response.ErrSessionPaused)
	case errors.Is(err, service.ErrSubmittedTooEarly):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrSubmittedTooEarly)
	case errors.Is(err, service.ErrPauseDisabled):
		response.Fail(c, http.StatusForbidden, response.ErrPauseDisabled)
	case errors.Is(err, service.ErrPersistenceFailure):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrPersistenceFailure)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Start godoc
// POST /api/v1/student/exams/:exam_id/start
// Creates a session with a fixed wall-clock deadline.
func (h *SessionHandler) Start(c *gin.Context) {
	claims, key, ok := sessionContext(c)
	if !ok {
		return
	}

	meta := service.ClientMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	sess, err := h.manager.Start(c.Request.Context(), key.ExamID, claims.UserID, claims.Name, meta)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session":           sess,
		"remaining_seconds": int(sess.Remaining(sess.StartedAt).Seconds()),
	})
}

// GetSession godoc
// GET /api/v1/student/exams/:exam_id/session
// Returns the live session with derived remaining time and the question
// under the pointer. Reconnecting clients rebuild their state from this.
func (h *SessionHandler) GetSession(c *gin.Context) {
	_, key, ok := sessionContext(c)
	if !ok {
		return
	}

	sess, err := h.manager.ActiveSession(c.Request.Context(), key)
	if err != nil {
		failSession(c, err)
		return
	}

	remaining, err := h.manager.RemainingTime(c.Request.Context(), key)
	if err != nil {
		failSession(c, err)
		return
	}

	question, err := h.manager.CurrentQuestion(c.Request.Context(), key)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session":           sess,
		"remaining_seconds": int(remaining.Seconds()),
		"question":          question,
	})
}

// SaveAnswer godoc
// PUT /api/v1/student/exams/:exam_id/answer
// Records one answer; the latest write for a question wins.
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	_, key, ok := sessionContext(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	answer := model.Answer{Value: req.Value, Values: req.Values}
	if err := h.manager.Answer(c.Request.Context(), key, questionID, answer); err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// Navigate godoc
// POST /api/v1/student/exams/:exam_id/navigate
// Moves the question pointer to an index; out-of-range values are clamped.
func (h *SessionHandler) Navigate(c *gin.Context) {
	_, key, ok := sessionContext(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.manager.Navigate(c.Request.Context(), key, *req.Index); err != nil {
		failSession(c, err)
		return
	}

	h.respondWithQuestion(c, key)
}

// Next godoc
// POST /api/v1/student/exams/:exam_id/next
func (h *SessionHandler) Next(c *gin.Context) {
	_, key, ok := sessionContext(c)
	if !ok {
		return
	}

	if err := h.manager.Next(c.Request.Context(), key); err != nil {
		failSession(c, err)
		return
	}

	h.respondWithQuestion(c, key)
}

// Previous godoc
// POST /api/v1/student/exams/:exam_id/previous
func (h *SessionHandler) Previous(c *gin.Context) {
	_, key, ok := sessionContext(c)
	if !ok {
		return
	}

	if err := h.manager.Previous(c.Request.Context(), key); err != nil {
		failSession(c, err)
		return
	}

	h.respondWithQuestion(c, key)
}

func (h *SessionHandler) respondWithQuestion(c *gin.Context, key model.SessionKey) {
	question, err := h.manager.CurrentQuestion(c.Request.Context(), key)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// Submit godoc
// POST /api/v1/student/exams/:exam_id/submit
// Finalizes the session into an attempt. Safe to retry: a submit that
// races the auto-submit timer returns the attempt already recorded.
func (h *SessionHandler) Submit(c *gin.Context) {
	_, key, ok := sessionContext(c)
	if !ok {
		return
	}

	attempt, err := h.manager.Submit(c.Request.Context(), key)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// Abandon godoc
// POST /api/v1/student/exams/:exam_id/abandon
// Ends the session without scoring; no attempt slot is consumed.
func (h *SessionHandler) Abandon(c *gin.Context) {
	_, key, ok := sessionContext(c)
	if !ok {
		return
	}

	if err := h.manager.Abandon(c.Request.Context(), key); err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"abandoned": true})
}

// Pause godoc
// POST /api/v1/student/exams/:exam_id/pause
func (h *SessionHandler) Pause(c *gin.Context) {
	_, key, ok := sessionContext(c)
	if !ok {
		return
	}

	if err := h.manager.Pause(c.Request.Context(), key); err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paused": true})
}

// Resume godoc
// POST /api/v1/student/exams/:exam_id/resume
// The deadline is extended by exactly the paused duration.
func (h *SessionHandler) Resume(c *gin.Context) {
	_, key, ok := sessionContext(c)
	if !ok {
		return
	}

	if err := h.manager.Resume(c.Request.Context(), key); err != nil {
		failSession(c, err)
		return
	}

	remaining, err := h.manager.RemainingTime(c.Request.Context(), key)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"resumed":           true,
		"remaining_seconds": int(remaining.Seconds()),
	})
}
