package handler

import (
	"net/http"
	"time"

	"anoa.com/civicquest/internal/dto"
	"anoa.com/civicquest/internal/service"
	"anoa.com/civicquest/pkg/response"
	"anoa.com/civicquest/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Cooldown absorbing double-submits from the content surfaces.
const defaultEventCooldown = 2 * time.Second

// EventHandler receives the inbound progression events.
type EventHandler struct {
	xp        service.XPOrchestrator
	rateLimit service.RateLimitStore
	cooldown  time.Duration
}

func NewEventHandler(xp service.XPOrchestrator, rateLimit service.RateLimitStore, cooldown time.Duration) *EventHandler {
	if cooldown <= 0 {
		cooldown = defaultEventCooldown
	}
	return &EventHandler{xp: xp, rateLimit: rateLimit, cooldown: cooldown}
}

func (h *EventHandler) LessonCompleted(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.LessonCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	lessonID, err := uuid.Parse(req.LessonID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
		return
	}

	allowed, err := service.CheckAndSetRateLimit(c.Request.Context(), h.rateLimit, userID, "lesson:"+req.LessonID, h.cooldown)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "duplicate submission, slow down"})
		return
	}

	result, err := h.xp.CompleteLesson(c.Request.Context(), userID, lessonID)
	if err != nil {
		// A failed submission should not burn the cooldown.
		_ = service.ClearRateLimit(c.Request.Context(), h.rateLimit, userID, "lesson:"+req.LessonID)
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *EventHandler) QuizCompleted(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.QuizCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	quizID, err := uuid.Parse(req.QuizID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quiz id"})
		return
	}
	if req.RawScore > req.TotalQuestions {
		c.JSON(http.StatusBadRequest, gin.H{"error": "raw score cannot exceed total questions"})
		return
	}

	allowed, err := service.CheckAndSetRateLimit(c.Request.Context(), h.rateLimit, userID, "quiz:"+req.QuizID, h.cooldown)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "duplicate submission, slow down"})
		return
	}

	result, err := h.xp.CompleteQuiz(c.Request.Context(), userID, quizID, req.RawScore, req.TotalQuestions)
	if err != nil {
		_ = service.ClearRateLimit(c.Request.Context(), h.rateLimit, userID, "quiz:"+req.QuizID)
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AwardXP is the generic XP event for sources without dedicated
// handling. Admin-gated in the router.
func (h *EventHandler) AwardXP(c *gin.Context) {
	targetIDStr := c.Param("userId")
	targetID, err := uuid.Parse(targetIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req dto.XPAwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.xp.Award(c.Request.Context(), targetID, req.Amount, req.SourceTag, "", ""); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "xp awarded"})
}
