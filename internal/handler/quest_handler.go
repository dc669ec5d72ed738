package handler

import (
	"net/http"
	"time"

	"anoa.com/civicquest/internal/dto"
	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/internal/repository"
	"anoa.com/civicquest/internal/service"
	"anoa.com/civicquest/pkg/response"
	"anoa.com/civicquest/pkg/validator"
	"anoa.com/civicquest/pkg/week"
	"github.com/gin-gonic/gin"
)

type QuestHandler struct {
	questService service.QuestAccessService
	resetService service.WeeklyResetService
	weeklyRepo   repository.WeeklyRepository
}

func NewQuestHandler(questService service.QuestAccessService, resetService service.WeeklyResetService, weeklyRepo repository.WeeklyRepository) *QuestHandler {
	return &QuestHandler{questService: questService, resetService: resetService, weeklyRepo: weeklyRepo}
}

// Availability returns the weekly map: one decision per quest day plus
// cycle counters.
func (h *QuestHandler) Availability(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	now := time.Now()
	cycle, err := h.resetService.EnsureCurrentCycle(c.Request.Context(), userID, now)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	decisions, err := h.questService.AvailabilityMap(c.Request.Context(), userID, now)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	rows, err := h.weeklyRepo.QuestRows(c.Request.Context(), userID, cycle.WeekStart)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	livesByDay := make(map[string]int, len(rows))
	for _, row := range rows {
		livesByDay[row.Day] = row.LivesRemaining
	}

	resp := dto.WeeklyAvailabilityResponse{
		WeekStart:       cycle.WeekStart,
		QuestsCompleted: cycle.QuestsCompleted,
	}
	for _, day := range week.QuestDays {
		decision := decisions[day]
		resp.Days = append(resp.Days, dto.QuestDayStatus{
			Day:            string(day),
			GameType:       model.GameForDay[string(day)],
			Reason:         decision.Reason,
			LivesRemaining: livesByDay[string(day)],
			NeedsException: decision.NeedsException,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *QuestHandler) CanAccess(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	day := week.Day(c.Param("day"))
	if !day.IsQuestDay() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a quest day"})
		return
	}

	decision, err := h.questService.CanAccess(c.Request.Context(), userID, day, time.Now())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

func (h *QuestHandler) SpendDutyPass(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.SpendDutyPassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.questService.SpendDutyPass(c.Request.Context(), userID, week.Day(req.Day), time.Now())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome != service.PassSpent {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

func (h *QuestHandler) CompleteQuestDay(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.QuestDayCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	result, err := h.questService.CompleteQuestDay(c.Request.Context(), userID, week.Day(req.Day), req.Score, time.Now())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if !result.Decision.Allowed {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
