package handler

import (
	"net/http"
	"strconv"
	"time"

	"anoa.com/civicquest/internal/dto"
	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/internal/repository"
	"anoa.com/civicquest/internal/service"
	"anoa.com/civicquest/pkg/apperror"
	"anoa.com/civicquest/pkg/response"
	"anoa.com/civicquest/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProgressionHandler struct {
	rankService        service.RankService
	badgeService       service.BadgeService
	achievementService service.AchievementService
	leaderboardService service.LeaderboardService
	progressionRepo    repository.ProgressionRepository
	userRepo           repository.UserRepository
}

func NewProgressionHandler(
	rankService service.RankService,
	badgeService service.BadgeService,
	achievementService service.AchievementService,
	leaderboardService service.LeaderboardService,
	progressionRepo repository.ProgressionRepository,
	userRepo repository.UserRepository,
) *ProgressionHandler {
	return &ProgressionHandler{
		rankService:        rankService,
		badgeService:       badgeService,
		achievementService: achievementService,
		leaderboardService: leaderboardService,
		progressionRepo:    progressionRepo,
		userRepo:           userRepo,
	}
}

// Status is the combined per-user progression read model: XP, both rank
// tracks, streak counters and duty passes.
func (h *ProgressionHandler) Status(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	state, err := h.progressionRepo.GetOrCreateState(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	status, err := h.rankService.StatusForUser(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ProgressionStatusResponse{
		TotalXP:     state.TotalXP,
		HighestRank: state.HighestRank,
		Rank: dto.RankStatus{
			Rank:      status.Rank,
			Track:     status.Track,
			NextRank:  status.NextRank,
			CurrentXP: status.CurrentXP,
			TargetXP:  status.TargetXP,
			Progress:  status.Progress,
			Position:  status.Position,
		},
		Streak: dto.StreakStatus{
			Current:             state.CurrentStreak,
			Longest:             state.LongestStreak,
			DutyPassesAvailable: state.DutyPassesAvailable,
			LastCompletedDay:    state.LastCompletedQuestDay,
			LastCompletionAt:    state.LastQuestCompletionAt,
		},
	})
}

func (h *ProgressionHandler) RankHistory(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}

	history, err := h.progressionRepo.RankHistoryForUser(c.Request.Context(), userID, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	entries := make([]dto.RankHistoryEntry, 0, len(history))
	for _, row := range history {
		entries = append(entries, dto.RankHistoryEntry{
			Rank:      row.Rank,
			Position:  row.Position,
			XPAtTime:  row.XPAtTime,
			CreatedAt: row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h *ProgressionHandler) Badges(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	badges, err := h.badgeService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": badges})
}

func (h *ProgressionHandler) Achievements(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	achievements, err := h.achievementService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": achievements})
}

func (h *ProgressionHandler) Leaderboard(c *gin.Context) {
	limit := 25
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	entries, err := h.leaderboardService.GetLeaderboard(c.Request.Context(), limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// UpdateTimezone rebinds the user's weekly anchor. The next progression
// touch recomputes the cycle window in the new zone.
func (h *ProgressionHandler) UpdateTimezone(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UpdateTimezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		response.ResponseError(c, apperror.New(http.StatusBadRequest, "invalid timezone", apperror.ErrInvalidInput))
		return
	}

	if err := h.userRepo.UpdateTimezone(c.Request.Context(), userID, req.Timezone); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "timezone updated"})
}

// GrantDutyPasses tops up a user's duty passes. Admin-gated in the
// router; passes have no self-service source.
func (h *ProgressionHandler) GrantDutyPasses(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req dto.GrantDutyPassesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	var remaining int
	err = h.progressionRepo.Mutate(c.Request.Context(), targetID, func(_ repository.TxWriter, state *model.ProgressionState) error {
		state.DutyPassesAvailable += req.Amount
		remaining = state.DutyPassesAvailable
		return nil
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"duty_passes_available": remaining})
}
