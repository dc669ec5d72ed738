package handler

import (
	"net/http"

	"anoa.com/civicquest/internal/repository"
	"anoa.com/civicquest/internal/service"
	"anoa.com/civicquest/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContentHandler owns the admin-side catalog mutations that the
// progression rules must tolerate.
type ContentHandler struct {
	contentRepo  repository.ContentRepository
	badgeRepo    repository.BadgeRepository
	badgeService service.BadgeService
}

func NewContentHandler(contentRepo repository.ContentRepository, badgeRepo repository.BadgeRepository, badgeService service.BadgeService) *ContentHandler {
	return &ContentHandler{contentRepo: contentRepo, badgeRepo: badgeRepo, badgeService: badgeService}
}

// DeleteQuiz removes a quiz from the catalog. Child quizzes become
// standalone, badges triggering on the quiz disappear with their
// grants, and milestone denominators shrink on the next check.
func (h *ContentHandler) DeleteQuiz(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quizId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quiz id"})
		return
	}

	if err := h.contentRepo.DeleteQuiz(c.Request.Context(), quizID); err != nil {
		response.ResponseError(c, err)
		return
	}
	// The prerequisite graph may have lost nodes.
	if err := h.badgeService.RebuildIndex(c.Request.Context()); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "quiz deleted"})
}

// DeleteBadge retires a badge. Existing grants cascade away with it and
// milestone denominators shrink, which can retroactively satisfy
// master/legend achievements on the next verification pass.
func (h *ContentHandler) DeleteBadge(c *gin.Context) {
	badgeID, err := uuid.Parse(c.Param("badgeId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid badge id"})
		return
	}

	if err := h.badgeRepo.Delete(c.Request.Context(), badgeID); err != nil {
		response.ResponseError(c, err)
		return
	}
	if err := h.badgeService.RebuildIndex(c.Request.Context()); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "badge deleted"})
}
