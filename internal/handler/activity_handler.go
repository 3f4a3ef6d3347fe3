package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ActivityHandler struct {
	activityService service.ActivityService
	auth            *middleware.AuthMiddleware
}

func NewActivityHandler(activityService service.ActivityService, auth *middleware.AuthMiddleware) *ActivityHandler {
	return &ActivityHandler{activityService: activityService, auth: auth}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	activity := router.Group("/api/activity")
	activity.Use(h.auth.Authenticate())
	{
		activity.GET("", h.auth.RequirePermission(model.PermActivityView), h.ListActivity)
	}
}

// ListActivity returns the paginated activity log, newest first
// @Summary      List activity log
// @Tags         activity
// @Security     BearerAuth
// @Produce      json
// @Param        page        query     int     false  "Page number (default: 1)"
// @Param        limit       query     int     false  "Items per page (default: 10, max: 100)"
// @Param        search      query     string  false  "Search by entity name or action"
// @Param        action      query     string  false  "Filter by action"
// @Param        entityType  query     string  false  "Filter by entity type"
// @Param        userId      query     string  false  "Filter by acting user"
// @Success      200         {object}  response.Envelope
// @Router       /api/activity [get]
func (h *ActivityHandler) ListActivity(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.ActivityFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entityType"),
	}
	if v := c.Query("userId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.UserID = &id
		}
	}

	page, err := h.activityService.List(c.Request.Context(), params, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, page, "Activity log retrieved"))
}
