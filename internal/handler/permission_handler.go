package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PermissionHandler struct {
	permissionService service.PermissionService
	auth              *middleware.AuthMiddleware
}

func NewPermissionHandler(permissionService service.PermissionService, auth *middleware.AuthMiddleware) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService, auth: auth}
}

func (h *PermissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	permissions := router.Group("/api/permissions")
	permissions.Use(h.auth.Authenticate())
	{
		permissions.GET("", h.auth.RequirePermission(model.PermPermissionsManage), h.ListCatalog)
		permissions.GET("/users/:id", h.auth.RequirePermission(model.PermPermissionsManage), h.GetUserPermissions)
		permissions.PUT("/users/:id", h.auth.RequirePermission(model.PermPermissionsManage), h.UpdateUserPermissions)
	}
}

// ListCatalog returns the full permission catalog grouped by category
// @Summary      List permission catalog
// @Tags         permissions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Envelope
// @Router       /api/permissions [get]
func (h *PermissionHandler) ListCatalog(c *gin.Context) {
	catalog, err := h.permissionService.ListCatalog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, catalog, "Permission catalog retrieved"))
}

// GetUserPermissions returns a user's role defaults, explicit grants and the
// resulting effective set
// @Summary      Get user permissions
// @Tags         permissions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path      string  true  "User ID"
// @Success      200 {object}  response.Envelope
// @Failure      404 {object}  response.Envelope
// @Router       /api/permissions/users/{id} [get]
func (h *PermissionHandler) GetUserPermissions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	perms, err := h.permissionService.GetUserPermissions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms, "User permissions retrieved"))
}

// UpdateUserPermissions replaces a user's explicit grants. Codes already
// implied by the role are ignored; role-default permissions cannot be revoked
// here.
// @Summary      Update user permissions
// @Tags         permissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                                true  "User ID"
// @Param        payload  body  service.UpdateUserPermissionsRequest  true  "Desired permission codes"
// @Success      200  {object}  response.Envelope
// @Failure      404  {object}  response.Envelope
// @Router       /api/permissions/users/{id} [put]
func (h *PermissionHandler) UpdateUserPermissions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.UpdateUserPermissionsRequest
	if !bindJSON(c, &req) {
		return
	}

	perms, err := h.permissionService.UpdateUserPermissions(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms, "User permissions updated"))
}
