package handler

import (
	"net/http"

	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parseID reads and validates the :id path parameter
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid id: must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps a service error to its envelope via the error taxonomy
func respondError(c *gin.Context, err error) {
	status, env := response.FromError(err)
	c.JSON(status, env)
}

// bindJSON binds the payload or writes the 400 envelope itself
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return false
	}
	return true
}
