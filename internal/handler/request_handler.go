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

type RequestHandler struct {
	requestService service.RequestService
	auth           *middleware.AuthMiddleware
}

func NewRequestHandler(requestService service.RequestService, auth *middleware.AuthMiddleware) *RequestHandler {
	return &RequestHandler{requestService: requestService, auth: auth}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	requests.Use(h.auth.Authenticate())
	{
		requests.GET("", h.auth.RequirePermission(model.PermRequestsView), h.ListRequests)
		requests.GET("/:id", h.auth.RequirePermission(model.PermRequestsView), h.GetRequest)
		requests.POST("", h.auth.RequirePermission(model.PermRequestsEdit), h.CreateRequest)
		requests.PUT("/:id", h.auth.RequirePermission(model.PermRequestsEdit), h.UpdateRequest)
		requests.PATCH("/:id/status", h.auth.RequirePermission(model.PermRequestsEdit), h.UpdateRequestStatus)
		requests.PATCH("/:id/assign", h.auth.RequirePermission(model.PermRequestsEdit), h.AssignRequest)
		requests.POST("/:id/notes", h.auth.RequirePermission(model.PermRequestsEdit), h.AddRequestNote)
		requests.DELETE("/:id", h.auth.RequirePermission(model.PermRequestsEdit), h.DeleteRequest)
	}
}

type updateRequestStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type assignRequestRequest struct {
	AssigneeID uuid.UUID `json:"assignee_id" binding:"required"`
}

// ListRequests returns paginated requests with optional filters
// @Summary      List requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        page        query     int     false  "Page number (default: 1)"
// @Param        limit       query     int     false  "Items per page (default: 10, max: 100)"
// @Param        search      query     string  false  "Search by subject or description"
// @Param        status      query     string  false  "Filter by status: NEW, IN_PROGRESS, RESOLVED, CLOSED"
// @Param        priority    query     string  false  "Filter by priority: LOW, MEDIUM, HIGH"
// @Param        assignedTo  query     string  false  "Filter by assignee"
// @Param        customerId  query     string  false  "Filter by customer"
// @Success      200         {object}  response.Envelope
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.RequestListFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
	}
	if v := c.Query("assignedTo"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.AssignedTo = &id
		}
	}
	if v := c.Query("customerId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.CustomerID = &id
		}
	}

	page, err := h.requestService.List(c.Request.Context(), params, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, page, "Requests retrieved"))
}

// GetRequest returns a single request including its notes
// @Summary      Get request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id  path      string  true  "Request ID"
// @Success      200 {object}  response.Envelope
// @Failure      404 {object}  response.Envelope
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	req, err := h.requestService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req, "Request retrieved"))
}

// CreateRequest records a new request or lead
// @Summary      Create request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateRequestRequest  true  "Request payload"
// @Success      201  {object}  response.Envelope
// @Failure      422  {object}  response.Envelope
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.requestService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created, "Request created"))
}

// UpdateRequest updates request details (not its status or assignee)
// @Summary      Update request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                        true  "Request ID"
// @Param        payload  body  service.UpdateRequestRequest  true  "Update payload"
// @Success      200  {object}  response.Envelope
// @Failure      404  {object}  response.Envelope
// @Router       /api/requests/{id} [put]
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.UpdateRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.requestService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated, "Request updated"))
}

// UpdateRequestStatus transitions the request along its lifecycle
// @Summary      Update request status
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string  true  "Request ID"
// @Param        payload  body  updateRequestStatusRequest  true  "New status"
// @Success      200  {object}  response.Envelope
// @Failure      422  {object}  response.Envelope
// @Router       /api/requests/{id}/status [patch]
func (h *RequestHandler) UpdateRequestStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateRequestStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.requestService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated, "Request status updated"))
}

// AssignRequest hands the request to a user and notifies them
// @Summary      Assign request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                true  "Request ID"
// @Param        payload  body  assignRequestRequest  true  "Assignee"
// @Success      200  {object}  response.Envelope
// @Failure      400  {object}  response.Envelope
// @Router       /api/requests/{id}/assign [patch]
func (h *RequestHandler) AssignRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req assignRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.requestService.Assign(c.Request.Context(), id, req.AssigneeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated, "Request assigned"))
}

// AddRequestNote appends a note to the request timeline
// @Summary      Add request note
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true  "Request ID"
// @Param        payload  body  service.AddRequestNoteRequest  true  "Note body"
// @Success      201  {object}  response.Envelope
// @Failure      404  {object}  response.Envelope
// @Router       /api/requests/{id}/notes [post]
func (h *RequestHandler) AddRequestNote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.AddRequestNoteRequest
	if !bindJSON(c, &req) {
		return
	}

	note, err := h.requestService.AddNote(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, note, "Note added"))
}

// DeleteRequest soft-deletes a request
// @Summary      Delete request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id  path      string  true  "Request ID"
// @Success      200 {object}  response.Envelope
// @Failure      404 {object}  response.Envelope
// @Router       /api/requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.requestService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil, "Request deleted"))
}
