package handler

import (
	"net/http"
	"time"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AppointmentHandler struct {
	appointmentService service.AppointmentService
	auth               *middleware.AuthMiddleware
}

func NewAppointmentHandler(appointmentService service.AppointmentService, auth *middleware.AuthMiddleware) *AppointmentHandler {
	return &AppointmentHandler{appointmentService: appointmentService, auth: auth}
}

func (h *AppointmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	appointments := router.Group("/api/appointments")
	appointments.Use(h.auth.Authenticate())
	{
		appointments.GET("", h.auth.RequirePermission(model.PermAppointmentsView), h.ListAppointments)
		appointments.GET("/:id", h.auth.RequirePermission(model.PermAppointmentsView), h.GetAppointment)
		appointments.POST("", h.auth.RequirePermission(model.PermAppointmentsEdit), h.CreateAppointment)
		appointments.PUT("/:id", h.auth.RequirePermission(model.PermAppointmentsEdit), h.UpdateAppointment)
		appointments.PATCH("/:id/status", h.auth.RequirePermission(model.PermAppointmentsEdit), h.UpdateAppointmentStatus)
		appointments.DELETE("/:id", h.auth.RequirePermission(model.PermAppointmentsEdit), h.DeleteAppointment)
	}
}

type updateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListAppointments returns paginated appointments with optional filters
// @Summary      List appointments
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        page        query     int     false  "Page number (default: 1)"
// @Param        limit       query     int     false  "Items per page (default: 10, max: 100)"
// @Param        search      query     string  false  "Search by title or notes"
// @Param        status      query     string  false  "Filter by status"
// @Param        customerId  query     string  false  "Filter by customer"
// @Param        dateFrom    query     string  false  "Start of date range (RFC3339)"
// @Param        dateTo      query     string  false  "End of date range (RFC3339)"
// @Success      200         {object}  response.Envelope
// @Router       /api/appointments [get]
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.AppointmentListFilter{Status: c.Query("status")}
	if v := c.Query("customerId"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.CustomerID = &id
		}
	}
	if v := c.Query("dateFrom"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateFrom = &t
		}
	}
	if v := c.Query("dateTo"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateTo = &t
		}
	}

	page, err := h.appointmentService.List(c.Request.Context(), params, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, page, "Appointments retrieved"))
}

// GetAppointment returns a single appointment
// @Summary      Get appointment
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        id  path      string  true  "Appointment ID"
// @Success      200 {object}  response.Envelope
// @Failure      404 {object}  response.Envelope
// @Router       /api/appointments/{id} [get]
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	appt, err := h.appointmentService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, appt, "Appointment retrieved"))
}

// CreateAppointment schedules a new appointment
// @Summary      Create appointment
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateAppointmentRequest  true  "Appointment payload"
// @Success      201  {object}  response.Envelope
// @Failure      422  {object}  response.Envelope
// @Router       /api/appointments [post]
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req service.CreateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	appt, err := h.appointmentService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, appt, "Appointment created"))
}

// UpdateAppointment updates appointment details (not its status)
// @Summary      Update appointment
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                            true  "Appointment ID"
// @Param        payload  body  service.UpdateAppointmentRequest  true  "Update payload"
// @Success      200  {object}  response.Envelope
// @Failure      404  {object}  response.Envelope
// @Router       /api/appointments/{id} [put]
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.UpdateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	appt, err := h.appointmentService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, appt, "Appointment updated"))
}

// UpdateAppointmentStatus transitions the appointment along the status graph
// @Summary      Update appointment status
// @Tags         appointments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string  true  "Appointment ID"
// @Param        payload  body  updateAppointmentStatusRequest  true  "New status"
// @Success      200  {object}  response.Envelope
// @Failure      422  {object}  response.Envelope
// @Router       /api/appointments/{id}/status [patch]
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateAppointmentStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	appt, err := h.appointmentService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, appt, "Appointment status updated"))
}

// DeleteAppointment soft-deletes an appointment
// @Summary      Delete appointment
// @Tags         appointments
// @Security     BearerAuth
// @Produce      json
// @Param        id  path      string  true  "Appointment ID"
// @Success      200 {object}  response.Envelope
// @Failure      404 {object}  response.Envelope
// @Router       /api/appointments/{id} [delete]
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.appointmentService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil, "Appointment deleted"))
}
