package service

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
	"backend/pkg/pagination"
	"backend/pkg/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateAppointmentRequest struct {
	CustomerID      uuid.UUID       `json:"customer_id" binding:"required"`
	Title           string          `json:"title" binding:"required"`
	AppointmentDate time.Time       `json:"appointment_date" binding:"required"`
	Duration        int             `json:"duration"`
	Fee             decimal.Decimal `json:"fee"`
	Notes           string          `json:"notes"`
}

type UpdateAppointmentRequest struct {
	Title           *string          `json:"title"`
	AppointmentDate *time.Time       `json:"appointment_date"`
	Duration        *int             `json:"duration"`
	Fee             *decimal.Decimal `json:"fee"`
	Notes           *string          `json:"notes"`
}

type AppointmentResponse struct {
	ID              uuid.UUID       `json:"id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	CustomerName    string          `json:"customer_name,omitempty"`
	Title           string          `json:"title"`
	AppointmentDate time.Time       `json:"appointment_date"`
	Duration        int             `json:"duration"`
	Fee             decimal.Decimal `json:"fee"`
	Status          string          `json:"status"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AppointmentListFilter narrows appointment listings
type AppointmentListFilter struct {
	Status     string
	CustomerID *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
}

// --- Interface ---

type AppointmentService interface {
	Create(ctx context.Context, req CreateAppointmentRequest) (AppointmentResponse, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateAppointmentRequest) (AppointmentResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (AppointmentResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (AppointmentResponse, error)
	List(ctx context.Context, params pagination.Params, filter AppointmentListFilter) (pagination.Result[AppointmentResponse], error)
}

// --- Implementation ---

type appointmentService struct {
	crud          *CrudService[model.Appointment, CreateAppointmentRequest, UpdateAppointmentRequest, AppointmentResponse]
	repo          repository.AppointmentRepository
	customerRepo  repository.CustomerRepository
	activity      ActivityService
	notifications NotificationService
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	customerRepo repository.CustomerRepository,
	activity ActivityService,
	notifications NotificationService,
) AppointmentService {
	s := &appointmentService{
		repo:          repo,
		customerRepo:  customerRepo,
		activity:      activity,
		notifications: notifications,
	}
	s.crud = NewCrudService(
		"appointment",
		repo,
		appointmentValidator{customerRepo: customerRepo},
		s.buildAppointment,
		s.applyAppointment,
		toAppointmentResponse,
		Hooks[model.Appointment]{},
	)
	return s
}

// --- Validation ---

type appointmentValidator struct {
	customerRepo repository.CustomerRepository
}

func (v appointmentValidator) ValidateCreate(ctx context.Context, req CreateAppointmentRequest) (validation.Result, error) {
	var b validation.Builder
	b.Required("title", req.Title)
	if req.AppointmentDate.IsZero() {
		b.Add("appointment_date", "appointment_date is required", "required")
	}
	if req.Duration < 0 {
		b.Add("duration", "duration must be positive", "range")
	}
	if req.Fee.IsNegative() {
		b.Add("fee", "fee cannot be negative", "range")
	}

	// Reference check may fail for infrastructure reasons; that is an error,
	// not a validation failure.
	exists, err := v.customerRepo.Exists(ctx, req.CustomerID)
	if err != nil {
		return validation.Result{}, err
	}
	if !exists {
		b.Add("customer_id", "customer does not exist", "reference")
	}

	return b.Result(), nil
}

func (v appointmentValidator) ValidateUpdate(_ context.Context, _ uuid.UUID, req UpdateAppointmentRequest) (validation.Result, error) {
	var b validation.Builder
	if req.Title != nil && *req.Title == "" {
		b.Add("title", "title cannot be empty", "required")
	}
	if req.Duration != nil && *req.Duration <= 0 {
		b.Add("duration", "duration must be positive", "range")
	}
	if req.Fee != nil && req.Fee.IsNegative() {
		b.Add("fee", "fee cannot be negative", "range")
	}
	return b.Result(), nil
}

// --- Pipeline pieces ---

func (s *appointmentService) buildAppointment(_ context.Context, req CreateAppointmentRequest) (*model.Appointment, error) {
	duration := req.Duration
	if duration == 0 {
		duration = 30
	}
	return &model.Appointment{
		CustomerID:      req.CustomerID,
		Title:           req.Title,
		AppointmentDate: req.AppointmentDate,
		Duration:        duration,
		Fee:             req.Fee,
		Status:          model.AppointmentStatusScheduled,
		Notes:           req.Notes,
	}, nil
}

func (s *appointmentService) applyAppointment(_ context.Context, appt *model.Appointment, req UpdateAppointmentRequest) error {
	if req.Title != nil {
		appt.Title = *req.Title
	}
	if req.AppointmentDate != nil {
		appt.AppointmentDate = *req.AppointmentDate
	}
	if req.Duration != nil {
		appt.Duration = *req.Duration
	}
	if req.Fee != nil {
		appt.Fee = *req.Fee
	}
	if req.Notes != nil {
		appt.Notes = *req.Notes
	}
	return nil
}

// --- Operations ---

func (s *appointmentService) Create(ctx context.Context, req CreateAppointmentRequest) (AppointmentResponse, error) {
	res, err := s.crud.Create(ctx, req)
	if err != nil {
		return AppointmentResponse{}, err
	}
	s.activity.Record(ctx, model.ActionCreateAppointment, "appointment", res.ID.String(), res.Title, nil)
	return res, nil
}

func (s *appointmentService) Update(ctx context.Context, id uuid.UUID, req UpdateAppointmentRequest) (AppointmentResponse, error) {
	res, err := s.crud.Update(ctx, id, req)
	if err != nil {
		return AppointmentResponse{}, err
	}
	s.activity.Record(ctx, model.ActionUpdateAppointment, "appointment", res.ID.String(), res.Title, nil)
	return res, nil
}

// UpdateStatus moves the appointment along the status graph; transitions not
// in the graph fail with a validation error.
func (s *appointmentService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (AppointmentResponse, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return AppointmentResponse{}, err
	}
	if appt == nil {
		return AppointmentResponse{}, apperror.NewNotFound("appointment", id)
	}

	if !model.IsAppointmentStatus(status) {
		return AppointmentResponse{}, validationError(validation.Fail(validation.FieldError{
			Field: "status", Message: "unknown status " + status, Type: "format",
		}))
	}
	if !model.CanTransitionAppointment(appt.Status, status) {
		return AppointmentResponse{}, validationError(validation.Fail(validation.FieldError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", appt.Status, status),
			Type:    "transition",
		}))
	}

	previous := appt.Status
	appt.Status = status
	stampUpdate(ctx, appt)
	if err := s.repo.Save(ctx, appt); err != nil {
		return AppointmentResponse{}, err
	}

	s.activity.Record(ctx, model.ActionUpdateAppointment, "appointment", appt.ID.String(), appt.Title,
		map[string]any{"from": previous, "to": status})

	// Let the scheduler know their appointment moved, unless they moved it themselves
	if appt.CreatedBy != nil {
		if actor, ok := authUserOrNil(ctx); !ok || *actor != *appt.CreatedBy {
			s.notifications.Notify(ctx, *appt.CreatedBy, model.NotificationTypeAppointment,
				"Appointment "+status,
				fmt.Sprintf("Appointment %q moved from %s to %s", appt.Title, previous, status))
		}
	}

	return toAppointmentResponse(appt), nil
}

func (s *appointmentService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.crud.Delete(ctx, id); err != nil {
		return err
	}
	s.activity.Record(ctx, model.ActionDeleteAppointment, "appointment", id.String(), "", nil)
	return nil
}

func (s *appointmentService) Get(ctx context.Context, id uuid.UUID) (AppointmentResponse, error) {
	return s.crud.GetOrFail(ctx, id)
}

func (s *appointmentService) List(ctx context.Context, params pagination.Params, filter AppointmentListFilter) (pagination.Result[AppointmentResponse], error) {
	criteria := repository.Criteria{}
	if filter.Status != "" {
		criteria["status"] = filter.Status
	}
	if filter.CustomerID != nil {
		criteria["customer_id"] = *filter.CustomerID
	}
	if filter.DateFrom != nil {
		criteria["appointment_date"] = repository.Gte(*filter.DateFrom)
	}
	if filter.DateTo != nil {
		// Both bounds need an AND combinator, a map can't hold the column twice
		if filter.DateFrom != nil {
			delete(criteria, "appointment_date")
			criteria[repository.KeyAnd] = []repository.Criteria{
				{"appointment_date": repository.Gte(*filter.DateFrom)},
				{"appointment_date": repository.Lte(*filter.DateTo)},
			}
		} else {
			criteria["appointment_date"] = repository.Lte(*filter.DateTo)
		}
	}

	return s.crud.Search(ctx, params.Search, repository.ListOptions{
		Page:     params.Page,
		Limit:    params.Limit,
		SortBy:   params.SortBy,
		SortDir:  params.SortDir,
		Criteria: criteria,
	})
}

// --- Response mappers ---

func toAppointmentResponse(a *model.Appointment) AppointmentResponse {
	res := AppointmentResponse{
		ID:              a.ID,
		CustomerID:      a.CustomerID,
		Title:           a.Title,
		AppointmentDate: a.AppointmentDate,
		Duration:        a.Duration,
		Fee:             a.Fee,
		Status:          a.Status,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.Customer != nil {
		res.CustomerName = a.Customer.Name
	}
	return res
}
