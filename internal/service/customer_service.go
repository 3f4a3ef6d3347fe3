package service

import (
	"context"
	"net/mail"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
	"backend/pkg/pagination"
	"backend/pkg/validation"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateCustomerRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type UpdateCustomerRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Company  *string `json:"company"`
	Address  *string `json:"address"`
	Notes    *string `json:"notes"`
	IsActive *bool   `json:"is_active"`
}

type CustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerListFilter narrows customer listings
type CustomerListFilter struct {
	IsActive *bool
}

// --- Interface ---

type CustomerService interface {
	Create(ctx context.Context, req CreateCustomerRequest) (CustomerResponse, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (CustomerResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (CustomerResponse, error)
	List(ctx context.Context, params pagination.Params, filter CustomerListFilter) (pagination.Result[CustomerResponse], error)
}

// --- Implementation ---

type customerService struct {
	crud            *CrudService[model.Customer, CreateCustomerRequest, UpdateCustomerRequest, CustomerResponse]
	appointmentRepo repository.AppointmentRepository
	activity        ActivityService
}

func NewCustomerService(
	repo repository.CustomerRepository,
	appointmentRepo repository.AppointmentRepository,
	activity ActivityService,
) CustomerService {
	s := &customerService{appointmentRepo: appointmentRepo, activity: activity}
	s.crud = NewCrudService(
		"customer",
		repo,
		customerValidator{},
		s.buildCustomer,
		s.applyCustomer,
		toCustomerResponse,
		Hooks[model.Customer]{
			BeforeDelete: s.blockDeleteWithAppointments,
		},
	)
	return s
}

// --- Validation ---

type customerValidator struct{}

func (customerValidator) ValidateCreate(_ context.Context, req CreateCustomerRequest) (validation.Result, error) {
	var b validation.Builder
	b.Required("name", req.Name)
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			b.Add("email", "invalid email format", "format")
		}
	}
	return b.Result(), nil
}

func (customerValidator) ValidateUpdate(_ context.Context, _ uuid.UUID, req UpdateCustomerRequest) (validation.Result, error) {
	var b validation.Builder
	if req.Name != nil && *req.Name == "" {
		b.Add("name", "name cannot be empty", "required")
	}
	if req.Email != nil && *req.Email != "" {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			b.Add("email", "invalid email format", "format")
		}
	}
	return b.Result(), nil
}

// --- Pipeline pieces ---

func (s *customerService) buildCustomer(_ context.Context, req CreateCustomerRequest) (*model.Customer, error) {
	return &model.Customer{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Company:  req.Company,
		Address:  req.Address,
		Notes:    req.Notes,
		IsActive: true,
	}, nil
}

func (s *customerService) applyCustomer(_ context.Context, customer *model.Customer, req UpdateCustomerRequest) error {
	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.Company != nil {
		customer.Company = *req.Company
	}
	if req.Address != nil {
		customer.Address = *req.Address
	}
	if req.Notes != nil {
		customer.Notes = *req.Notes
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}
	return nil
}

// blockDeleteWithAppointments keeps customers with dependent appointments
// from being removed; the delete fails with a 400 and the row stays.
func (s *customerService) blockDeleteWithAppointments(ctx context.Context, customer *model.Customer) error {
	count, err := s.appointmentRepo.Count(ctx, repository.Criteria{"customer_id": customer.ID})
	if err != nil {
		return err
	}
	if count > 0 {
		return apperror.NewParameter("customer has dependent appointments and cannot be deleted").
			WithContext("appointments", count)
	}
	return nil
}

// --- Operations ---

func (s *customerService) Create(ctx context.Context, req CreateCustomerRequest) (CustomerResponse, error) {
	res, err := s.crud.Create(ctx, req)
	if err != nil {
		return CustomerResponse{}, err
	}
	s.activity.Record(ctx, model.ActionCreateCustomer, "customer", res.ID.String(), res.Name, nil)
	return res, nil
}

func (s *customerService) Update(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (CustomerResponse, error) {
	res, err := s.crud.Update(ctx, id, req)
	if err != nil {
		return CustomerResponse{}, err
	}
	s.activity.Record(ctx, model.ActionUpdateCustomer, "customer", res.ID.String(), res.Name, nil)
	return res, nil
}

func (s *customerService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.crud.Delete(ctx, id); err != nil {
		return err
	}
	s.activity.Record(ctx, model.ActionDeleteCustomer, "customer", id.String(), "", nil)
	return nil
}

func (s *customerService) Get(ctx context.Context, id uuid.UUID) (CustomerResponse, error) {
	return s.crud.GetOrFail(ctx, id)
}

func (s *customerService) List(ctx context.Context, params pagination.Params, filter CustomerListFilter) (pagination.Result[CustomerResponse], error) {
	criteria := repository.Criteria{}
	if filter.IsActive != nil {
		criteria["is_active"] = *filter.IsActive
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

func toCustomerResponse(c *model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Address:   c.Address,
		Notes:     c.Notes,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
