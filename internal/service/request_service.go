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
)

// --- DTOs ---

type CreateRequestRequest struct {
	Subject     string     `json:"subject" binding:"required"`
	Description string     `json:"description"`
	CustomerID  *uuid.UUID `json:"customer_id"`
	Priority    string     `json:"priority"`
}

type UpdateRequestRequest struct {
	Subject     *string    `json:"subject"`
	Description *string    `json:"description"`
	CustomerID  *uuid.UUID `json:"customer_id"`
	Priority    *string    `json:"priority"`
}

type AddRequestNoteRequest struct {
	Body string `json:"body" binding:"required"`
}

type RequestNoteResponse struct {
	ID         uuid.UUID `json:"id"`
	AuthorID   string    `json:"author_id,omitempty"`
	AuthorName string    `json:"author_name,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

type RequestResponse struct {
	ID           uuid.UUID             `json:"id"`
	Subject      string                `json:"subject"`
	Description  string                `json:"description"`
	CustomerID   *uuid.UUID            `json:"customer_id,omitempty"`
	CustomerName string                `json:"customer_name,omitempty"`
	Status       string                `json:"status"`
	Priority     string                `json:"priority"`
	AssignedTo   *uuid.UUID            `json:"assigned_to,omitempty"`
	AssigneeName string                `json:"assignee_name,omitempty"`
	Notes        []RequestNoteResponse `json:"notes,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// RequestListFilter narrows request listings
type RequestListFilter struct {
	Status     string
	Priority   string
	AssignedTo *uuid.UUID
	CustomerID *uuid.UUID
}

// --- Interface ---

type RequestService interface {
	Create(ctx context.Context, req CreateRequestRequest) (RequestResponse, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateRequestRequest) (RequestResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (RequestResponse, error)
	Assign(ctx context.Context, id, assigneeID uuid.UUID) (RequestResponse, error)
	AddNote(ctx context.Context, id uuid.UUID, req AddRequestNoteRequest) (RequestNoteResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (RequestResponse, error)
	List(ctx context.Context, params pagination.Params, filter RequestListFilter) (pagination.Result[RequestResponse], error)
}

// --- Implementation ---

type requestService struct {
	crud          *CrudService[model.Request, CreateRequestRequest, UpdateRequestRequest, RequestResponse]
	repo          repository.RequestRepository
	customerRepo  repository.CustomerRepository
	userRepo      repository.UserRepository
	activity      ActivityService
	notifications NotificationService
}

func NewRequestService(
	repo repository.RequestRepository,
	customerRepo repository.CustomerRepository,
	userRepo repository.UserRepository,
	activity ActivityService,
	notifications NotificationService,
) RequestService {
	s := &requestService{
		repo:          repo,
		customerRepo:  customerRepo,
		userRepo:      userRepo,
		activity:      activity,
		notifications: notifications,
	}
	s.crud = NewCrudService(
		"request",
		repo,
		requestValidator{customerRepo: customerRepo},
		s.buildRequest,
		s.applyRequest,
		toRequestResponse,
		Hooks[model.Request]{},
	)
	return s
}

// --- Validation ---

type requestValidator struct {
	customerRepo repository.CustomerRepository
}

func (v requestValidator) ValidateCreate(ctx context.Context, req CreateRequestRequest) (validation.Result, error) {
	var b validation.Builder
	b.Required("subject", req.Subject)
	if req.Priority != "" && !model.IsRequestPriority(req.Priority) {
		b.Add("priority", "priority must be LOW, MEDIUM or HIGH", "format")
	}
	if req.CustomerID != nil {
		exists, err := v.customerRepo.Exists(ctx, *req.CustomerID)
		if err != nil {
			return validation.Result{}, err
		}
		if !exists {
			b.Add("customer_id", "customer does not exist", "reference")
		}
	}
	return b.Result(), nil
}

func (v requestValidator) ValidateUpdate(ctx context.Context, _ uuid.UUID, req UpdateRequestRequest) (validation.Result, error) {
	var b validation.Builder
	if req.Subject != nil && *req.Subject == "" {
		b.Add("subject", "subject cannot be empty", "required")
	}
	if req.Priority != nil && !model.IsRequestPriority(*req.Priority) {
		b.Add("priority", "priority must be LOW, MEDIUM or HIGH", "format")
	}
	if req.CustomerID != nil {
		exists, err := v.customerRepo.Exists(ctx, *req.CustomerID)
		if err != nil {
			return validation.Result{}, err
		}
		if !exists {
			b.Add("customer_id", "customer does not exist", "reference")
		}
	}
	return b.Result(), nil
}

// --- Pipeline pieces ---

func (s *requestService) buildRequest(_ context.Context, req CreateRequestRequest) (*model.Request, error) {
	priority := req.Priority
	if priority == "" {
		priority = model.RequestPriorityMedium
	}
	return &model.Request{
		Subject:     req.Subject,
		Description: req.Description,
		CustomerID:  req.CustomerID,
		Status:      model.RequestStatusNew,
		Priority:    priority,
	}, nil
}

func (s *requestService) applyRequest(_ context.Context, r *model.Request, req UpdateRequestRequest) error {
	if req.Subject != nil {
		r.Subject = *req.Subject
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.CustomerID != nil {
		r.CustomerID = req.CustomerID
	}
	if req.Priority != nil {
		r.Priority = *req.Priority
	}
	return nil
}

// --- Operations ---

func (s *requestService) Create(ctx context.Context, req CreateRequestRequest) (RequestResponse, error) {
	res, err := s.crud.Create(ctx, req)
	if err != nil {
		return RequestResponse{}, err
	}
	s.activity.Record(ctx, model.ActionCreateRequest, "request", res.ID.String(), res.Subject, nil)
	return res, nil
}

func (s *requestService) Update(ctx context.Context, id uuid.UUID, req UpdateRequestRequest) (RequestResponse, error) {
	res, err := s.crud.Update(ctx, id, req)
	if err != nil {
		return RequestResponse{}, err
	}
	s.activity.Record(ctx, model.ActionUpdateRequest, "request", res.ID.String(), res.Subject, nil)
	return res, nil
}

func (s *requestService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (RequestResponse, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return RequestResponse{}, err
	}
	if r == nil {
		return RequestResponse{}, apperror.NewNotFound("request", id)
	}

	if !model.CanTransitionRequest(r.Status, status) {
		return RequestResponse{}, validationError(validation.Fail(validation.FieldError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", r.Status, status),
			Type:    "transition",
		}))
	}

	previous := r.Status
	r.Status = status
	stampUpdate(ctx, r)
	if err := s.repo.Save(ctx, r); err != nil {
		return RequestResponse{}, err
	}

	s.activity.Record(ctx, model.ActionUpdateRequest, "request", r.ID.String(), r.Subject,
		map[string]any{"from": previous, "to": status})

	if r.AssignedTo != nil {
		if actor, ok := authUserOrNil(ctx); !ok || *actor != *r.AssignedTo {
			s.notifications.Notify(ctx, *r.AssignedTo, model.NotificationTypeRequest,
				"Request "+status,
				fmt.Sprintf("Request %q moved from %s to %s", r.Subject, previous, status))
		}
	}

	return toRequestResponse(r), nil
}

// Assign hands the request to a user and notifies them
func (s *requestService) Assign(ctx context.Context, id, assigneeID uuid.UUID) (RequestResponse, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return RequestResponse{}, err
	}
	if r == nil {
		return RequestResponse{}, apperror.NewNotFound("request", id)
	}

	assignee, err := s.userRepo.FindByID(ctx, assigneeID)
	if err != nil {
		return RequestResponse{}, err
	}
	if assignee == nil {
		return RequestResponse{}, apperror.NewParameter("assignee does not exist")
	}

	r.AssignedTo = &assigneeID
	r.Assignee = assignee
	if r.Status == model.RequestStatusNew {
		r.Status = model.RequestStatusInProgress
	}
	stampUpdate(ctx, r)
	if err := s.repo.Save(ctx, r); err != nil {
		return RequestResponse{}, err
	}

	s.activity.Record(ctx, model.ActionAssignRequest, "request", r.ID.String(), r.Subject,
		map[string]any{"assignee": assigneeID.String()})
	s.notifications.Notify(ctx, assigneeID, model.NotificationTypeRequest,
		"Request assigned to you",
		fmt.Sprintf("Request %q has been assigned to you", r.Subject))

	return toRequestResponse(r), nil
}

func (s *requestService) AddNote(ctx context.Context, id uuid.UUID, req AddRequestNoteRequest) (RequestNoteResponse, error) {
	if req.Body == "" {
		return RequestNoteResponse{}, validationError(validation.Fail(validation.FieldError{
			Field: "body", Message: "body is required", Type: "required",
		}))
	}

	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return RequestNoteResponse{}, err
	}
	if r == nil {
		return RequestNoteResponse{}, apperror.NewNotFound("request", id)
	}

	author, _ := authUserOrNil(ctx)
	note := &model.RequestNote{
		RequestID: id,
		AuthorID:  author,
		Body:      req.Body,
	}
	if err := s.repo.AddNote(ctx, note); err != nil {
		return RequestNoteResponse{}, err
	}

	return toRequestNoteResponse(note), nil
}

func (s *requestService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.crud.Delete(ctx, id); err != nil {
		return err
	}
	s.activity.Record(ctx, model.ActionUpdateRequest, "request", id.String(), "", map[string]any{"deleted": true})
	return nil
}

func (s *requestService) Get(ctx context.Context, id uuid.UUID) (RequestResponse, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return RequestResponse{}, err
	}
	if r == nil {
		return RequestResponse{}, apperror.NewNotFound("request", id)
	}

	res := toRequestResponse(r)
	notes, err := s.repo.ListNotes(ctx, id)
	if err != nil {
		return RequestResponse{}, err
	}
	for i := range notes {
		res.Notes = append(res.Notes, toRequestNoteResponse(&notes[i]))
	}
	return res, nil
}

func (s *requestService) List(ctx context.Context, params pagination.Params, filter RequestListFilter) (pagination.Result[RequestResponse], error) {
	criteria := repository.Criteria{}
	if filter.Status != "" {
		criteria["status"] = filter.Status
	}
	if filter.Priority != "" {
		criteria["priority"] = filter.Priority
	}
	if filter.AssignedTo != nil {
		criteria["assigned_to"] = *filter.AssignedTo
	}
	if filter.CustomerID != nil {
		criteria["customer_id"] = *filter.CustomerID
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

func toRequestResponse(r *model.Request) RequestResponse {
	res := RequestResponse{
		ID:          r.ID,
		Subject:     r.Subject,
		Description: r.Description,
		CustomerID:  r.CustomerID,
		Status:      r.Status,
		Priority:    r.Priority,
		AssignedTo:  r.AssignedTo,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Customer != nil {
		res.CustomerName = r.Customer.Name
	}
	if r.Assignee != nil {
		res.AssigneeName = r.Assignee.Username
	}
	return res
}

func toRequestNoteResponse(n *model.RequestNote) RequestNoteResponse {
	res := RequestNoteResponse{
		ID:        n.ID,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}
	if n.AuthorID != nil {
		res.AuthorID = n.AuthorID.String()
	}
	if n.Author != nil {
		res.AuthorName = n.Author.Username
	}
	return res
}
