package service

import (
	"context"

	"backend/internal/authctx"
	"backend/internal/repository"
	"backend/pkg/apperror"
	"backend/pkg/pagination"
	"backend/pkg/validation"

	"github.com/google/uuid"
)

// Validator checks create/update payloads. Ordinary bad input comes back as a
// validation.Result, never as a Go error; errors are reserved for
// infrastructure faults (e.g. a uniqueness probe hitting an unreachable store).
type Validator[C any, U any] interface {
	ValidateCreate(ctx context.Context, req C) (validation.Result, error)
	ValidateUpdate(ctx context.Context, id uuid.UUID, req U) (validation.Result, error)
}

// Hooks are the subclass override points of the write pipeline. Nil hooks are
// skipped. BeforeDelete may veto the delete by returning an error.
type Hooks[T any] struct {
	BeforeCreate func(ctx context.Context, entity *T) error
	AfterCreate  func(ctx context.Context, entity *T) error
	BeforeUpdate func(ctx context.Context, entity *T) error
	AfterUpdate  func(ctx context.Context, entity *T) error
	BeforeDelete func(ctx context.Context, entity *T) error
	AfterDelete  func(ctx context.Context, entity *T) error
}

// auditable is satisfied by every entity embedding model.AuditFields
type auditable interface {
	SetCreatedBy(uuid.UUID)
	SetUpdatedBy(uuid.UUID)
}

// CrudService runs the write pipeline shared by every domain service:
// validate → audit stamp → before hook → persist → after hook → DTO.
// Domain services compose it with their validator, entity builder and mapper
// instead of inheriting from it.
type CrudService[T any, C any, U any, D any] struct {
	resource  string
	repo      repository.Repository[T]
	validator Validator[C, U]
	build     func(ctx context.Context, req C) (*T, error)
	apply     func(ctx context.Context, entity *T, req U) error
	toDTO     func(entity *T) D
	hooks     Hooks[T]
}

func NewCrudService[T any, C any, U any, D any](
	resource string,
	repo repository.Repository[T],
	validator Validator[C, U],
	build func(ctx context.Context, req C) (*T, error),
	apply func(ctx context.Context, entity *T, req U) error,
	toDTO func(entity *T) D,
	hooks Hooks[T],
) *CrudService[T, C, U, D] {
	return &CrudService[T, C, U, D]{
		resource:  resource,
		repo:      repo,
		validator: validator,
		build:     build,
		apply:     apply,
		toDTO:     toDTO,
		hooks:     hooks,
	}
}

// authUserOrNil returns the actor as a nullable reference for audit columns
func authUserOrNil(ctx context.Context) (*uuid.UUID, bool) {
	if id, ok := authctx.UserID(ctx); ok {
		return &id, true
	}
	return nil, false
}

// validationError converts a failed validation result into the typed 422 error
func validationError(res validation.Result) error {
	return apperror.NewValidation("validation failed").
		WithContext("fields", res.Messages()).
		WithContext("errors", res.Errors)
}

// stampCreate sets both audit references; absent actor leaves them untouched
func stampCreate[T any](ctx context.Context, entity *T) {
	actor, ok := authctx.UserID(ctx)
	if !ok {
		return
	}
	if a, ok := any(entity).(auditable); ok {
		a.SetCreatedBy(actor)
		a.SetUpdatedBy(actor)
	}
}

// stampUpdate sets only UpdatedBy, CreatedBy stays as written
func stampUpdate[T any](ctx context.Context, entity *T) {
	actor, ok := authctx.UserID(ctx)
	if !ok {
		return
	}
	if a, ok := any(entity).(auditable); ok {
		a.SetUpdatedBy(actor)
	}
}

func (s *CrudService[T, C, U, D]) Create(ctx context.Context, req C) (D, error) {
	var zero D

	res, err := s.validator.ValidateCreate(ctx, req)
	if err != nil {
		return zero, apperror.From(err)
	}
	if !res.Valid() {
		return zero, validationError(res)
	}

	entity, err := s.build(ctx, req)
	if err != nil {
		return zero, apperror.From(err)
	}
	stampCreate(ctx, entity)

	if h := s.hooks.BeforeCreate; h != nil {
		if err := h(ctx, entity); err != nil {
			return zero, apperror.From(err)
		}
	}
	if err := s.repo.Create(ctx, entity); err != nil {
		return zero, apperror.From(err)
	}
	if h := s.hooks.AfterCreate; h != nil {
		if err := h(ctx, entity); err != nil {
			return zero, apperror.From(err)
		}
	}

	return s.toDTO(entity), nil
}

func (s *CrudService[T, C, U, D]) Update(ctx context.Context, id uuid.UUID, req U) (D, error) {
	var zero D

	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return zero, apperror.From(err)
	}
	if entity == nil {
		return zero, apperror.NewNotFound(s.resource, id)
	}

	res, err := s.validator.ValidateUpdate(ctx, id, req)
	if err != nil {
		return zero, apperror.From(err)
	}
	if !res.Valid() {
		return zero, validationError(res)
	}

	if err := s.apply(ctx, entity, req); err != nil {
		return zero, apperror.From(err)
	}
	stampUpdate(ctx, entity)

	if h := s.hooks.BeforeUpdate; h != nil {
		if err := h(ctx, entity); err != nil {
			return zero, apperror.From(err)
		}
	}
	if err := s.repo.Save(ctx, entity); err != nil {
		return zero, apperror.From(err)
	}
	if h := s.hooks.AfterUpdate; h != nil {
		if err := h(ctx, entity); err != nil {
			return zero, apperror.From(err)
		}
	}

	return s.toDTO(entity), nil
}

func (s *CrudService[T, C, U, D]) Delete(ctx context.Context, id uuid.UUID) error {
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return apperror.From(err)
	}
	if entity == nil {
		return apperror.NewNotFound(s.resource, id)
	}

	if h := s.hooks.BeforeDelete; h != nil {
		if err := h(ctx, entity); err != nil {
			return apperror.From(err)
		}
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return apperror.From(err)
	}
	if h := s.hooks.AfterDelete; h != nil {
		if err := h(ctx, entity); err != nil {
			return apperror.From(err)
		}
	}
	return nil
}

// GetByID returns (nil, nil) on a miss; absence is not an error here
func (s *CrudService[T, C, U, D]) GetByID(ctx context.Context, id uuid.UUID) (*D, error) {
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.From(err)
	}
	if entity == nil {
		return nil, nil
	}
	dto := s.toDTO(entity)
	return &dto, nil
}

// GetOrFail returns NotFound on a miss, for handlers that want a 404
func (s *CrudService[T, C, U, D]) GetOrFail(ctx context.Context, id uuid.UUID) (D, error) {
	var zero D
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return zero, apperror.From(err)
	}
	if entity == nil {
		return zero, apperror.NewNotFound(s.resource, id)
	}
	return s.toDTO(entity), nil
}

func (s *CrudService[T, C, U, D]) List(ctx context.Context, opts repository.ListOptions) (pagination.Result[D], error) {
	page, err := s.repo.FindAll(ctx, opts)
	if err != nil {
		return pagination.Result[D]{}, apperror.From(err)
	}

	dtos := make([]D, 0, len(page.Data))
	for i := range page.Data {
		dtos = append(dtos, s.toDTO(&page.Data[i]))
	}
	return pagination.Result[D]{Data: dtos, Pagination: page.Pagination}, nil
}

// Search filters on the repository's text fields via the criteria search key
func (s *CrudService[T, C, U, D]) Search(ctx context.Context, term string, opts repository.ListOptions) (pagination.Result[D], error) {
	if term != "" {
		if opts.Criteria == nil {
			opts.Criteria = repository.Criteria{}
		}
		opts.Criteria[repository.KeySearch] = term
	}
	return s.List(ctx, opts)
}

func (s *CrudService[T, C, U, D]) Count(ctx context.Context, criteria repository.Criteria) (int64, error) {
	total, err := s.repo.Count(ctx, criteria)
	if err != nil {
		return 0, apperror.From(err)
	}
	return total, nil
}

func (s *CrudService[T, C, U, D]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, apperror.From(err)
	}
	return ok, nil
}

// BulkUpdate stamps updated_by (when an actor is present) and applies the
// fields to every listed id; absent ids are skipped, not errors.
func (s *CrudService[T, C, U, D]) BulkUpdate(ctx context.Context, ids []uuid.UUID, fields map[string]any) (int64, error) {
	if actor, ok := authctx.UserID(ctx); ok {
		copied := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			copied[k] = v
		}
		copied["updated_by"] = actor
		fields = copied
	}
	count, err := s.repo.BulkUpdate(ctx, ids, fields)
	if err != nil {
		return 0, apperror.From(err)
	}
	return count, nil
}
