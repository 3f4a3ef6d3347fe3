package repository

import (
	"context"
	"errors"

	"backend/pkg/apperror"
	"backend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListOptions controls pagination, sorting and filtering for FindAll
type ListOptions struct {
	Page     int
	Limit    int
	SortBy   string
	SortDir  string // asc | desc
	Criteria Criteria
	Preloads []string
}

// Repository is the generic data-access contract over a single entity type.
// Absence is representable: FindByID returns (nil, nil) on a miss. Store
// faults surface as Database errors, never as raw gorm errors.
type Repository[T any] interface {
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	FindAll(ctx context.Context, opts ListOptions) (pagination.Result[T], error)
	FindByCriteria(ctx context.Context, criteria Criteria) ([]T, error)
	FindOneByCriteria(ctx context.Context, criteria Criteria) (*T, error)
	Count(ctx context.Context, criteria Criteria) (int64, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByCriteria(ctx context.Context, criteria Criteria) (bool, error)
	Create(ctx context.Context, entity *T) error
	Save(ctx context.Context, entity *T) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*T, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	BulkUpdate(ctx context.Context, ids []uuid.UUID, fields map[string]any) (int64, error)
}

// Config tunes a GormRepository for one entity
type Config struct {
	Table        string            // table name for error context
	SearchFields []string          // columns the "search" criteria key expands over
	SortFields   map[string]string // exposed sort key -> ORDER BY column/fragment
	SortJoins    map[string]string // sort key -> relation that must be joined
	DefaultSort  string            // ORDER BY fallback, e.g. "created_at DESC"
	Preloads     []string          // relations loaded on every read
}

// GormRepository is the GORM-backed Repository implementation. All methods
// bind to the context transaction when one is present (see TransactionManager).
type GormRepository[T any] struct {
	db  *gorm.DB
	cfg Config
}

func NewGormRepository[T any](db *gorm.DB, cfg Config) *GormRepository[T] {
	if cfg.DefaultSort == "" {
		cfg.DefaultSort = "created_at DESC"
	}
	return &GormRepository[T]{db: db, cfg: cfg}
}

func (r *GormRepository[T]) wrap(op string, err error) error {
	return wrapDB(op, r.cfg.Table, err)
}

// wrapDB converts a store fault into the typed Database error every caller expects
func wrapDB(op, table string, err error) error {
	return apperror.NewDatabase(op, table, err)
}

func (r *GormRepository[T]) applyCriteria(db *gorm.DB, criteria Criteria) (*gorm.DB, error) {
	clauses, err := compileCriteria(criteria, r.cfg.SearchFields)
	if err != nil {
		return nil, apperror.NewParameter(err.Error())
	}
	for _, cl := range clauses {
		db = db.Where(cl.expr, cl.args...)
	}
	return db, nil
}

func (r *GormRepository[T]) applyPreloads(db *gorm.DB, extra []string) *gorm.DB {
	for _, rel := range r.cfg.Preloads {
		db = db.Preload(rel)
	}
	for _, rel := range extra {
		db = db.Preload(rel)
	}
	return db
}

// orderClause resolves a caller-supplied sort key. Unknown keys fall back to
// the repository default instead of reaching the store.
func (r *GormRepository[T]) orderClause(db *gorm.DB, sortBy, sortDir string) *gorm.DB {
	if sortBy == "" {
		return db.Order(r.cfg.DefaultSort)
	}
	column, ok := r.cfg.SortFields[sortBy]
	if !ok {
		return db.Order(r.cfg.DefaultSort)
	}
	if rel, needsJoin := r.cfg.SortJoins[sortBy]; needsJoin {
		db = db.Joins(rel)
	}
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	return db.Order(column + " " + dir)
}

func (r *GormRepository[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	db := r.applyPreloads(GetDB(ctx, r.db), nil)
	if err := db.First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.wrap("findById", err)
	}
	return &entity, nil
}

func (r *GormRepository[T]) FindAll(ctx context.Context, opts ListOptions) (pagination.Result[T], error) {
	var zero pagination.Result[T]

	if opts.Page < 1 {
		opts.Page = pagination.DefaultPage
	}
	if opts.Limit < pagination.MinLimit {
		opts.Limit = pagination.DefaultLimit
	}
	if opts.Limit > pagination.MaxLimit {
		opts.Limit = pagination.MaxLimit
	}

	var entity T
	base := GetDB(ctx, r.db).Model(&entity)
	base, err := r.applyCriteria(base, opts.Criteria)
	if err != nil {
		return zero, err
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return zero, r.wrap("count", err)
	}

	query := r.applyPreloads(base.Session(&gorm.Session{}), opts.Preloads)
	query = r.orderClause(query, opts.SortBy, opts.SortDir)

	var entities []T
	offset := (opts.Page - 1) * opts.Limit
	if err := query.Offset(offset).Limit(opts.Limit).Find(&entities).Error; err != nil {
		return zero, r.wrap("findAll", err)
	}

	return pagination.NewResult(entities, opts.Page, opts.Limit, total), nil
}

func (r *GormRepository[T]) FindByCriteria(ctx context.Context, criteria Criteria) ([]T, error) {
	db, err := r.applyCriteria(GetDB(ctx, r.db), criteria)
	if err != nil {
		return nil, err
	}
	db = r.applyPreloads(db, nil).Order(r.cfg.DefaultSort)

	var entities []T
	if err := db.Find(&entities).Error; err != nil {
		return nil, r.wrap("findByCriteria", err)
	}
	return entities, nil
}

func (r *GormRepository[T]) FindOneByCriteria(ctx context.Context, criteria Criteria) (*T, error) {
	db, err := r.applyCriteria(GetDB(ctx, r.db), criteria)
	if err != nil {
		return nil, err
	}
	db = r.applyPreloads(db, nil)

	var entity T
	if err := db.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.wrap("findOneByCriteria", err)
	}
	return &entity, nil
}

func (r *GormRepository[T]) Count(ctx context.Context, criteria Criteria) (int64, error) {
	var entity T
	db, err := r.applyCriteria(GetDB(ctx, r.db).Model(&entity), criteria)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return 0, r.wrap("count", err)
	}
	return total, nil
}

func (r *GormRepository[T]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.ExistsByCriteria(ctx, Criteria{"id": id})
}

func (r *GormRepository[T]) ExistsByCriteria(ctx context.Context, criteria Criteria) (bool, error) {
	total, err := r.Count(ctx, criteria)
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

func (r *GormRepository[T]) Create(ctx context.Context, entity *T) error {
	if err := GetDB(ctx, r.db).Create(entity).Error; err != nil {
		return r.wrap("create", err)
	}
	return nil
}

func (r *GormRepository[T]) Save(ctx context.Context, entity *T) error {
	if err := GetDB(ctx, r.db).Save(entity).Error; err != nil {
		return r.wrap("update", err)
	}
	return nil
}

func (r *GormRepository[T]) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*T, error) {
	var entity T
	result := GetDB(ctx, r.db).Model(&entity).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, r.wrap("update", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperror.NewNotFound(r.cfg.Table, id)
	}
	return r.FindByID(ctx, id)
}

func (r *GormRepository[T]) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var entity T
	result := GetDB(ctx, r.db).Where("id = ?", id).Delete(&entity)
	if result.Error != nil {
		return false, r.wrap("delete", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// BulkUpdate applies fields to every listed id. Absent ids are skipped, not
// errors; the returned count covers only rows actually touched.
func (r *GormRepository[T]) BulkUpdate(ctx context.Context, ids []uuid.UUID, fields map[string]any) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var entity T
	result := GetDB(ctx, r.db).Model(&entity).Where("id IN ?", ids).Updates(fields)
	if result.Error != nil {
		return 0, r.wrap("bulkUpdate", result.Error)
	}
	return result.RowsAffected, nil
}
