package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestRepository defines the interface for data access of Request entities
type RequestRepository interface {
	Repository[model.Request]
	AddNote(ctx context.Context, note *model.RequestNote) error
	ListNotes(ctx context.Context, requestID uuid.UUID) ([]model.RequestNote, error)
}

type requestRepository struct {
	*GormRepository[model.Request]
	db *gorm.DB
}

// NewRequestRepository returns a new instance of RequestRepository
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{
		GormRepository: NewGormRepository[model.Request](db, Config{
			Table:        "requests",
			SearchFields: []string{"subject", "description"},
			SortFields: map[string]string{
				"subject":   "subject",
				"status":    "status",
				"priority":  "priority",
				"createdAt": "created_at",
			},
			DefaultSort: "created_at DESC",
			Preloads:    []string{"Customer", "Assignee"},
		}),
		db: db,
	}
}

func (r *requestRepository) AddNote(ctx context.Context, note *model.RequestNote) error {
	if err := GetDB(ctx, r.db).Create(note).Error; err != nil {
		return wrapDB("addNote", "request_notes", err)
	}
	return nil
}

func (r *requestRepository) ListNotes(ctx context.Context, requestID uuid.UUID) ([]model.RequestNote, error) {
	var notes []model.RequestNote
	err := GetDB(ctx, r.db).
		Preload("Author").
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&notes).Error
	if err != nil {
		return nil, wrapDB("listNotes", "request_notes", err)
	}
	return notes, nil
}
