package repository

import (
	"backend/internal/model"

	"gorm.io/gorm"
)

// ActivityRepository defines the interface for data access of ActivityLog entries
type ActivityRepository interface {
	Repository[model.ActivityLog]
}

// NewActivityRepository returns a new instance of ActivityRepository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return NewGormRepository[model.ActivityLog](db, Config{
		Table:        "activity_logs",
		SearchFields: []string{"entity_name", "action"},
		SortFields: map[string]string{
			"createdAt": "created_at",
			"action":    "action",
		},
		DefaultSort: "created_at DESC",
		Preloads:    []string{"User"},
	})
}
