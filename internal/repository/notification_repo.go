package repository

import (
	"backend/internal/model"

	"gorm.io/gorm"
)

// NotificationRepository defines the interface for data access of Notification entities
type NotificationRepository interface {
	Repository[model.Notification]
}

// NewNotificationRepository returns a new instance of NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return NewGormRepository[model.Notification](db, Config{
		Table:        "notifications",
		SearchFields: []string{"title", "message"},
		SortFields: map[string]string{
			"createdAt": "created_at",
		},
		DefaultSort: "created_at DESC",
	})
}
