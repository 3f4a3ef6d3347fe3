package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType enum constants
const (
	NotificationTypeInfo        = "INFO"
	NotificationTypeAppointment = "APPOINTMENT"
	NotificationTypeRequest     = "REQUEST"
	NotificationTypeSystem      = "SYSTEM"
)

// Notification is an in-app message addressed to a single user
type Notification struct {
	ID      uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User    *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	Title   string     `gorm:"type:varchar(255);not null" json:"title"`
	Message string     `gorm:"type:text" json:"message"`
	Type    string     `gorm:"type:varchar(20);not null;default:'INFO'" json:"type"`
	IsRead  bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt  *time.Time `json:"read_at,omitempty"`
	AuditFields
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
