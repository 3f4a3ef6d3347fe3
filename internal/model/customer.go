package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer represents a client of the business
type Customer struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name     string    `gorm:"type:varchar(255);not null" json:"name"`
	Email    string    `gorm:"type:varchar(255)" json:"email"`
	Phone    string    `gorm:"type:varchar(50)" json:"phone"`
	Company  string    `gorm:"type:varchar(255)" json:"company"`
	Address  string    `gorm:"type:text" json:"address"`
	Notes    string    `gorm:"type:text" json:"notes"`
	IsActive bool      `gorm:"default:true" json:"is_active"`
	AuditFields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
