package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AppointmentStatus enum constants
const (
	AppointmentStatusScheduled = "SCHEDULED"
	AppointmentStatusConfirmed = "CONFIRMED"
	AppointmentStatusCompleted = "COMPLETED"
	AppointmentStatusCancelled = "CANCELLED"
	AppointmentStatusNoShow    = "NO_SHOW"
)

// Appointment represents a scheduled meeting with a customer
type Appointment struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer        *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Title           string          `gorm:"type:varchar(255);not null" json:"title"`
	AppointmentDate time.Time       `gorm:"not null;index" json:"appointment_date"`
	Duration        int             `gorm:"not null;default:30" json:"duration"` // minutes
	Fee             decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"fee"`
	Status          string          `gorm:"type:varchar(20);not null;default:'SCHEDULED';index" json:"status"`
	Notes           string          `gorm:"type:text" json:"notes"`
	AuditFields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// appointmentTransitions defines the allowed status graph
var appointmentTransitions = map[string][]string{
	AppointmentStatusScheduled: {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusCompleted: {},
	AppointmentStatusCancelled: {},
	AppointmentStatusNoShow:    {},
}

// CanTransitionAppointment reports whether status `from` may move to `to`
func CanTransitionAppointment(from, to string) bool {
	for _, next := range appointmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsAppointmentStatus reports whether s is a known appointment status
func IsAppointmentStatus(s string) bool {
	_, ok := appointmentTransitions[s]
	return ok
}
