package repository

import (
	"backend/internal/model"

	"gorm.io/gorm"
)

// AppointmentRepository defines the interface for data access of Appointment entities
type AppointmentRepository interface {
	Repository[model.Appointment]
}

// NewAppointmentRepository returns a new instance of AppointmentRepository.
// Sorting by customer name joins the Customer relation.
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return NewGormRepository[model.Appointment](db, Config{
		Table:        "appointments",
		SearchFields: []string{"title", "notes"},
		SortFields: map[string]string{
			"appointmentDate": "appointment_date",
			"status":          "status",
			"fee":             "fee",
			"createdAt":       "created_at",
			"customerName":    `"Customer".name`,
		},
		SortJoins: map[string]string{
			"customerName": "Customer",
		},
		DefaultSort: "appointment_date DESC",
		Preloads:    []string{"Customer"},
	})
}
