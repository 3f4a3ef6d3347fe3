package repository

import (
	"backend/internal/model"

	"gorm.io/gorm"
)

// CustomerRepository defines the interface for data access of Customer entities
type CustomerRepository interface {
	Repository[model.Customer]
}

// NewCustomerRepository returns a new instance of CustomerRepository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return NewGormRepository[model.Customer](db, Config{
		Table:        "customers",
		SearchFields: []string{"name", "email", "phone", "company"},
		SortFields: map[string]string{
			"name":      "name",
			"email":     "email",
			"company":   "company",
			"createdAt": "created_at",
		},
		DefaultSort: "created_at DESC",
	})
}
