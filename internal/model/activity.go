package model

import (
	"time"

	"github.com/google/uuid"
)

// Activity actions
const (
	ActionCreateCustomer    = "CREATE_CUSTOMER"
	ActionUpdateCustomer    = "UPDATE_CUSTOMER"
	ActionDeleteCustomer    = "DELETE_CUSTOMER"
	ActionCreateAppointment = "CREATE_APPOINTMENT"
	ActionUpdateAppointment = "UPDATE_APPOINTMENT"
	ActionDeleteAppointment = "DELETE_APPOINTMENT"
	ActionCreateRequest     = "CREATE_REQUEST"
	ActionUpdateRequest     = "UPDATE_REQUEST"
	ActionAssignRequest     = "ASSIGN_REQUEST"
	ActionCreateUser        = "CREATE_USER"
	ActionUpdateUser        = "UPDATE_USER"
	ActionDeleteUser        = "DELETE_USER"
	ActionUpdatePermissions = "UPDATE_PERMISSIONS"
)

// ActivityLog tracks Who, What, and When for critical system changes.
// Entity type and id are real columns, not values smuggled into the details
// payload, so filtering never needs substring matching.
type ActivityLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for system-initiated actions
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(50);not null;index" json:"entity_type"` // "customer", "appointment"...
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
