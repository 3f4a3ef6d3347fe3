package model

import (
	"time"

	"github.com/google/uuid"
)

// Permission catalog codes. The catalog is seeded once at startup when the
// table is empty; adding codes here later requires a manual migration.
const (
	PermCustomersView   = "CUSTOMERS_VIEW"
	PermCustomersEdit   = "CUSTOMERS_EDIT"
	PermCustomersDelete = "CUSTOMERS_DELETE"

	PermAppointmentsView = "APPOINTMENTS_VIEW"
	PermAppointmentsEdit = "APPOINTMENTS_EDIT"

	PermRequestsView = "REQUESTS_VIEW"
	PermRequestsEdit = "REQUESTS_EDIT"

	PermNotificationsView = "NOTIFICATIONS_VIEW"

	PermUsersView   = "USERS_VIEW"
	PermUsersEdit   = "USERS_EDIT"
	PermUsersDelete = "USERS_DELETE"

	PermPermissionsManage = "PERMISSIONS_MANAGE"
	PermActivityView      = "ACTIVITY_VIEW"
)

// Permission is one row of the immutable permission catalog
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"` // e.g. "CUSTOMERS_EDIT"
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"type:varchar(50);not null;index" json:"category"` // "customers", "users"...
}

// UserPermission is an explicit grant that supplements a user's role defaults.
// There is no negative grant: role-default permissions cannot be revoked per
// user, only additions beyond the defaults are persisted.
type UserPermission struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_permission,unique" json:"user_id"`
	User         User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	PermissionID uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_permission,unique" json:"permission_id"`
	Permission   Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE;" json:"permission"`
	GrantedAt    time.Time  `gorm:"autoCreateTime" json:"granted_at"`
	GrantedBy    *uuid.UUID `gorm:"type:uuid" json:"granted_by,omitempty"`
}
