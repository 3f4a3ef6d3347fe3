package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus enum constants
const (
	RequestStatusNew        = "NEW"
	RequestStatusInProgress = "IN_PROGRESS"
	RequestStatusResolved   = "RESOLVED"
	RequestStatusClosed     = "CLOSED"
)

// RequestPriority enum constants
const (
	RequestPriorityLow    = "LOW"
	RequestPriorityMedium = "MEDIUM"
	RequestPriorityHigh   = "HIGH"
)

// Request represents an incoming lead or service request
type Request struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Subject     string        `gorm:"type:varchar(255);not null" json:"subject"`
	Description string        `gorm:"type:text" json:"description"`
	CustomerID  *uuid.UUID    `gorm:"type:uuid;index" json:"customer_id,omitempty"` // Nullable: leads may not be customers yet
	Customer    *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status      string        `gorm:"type:varchar(20);not null;default:'NEW';index" json:"status"`
	Priority    string        `gorm:"type:varchar(10);not null;default:'MEDIUM';index" json:"priority"`
	AssignedTo  *uuid.UUID    `gorm:"type:uuid;index" json:"assigned_to,omitempty"`
	Assignee    *User         `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	Notes       []RequestNote `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"notes,omitempty"`
	AuditFields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RequestNote is a timestamped note attached to a request
type RequestNote struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID uuid.UUID  `gorm:"type:uuid;not null;index" json:"request_id"`
	AuthorID  *uuid.UUID `gorm:"type:uuid" json:"author_id,omitempty"`
	Author    *User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

var requestTransitions = map[string][]string{
	RequestStatusNew:        {RequestStatusInProgress, RequestStatusClosed},
	RequestStatusInProgress: {RequestStatusResolved, RequestStatusClosed},
	RequestStatusResolved:   {RequestStatusClosed},
	RequestStatusClosed:     {},
}

// CanTransitionRequest reports whether status `from` may move to `to`
func CanTransitionRequest(from, to string) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsRequestPriority reports whether p is a known priority
func IsRequestPriority(p string) bool {
	return p == RequestPriorityLow || p == RequestPriorityMedium || p == RequestPriorityHigh
}
