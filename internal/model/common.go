package model

import (
	"github.com/google/uuid"
)

// AuditFields carries the who-changed-this references shared by every domain
// entity. Stamped by the service pipeline, left untouched when the actor is
// unknown.
type AuditFields struct {
	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
	UpdatedBy *uuid.UUID `gorm:"type:uuid" json:"updated_by,omitempty"`
}

func (a *AuditFields) SetCreatedBy(id uuid.UUID) {
	a.CreatedBy = &id
}

func (a *AuditFields) SetUpdatedBy(id uuid.UUID) {
	a.UpdatedBy = &id
}
