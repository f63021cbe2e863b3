package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus defines lifecycle states for access requests.
type RequestStatus string

const (
	// RequestStatusPending indicates the request is awaiting review.
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusApproved indicates access was granted.
	RequestStatusApproved RequestStatus = "approved"
	// RequestStatusRejected indicates the request was denied.
	RequestStatusRejected RequestStatus = "rejected"
	// RequestStatusRevoked indicates a previously granted access was withdrawn.
	RequestStatusRevoked RequestStatus = "revoked"
)

// DecisionAction is an admin's verdict on an access request.
type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
	ActionRevoke  DecisionAction = "revoke"
)

// Status returns the request status an action transitions to, and whether
// the action is valid at all.
func (a DecisionAction) Status() (RequestStatus, bool) {
	switch a {
	case ActionApprove:
		return RequestStatusApproved, true
	case ActionReject:
		return RequestStatusRejected, true
	case ActionRevoke:
		return RequestStatusRevoked, true
	}
	return "", false
}

// AccessRequest is a user's request to view a restricted resource.
// Package, resource, org and user ids are weak references: their lifetime
// is owned by the catalog, so no foreign-key constraints are declared.
type AccessRequest struct {
	ID               string        `gorm:"primaryKey;size:60" json:"id"`
	PackageID        uint          `gorm:"not null;index" json:"package_id"`
	ResourceID       uint          `gorm:"not null;index" json:"resource_id"`
	OrgID            uint          `gorm:"not null;index" json:"org_id"`
	UserID           uint          `gorm:"not null;index" json:"user_id"`
	User             *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Message          string        `gorm:"type:text;not null" json:"message"`
	Status           RequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RejectionMessage string        `gorm:"type:text" json:"rejection_message"`
	DecidedByUserID  *uint         `json:"decided_by_user_id"`
	DecidedByUser    *User         `gorm:"foreignKey:DecidedByUserID" json:"decided_by_user,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none is set.
func (r *AccessRequest) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsPending reports whether the request is still awaiting review.
func (r *AccessRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}
