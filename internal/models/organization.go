package models

import "time"

// OrgRole defines a user's capacity within an organization.
type OrgRole string

const (
	// OrgRoleAdmin can review access requests and edit the org's catalog.
	OrgRoleAdmin OrgRole = "admin"
	// OrgRoleMember is the default non-administrative role.
	OrgRoleMember OrgRole = "member"
)

// Organization owns packages and scopes admin review capability.
type Organization struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Slug      string    `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrgMembership maps users to organizations and tracks their role.
type OrgMembership struct {
	OrgID     uint          `gorm:"primaryKey;autoIncrement:false" json:"org_id"`
	Org       *Organization `gorm:"foreignKey:OrgID" json:"org,omitempty"`
	UserID    uint          `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User      *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      OrgRole       `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
