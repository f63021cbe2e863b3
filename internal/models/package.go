package models

import "time"

// Package is a dataset: a named collection of resources with an owning
// organization and a privacy flag. Private packages are invisible to
// everyone except their editors.
type Package struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	Name            string        `gorm:"size:200;not null" json:"name"`
	Slug            string        `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	Description     string        `gorm:"type:text" json:"description"`
	OrgID           uint          `gorm:"not null;index" json:"org_id"`
	Org             *Organization `gorm:"foreignKey:OrgID" json:"org,omitempty"`
	Private         bool          `gorm:"not null;default:false" json:"private"`
	MaintainerName  string        `gorm:"size:200" json:"maintainer_name"`
	MaintainerEmail string        `gorm:"size:200" json:"maintainer_email"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Package) TableName() string {
	return "packages"
}
