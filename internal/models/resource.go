package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ResourceLevel defines the visibility level of a resource.
type ResourceLevel string

const (
	// LevelPublic resources are visible to everyone.
	LevelPublic ResourceLevel = "public"
	// LevelRestricted resources are visible only to allow-listed users
	// and package editors.
	LevelRestricted ResourceLevel = "restricted"
)

// StringList is an ordered list of strings stored as a JSON column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringList: %T", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(l))
}

// Resource is a downloadable data artifact belonging to a package.
// AllowedUsers is the allow-list consulted when Level is restricted;
// order is preserved (newly granted users are prepended).
type Resource struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	PackageID    uint          `gorm:"not null;index" json:"package_id"`
	Package      *Package      `gorm:"foreignKey:PackageID" json:"package,omitempty"`
	Name         string        `gorm:"size:200;not null" json:"name"`
	Description  string        `gorm:"type:text" json:"description"`
	URL          *string       `json:"url"`
	Format       string        `gorm:"size:50" json:"format"`
	Level        ResourceLevel `gorm:"type:varchar(20);not null;default:'public'" json:"level"`
	AllowedUsers StringList    `gorm:"type:text" json:"allowed_users"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// EffectiveLevel treats an absent level as public.
func (r *Resource) EffectiveLevel() ResourceLevel {
	if r.Level == "" {
		return LevelPublic
	}
	return r.Level
}
