package models

import "time"

// Role names used by the seed and the admin-only routes.
const (
	RoleAdministrator = "administrator"
	RoleOperator      = "operator"
)

// Role represents operator roles with numeric primary key
type Role struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"size:32;uniqueIndex;not null"`
	Description string `gorm:"size:255"`
}
