package models

import "time"

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleTechnician UserRole = "technician"
	RoleDoctor     UserRole = "doctor"
)

// CanApprove: apenas admin e técnico podem aprovar requisições
func (r UserRole) CanApprove() bool {
	return r == RoleAdmin || r == RoleTechnician
}

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Name         string   `gorm:"size:100;not null"`
	Username     string   `gorm:"size:50;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	Email        string   `gorm:"size:100"`
	LastLogin    *time.Time
	IsActive     bool `gorm:"default:true;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
