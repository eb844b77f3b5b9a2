package models

import "time"

type ActivityAction string

const (
	ActivityCreate  ActivityAction = "create"
	ActivityUpdate  ActivityAction = "update"
	ActivityApprove ActivityAction = "approve"
	ActivityReject  ActivityAction = "reject"
)

// ActivityLog: trilha de atividades do sistema (quem fez o quê)
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID   uint   `json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"` // denormalizado

	// Ex: "lot_entry", "request", "donation", "user", "blood_type"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      ActivityAction `gorm:"size:20" json:"action"`
	Description string         `gorm:"size:255" json:"description"`
}
