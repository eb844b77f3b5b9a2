package models

import "time"

type AlertCategory string

const (
	AlertLowStock        AlertCategory = "low_stock"
	AlertNewRequest      AlertCategory = "new_request"
	AlertRequestResolved AlertCategory = "request_update"
)

type AlertStatus string

const (
	AlertSent AlertStatus = "sent"
	AlertRead AlertStatus = "read"
)

// Alert: notificação durável para um usuário. Só o destinatário marca como lida.
type Alert struct {
	ID          uint          `gorm:"primaryKey"`
	Category    AlertCategory `gorm:"size:20;index;not null"`
	Message     string        `gorm:"size:1000;not null"`
	RecipientID uint          `gorm:"index;not null"`
	Recipient   User
	SentDate    time.Time   `gorm:"index;not null"`
	Status      AlertStatus `gorm:"size:10;not null"`

	// Preenchido apenas em alertas de estoque baixo; chave da supressão
	BloodType string `gorm:"size:3;index"`
}
