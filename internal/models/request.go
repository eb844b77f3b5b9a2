package models

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Terminal: aprovada/rejeitada não admitem nova transição
func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestRejected
}

type Urgency string

const (
	UrgencyNormal    Urgency = "Normal"
	UrgencyUrgent    Urgency = "Urgente"
	UrgencyEmergency Urgency = "Emergência"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyEmergency:
		return true
	}
	return false
}

// Request: requisição de unidades de sangue feita por um médico.
// Mutada exatamente uma vez (pending -> approved|rejected); nunca deletada,
// é o registro de auditoria.
type Request struct {
	ID          uint   `gorm:"primaryKey"`
	BloodType   string `gorm:"size:3;index;not null"`
	Quantity    int    `gorm:"not null"`
	RequesterID uint   `gorm:"index;not null"`
	Requester   User
	RequestDate time.Time     `gorm:"index;not null"`
	Status      RequestStatus `gorm:"size:20;index;not null"`
	Urgency     Urgency       `gorm:"size:20;not null"`
	PatientInfo string        `gorm:"size:500"`

	// Preenchidos apenas na resolução
	ResponderID     *uint
	Responder       *User
	ResponseDate    *time.Time
	RejectionReason string `gorm:"size:500"` // só quando rejeitada
}
