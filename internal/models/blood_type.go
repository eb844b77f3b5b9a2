package models

import "time"

// BloodType: tipo sanguíneo ABO/Rh com estoque mínimo configurável.
// Criado no seed inicial, nunca é deletado (lotes e requisições referenciam).
type BloodType struct {
	Type        string `gorm:"primaryKey;size:3"`
	MinStock    int    `gorm:"not null"`
	Description string `gorm:"size:100"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
