package models

import "time"

// LotEntry: movimento de estoque de um tipo sanguíneo.
// Quantidade positiva = entrada (doação ou ajuste manual),
// negativa = saída gerada por requisição aprovada.
// Registro imutável: o saldo atual é a soma de todos os lotes do tipo.
type LotEntry struct {
	ID             uint      `gorm:"primaryKey"`
	BloodType      string    `gorm:"size:3;index;not null"`
	Quantity       int       `gorm:"not null"`
	EntryDate      time.Time `gorm:"index;not null"`
	ExpirationDate time.Time `gorm:"index;not null"` // só relevante em lotes positivos
	DonorRef       *string   `gorm:"size:50"`
	CreatedAt      time.Time
}
