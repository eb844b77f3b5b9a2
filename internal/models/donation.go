package models

import "time"

// Donation: registro cadastral da doação (a entrada de estoque correspondente
// vive como LotEntry positivo, criado junto).
type Donation struct {
	ID               uint      `gorm:"primaryKey"`
	DonorName        string    `gorm:"size:100;not null"`
	DonorCPF         string    `gorm:"size:14"`
	BloodType        string    `gorm:"size:3;index;not null"`
	DonationDate     time.Time `gorm:"index;not null"`
	Quantity         int       `gorm:"not null"`
	NextDonationDate *time.Time
	Barcode          string `gorm:"size:40;uniqueIndex;not null"`
	CreatedAt        time.Time
}
