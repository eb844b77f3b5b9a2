package database

import (
	"log"

	"hemolife-backend/internal/config"
	"hemolife-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Não foi possível conectar ao banco: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("Erro no AutoMigrate: %v", err)
	}

	if err := SeedBloodTypes(DB); err != nil {
		log.Fatalf("Erro ao popular tipos sanguíneos: %v", err)
	}

	log.Println("Conexão com o banco estabelecida. Migration concluída.")
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.BloodType{},
		&models.LotEntry{},
		&models.Request{},
		&models.Alert{},
		&models.Donation{},
		&models.ActivityLog{},
	)
}

// SeedBloodTypes insere os oito tipos ABO/Rh com estoque mínimo padrão.
// Idempotente: tipos já cadastrados (edições administrativas inclusas) não são tocados.
func SeedBloodTypes(db *gorm.DB) error {
	defaults := []models.BloodType{
		{Type: "A+", MinStock: 30, Description: "Tipo A Positivo"},
		{Type: "A-", MinStock: 20, Description: "Tipo A Negativo"},
		{Type: "B+", MinStock: 25, Description: "Tipo B Positivo"},
		{Type: "B-", MinStock: 18, Description: "Tipo B Negativo"},
		{Type: "O+", MinStock: 40, Description: "Tipo O Positivo"},
		{Type: "O-", MinStock: 35, Description: "Tipo O Negativo"},
		{Type: "AB+", MinStock: 15, Description: "Tipo AB Positivo"},
		{Type: "AB-", MinStock: 10, Description: "Tipo AB Negativo"},
	}

	for _, bt := range defaults {
		var count int64
		if err := db.Model(&models.BloodType{}).Where("type = ?", bt.Type).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&bt).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
