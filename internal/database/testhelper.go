package database

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTest abre um banco sqlite em memória com o schema migrado e os tipos
// sanguíneos populados. Cada teste recebe um banco isolado.
func OpenTest(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("não foi possível abrir banco em memória: %v", err)
	}

	// sqlite em memória: uma conexão só, senão cada conexão vê um banco vazio
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("não foi possível obter *sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migration falhou: %v", err)
	}
	if err := SeedBloodTypes(db); err != nil {
		t.Fatalf("seed falhou: %v", err)
	}

	return db
}
