package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// Transporte de notificações (email)
	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPPassword string

	// Janela de supressão de alertas de estoque baixo.
	// Zero = sem supressão (renotifica a cada checagem).
	LowStockSuppression time.Duration
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:  getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=hemolife port=5432 sslmode=disable"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		CORSOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
	}

	suppressionMin, err := strconv.Atoi(getEnv("LOW_STOCK_SUPPRESSION_MIN", "0"))
	if err != nil || suppressionMin < 0 {
		log.Fatal("[FATAL] LOW_STOCK_SUPPRESSION_MIN deve ser um inteiro >= 0 (minutos).")
	}
	cfg.LowStockSuppression = time.Duration(suppressionMin) * time.Minute

	// Checagens de segurança para produção
	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET não definido! Obrigatório para produção.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET deve ter no mínimo 32 caracteres! Risco de segurança.")
	}
	if cfg.DatabaseDSN == "host=localhost user=postgres password=postgres dbname=hemolife port=5432 sslmode=disable" {
		log.Println("[WARN] DATABASE_DSN usando valor padrão, defina sua própria conexão Postgres em produção.")
	}
	if cfg.SMTPHost == "" {
		log.Println("[WARN] SMTP_HOST não definido, emails ficam desativados (alertas continuam sendo gravados no banco).")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
