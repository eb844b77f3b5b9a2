// Package report expõe os dados que o renderizador externo de relatórios
// consome: níveis de estoque com situação, lotes a vencer e o resumo de
// requisições por tipo. A geração do PDF em si fica fora deste núcleo.
package report

import (
	"fmt"
	"time"

	"hemolife-backend/internal/database"
	"hemolife-backend/internal/ledger"
	"hemolife-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type StockReportRow struct {
	BloodType string `json:"blood_type"`
	Balance   int    `json:"balance"`
	MinStock  int    `json:"min_stock"`
	Status    string `json:"status"`
}

type ExpiringRow struct {
	BloodType      string `json:"blood_type"`
	Quantity       int    `json:"quantity"`
	ExpirationDate string `json:"expiration_date"`
	DaysLeft       int    `json:"days_left"`
}

type RequestSummaryRow struct {
	BloodType string `json:"blood_type"`
	Approved  int64  `json:"approved"`
	Rejected  int64  `json:"rejected"`
}

// GET /api/reports/stock
func StockReportHandler(led *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summaries, err := led.SummaryByType()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível montar o relatório")
		}

		rows := make([]StockReportRow, 0, len(summaries))
		for _, s := range summaries {
			status := "OK"
			if s.Low {
				status = fmt.Sprintf("ESTOQUE BAIXO (faltam %d unidades)", s.MinStock-s.Balance)
			}
			rows = append(rows, StockReportRow{
				BloodType: s.BloodType,
				Balance:   s.Balance,
				MinStock:  s.MinStock,
				Status:    status,
			})
		}

		// Lotes a vencer em 7 dias
		lots, err := led.ExpiringWithin(7 * 24 * time.Hour)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os lotes a vencer")
		}

		today := time.Now()
		expiring := make([]ExpiringRow, 0, len(lots))
		for _, lot := range lots {
			expiring = append(expiring, ExpiringRow{
				BloodType:      lot.BloodType,
				Quantity:       lot.Quantity,
				ExpirationDate: lot.ExpirationDate.Format("2006-01-02"),
				DaysLeft:       int(lot.ExpirationDate.Sub(today).Hours() / 24),
			})
		}

		// Resumo de requisições por tipo
		var types []models.BloodType
		if err := database.DB.Order("type ASC").Find(&types).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os tipos")
		}

		requestSummary := make([]RequestSummaryRow, 0, len(types))
		for _, bt := range types {
			var approved, rejected int64
			database.DB.Model(&models.Request{}).
				Where("blood_type = ? AND status = ?", bt.Type, models.RequestApproved).
				Count(&approved)
			database.DB.Model(&models.Request{}).
				Where("blood_type = ? AND status = ?", bt.Type, models.RequestRejected).
				Count(&rejected)
			if approved == 0 && rejected == 0 {
				continue
			}
			requestSummary = append(requestSummary, RequestSummaryRow{
				BloodType: bt.Type,
				Approved:  approved,
				Rejected:  rejected,
			})
		}

		return c.JSON(fiber.Map{
			"generated_at":    time.Now().Format("2006-01-02 15:04:05"),
			"stock":           rows,
			"expiring_7_days": expiring,
			"requests":        requestSummary,
		})
	}
}
