package dashboard

import (
	"time"

	"hemolife-backend/internal/database"
	"hemolife-backend/internal/ledger"
	"hemolife-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/dashboard/summary
// Resumo da tela inicial: estoque por tipo, requisições pendentes,
// doações do dia e quantos tipos estão abaixo do mínimo.
func SummaryHandler(led *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summaries, err := led.SummaryByType()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível calcular o resumo do estoque")
		}

		totalStock := 0
		lowTypes := 0
		for _, s := range summaries {
			totalStock += s.Balance
			if s.Low {
				lowTypes++
			}
		}

		var pendingRequests int64
		if err := database.DB.Model(&models.Request{}).
			Where("status = ?", models.RequestPending).
			Count(&pendingRequests).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível contar as requisições")
		}

		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		var todayDonations int64
		if err := database.DB.Model(&models.Donation{}).
			Where("donation_date >= ? AND donation_date < ?", today, today.AddDate(0, 0, 1)).
			Count(&todayDonations).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível contar as doações")
		}

		return c.JSON(fiber.Map{
			"stock":            summaries,
			"total_stock":      totalStock,
			"low_stock_types":  lowTypes,
			"pending_requests": pendingRequests,
			"today_donations":  todayDonations,
		})
	}
}
