package forecast

import (
	"context"
	"time"

	"hemolife-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// Limite padrão para o ajuste do modelo; previsão não pode segurar a resposta
const defaultFitTimeout = 5 * time.Second

// GET /api/forecast/:type?days=7
// Histórico + previsão + recomendação de reposição num payload só, como a
// tela de análise consome.
func ForecastHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bloodType := c.Params("type")
		horizonDays := c.QueryInt("days", 7)
		if horizonDays <= 0 || horizonDays > 90 {
			return fiber.NewError(fiber.StatusBadRequest, "days deve estar entre 1 e 90")
		}

		history, err := svc.HistoricalDailyDemand(bloodType)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível obter o histórico de demanda")
		}

		ctx, cancel := context.WithTimeout(c.Context(), defaultFitTimeout)
		defer cancel()

		result, err := svc.Forecast(ctx, bloodType, history, horizonDays)
		if err != nil {
			return apperr.ToFiber(err)
		}

		rec, err := svc.Recommend(bloodType, result)
		if err != nil {
			return apperr.ToFiber(err)
		}

		return c.JSON(fiber.Map{
			"history":        history,
			"forecast":       result,
			"recommendation": rec,
		})
	}
}

// GET /api/forecast/:type/history (só a série histórica diária)
func HistoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		history, err := svc.HistoricalDailyDemand(c.Params("type"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível obter o histórico de demanda")
		}
		return c.JSON(history)
	}
}
