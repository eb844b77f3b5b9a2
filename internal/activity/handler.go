package activity

import (
	"hemolife-backend/internal/database"
	"hemolife-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/activity-logs?entity_type=request&limit=100
func ListActivityLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 100)
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		q := database.DB.Order("created_at DESC").Limit(limit)
		if et := c.Query("entity_type"); et != "" {
			q = q.Where("entity_type = ?", et)
		}

		var logs []models.ActivityLog
		if err := q.Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os logs")
		}

		return c.JSON(logs)
	}
}
