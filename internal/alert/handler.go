package alert

import (
	"hemolife-backend/internal/apperr"
	"hemolife-backend/internal/auth"
	"hemolife-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type AlertResponse struct {
	ID       uint   `json:"id"`
	Category string `json:"category"`
	Label    string `json:"label"`
	Message  string `json:"message"`
	SentDate string `json:"sent_date"`
	Status   string `json:"status"`
}

func alertResponse(a *models.Alert) AlertResponse {
	return AlertResponse{
		ID:       a.ID,
		Category: string(a.Category),
		Label:    CategoryLabel(a.Category),
		Message:  a.Message,
		SentDate: a.SentDate.Format("2006-01-02 15:04:05"),
		Status:   string(a.Status),
	}
}

// GET /api/alerts?unread=true
func ListAlertsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		alerts, err := svc.ListForRecipient(userID, c.QueryBool("unread", false))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os alertas")
		}

		resp := make([]AlertResponse, 0, len(alerts))
		for i := range alerts {
			resp = append(resp, alertResponse(&alerts[i]))
		}
		return c.JSON(resp)
	}
}

// POST /api/alerts/:id/read
func MarkReadHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		alertID, err := c.ParamsInt("id")
		if err != nil || alertID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		if err := svc.MarkRead(uint(alertID), userID); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/admin/alerts/check-low-stock (checagem manual, admin)
func CheckLowStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		created, err := svc.CheckAllTypesLowStock()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível checar o estoque")
		}

		resp := make([]AlertResponse, 0, len(created))
		for i := range created {
			resp = append(resp, alertResponse(&created[i]))
		}
		return c.JSON(fiber.Map{"created": len(created), "alerts": resp})
	}
}
