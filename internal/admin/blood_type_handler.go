package admin

import (
	"hemolife-backend/internal/apperr"
	"hemolife-backend/internal/database"
	"hemolife-backend/internal/ledger"
	"hemolife-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type UpdateBloodTypeRequest struct {
	MinStock    *int    `json:"min_stock"`
	Description *string `json:"description"`
}

type BloodTypeResponse struct {
	Type        string `json:"type"`
	MinStock    int    `json:"min_stock"`
	Description string `json:"description"`
}

// GET /api/blood-types
func ListBloodTypesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var types []models.BloodType
		if err := database.DB.Order("type ASC").Find(&types).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os tipos sanguíneos")
		}

		resp := make([]BloodTypeResponse, 0, len(types))
		for _, bt := range types {
			resp = append(resp, BloodTypeResponse{
				Type:        bt.Type,
				MinStock:    bt.MinStock,
				Description: bt.Description,
			})
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/blood-types/:type
// Edição administrativa do estoque mínimo e descrição. Tipos nunca são
// criados nem deletados por aqui (lotes e requisições os referenciam).
func UpdateBloodTypeHandler(led *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bloodType := c.Params("type")

		var body UpdateBloodTypeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		if body.MinStock != nil {
			if err := led.SetMinimumStock(bloodType, *body.MinStock); err != nil {
				return apperr.ToFiber(err)
			}
		}
		if body.Description != nil {
			res := database.DB.Model(&models.BloodType{}).
				Where("type = ?", bloodType).
				Update("description", *body.Description)
			if res.Error != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível atualizar o tipo")
			}
			if res.RowsAffected == 0 {
				return fiber.NewError(fiber.StatusNotFound, "Tipo sanguíneo não encontrado")
			}
		}

		var bt models.BloodType
		if err := database.DB.First(&bt, "type = ?", bloodType).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tipo sanguíneo não encontrado")
		}
		return c.JSON(BloodTypeResponse{Type: bt.Type, MinStock: bt.MinStock, Description: bt.Description})
	}
}
