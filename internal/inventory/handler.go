package inventory

import (
	"fmt"
	"log"
	"time"

	"hemolife-backend/internal/activity"
	"hemolife-backend/internal/alert"
	"hemolife-backend/internal/apperr"
	"hemolife-backend/internal/auth"
	"hemolife-backend/internal/database"
	"hemolife-backend/internal/ledger"
	"hemolife-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type AddLotRequest struct {
	BloodType      string  `json:"blood_type"`
	Quantity       int     `json:"quantity"`
	EntryDate      string  `json:"entry_date"`      // "2025-12-09"; vazio = hoje
	ExpirationDate string  `json:"expiration_date"` // "2025-12-09"
	DonorRef       *string `json:"donor_ref"`
}

type LotEntryResponse struct {
	ID             uint    `json:"id"`
	BloodType      string  `json:"blood_type"`
	Quantity       int     `json:"quantity"`
	EntryDate      string  `json:"entry_date"`
	ExpirationDate string  `json:"expiration_date"`
	DonorRef       *string `json:"donor_ref,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

func lotResponse(e *models.LotEntry) LotEntryResponse {
	return LotEntryResponse{
		ID:             e.ID,
		BloodType:      e.BloodType,
		Quantity:       e.Quantity,
		EntryDate:      e.EntryDate.Format("2006-01-02"),
		ExpirationDate: e.ExpirationDate.Format("2006-01-02"),
		DonorRef:       e.DonorRef,
		CreatedAt:      e.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/stock-entries
// Entrada manual de estoque. A checagem de estoque baixo roda depois da
// gravação, como em toda mutação de estoque.
func AddLotHandler(svc *ledger.Service, alerts *alert.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AddLotRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		entryDate := time.Now()
		if body.EntryDate != "" {
			d, err := time.Parse("2006-01-02", body.EntryDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Formato de data deve ser 'YYYY-MM-DD'")
			}
			entryDate = d
		}

		expiry, err := time.Parse("2006-01-02", body.ExpirationDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Formato de data deve ser 'YYYY-MM-DD'")
		}

		entry, err := svc.AddLot(body.BloodType, body.Quantity, entryDate, expiry, body.DonorRef)
		if err != nil {
			return apperr.ToFiber(err)
		}

		if _, err := alerts.CheckTypeLowStock(body.BloodType); err != nil {
			log.Printf("Checagem de estoque baixo após entrada falhou: %v", err)
		}

		if userID, userName, err := currentUser(c); err == nil {
			_ = activity.WriteLog(activity.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "lot_entry",
				EntityID:    entry.ID,
				Action:      models.ActivityCreate,
				Description: fmt.Sprintf("Entrada de estoque: %s +%d unidades", entry.BloodType, entry.Quantity),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(lotResponse(entry))
	}
}

// GET /api/stock-entries?blood_type=O+
func ListLotsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Order("entry_date DESC, created_at DESC")
		if bt := c.Query("blood_type"); bt != "" {
			q = q.Where("blood_type = ?", bt)
		}

		var lots []models.LotEntry
		if err := q.Find(&lots).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os lotes")
		}

		resp := make([]LotEntryResponse, 0, len(lots))
		for i := range lots {
			resp = append(resp, lotResponse(&lots[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/stock/summary
func StockSummaryHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summaries, err := svc.SummaryByType()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível calcular o resumo do estoque")
		}
		return c.JSON(summaries)
	}
}

// GET /api/stock/:type/balance
func BalanceHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bloodType := c.Params("type")
		balance, err := svc.CurrentBalance(bloodType)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"blood_type": bloodType, "balance": balance})
	}
}

// GET /api/stock/expiring?days=7
func ExpiringHandler(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days := c.QueryInt("days", 7)
		if days <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "days deve ser positivo")
		}

		lots, err := svc.ExpiringWithin(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os lotes a vencer")
		}

		resp := make([]LotEntryResponse, 0, len(lots))
		for i := range lots {
			resp = append(resp, lotResponse(&lots[i]))
		}
		return c.JSON(resp)
	}
}

// Auxiliar: identifica o usuário autenticado para o log de atividade
func currentUser(c *fiber.Ctx) (uint, string, error) {
	userID, err := auth.CurrentUserID(c)
	if err != nil {
		return 0, "", err
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return 0, "", err
	}
	return user.ID, user.Name, nil
}
