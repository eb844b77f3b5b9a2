// Package donation cobre o cadastro de doações: o registro do doador e a
// entrada de estoque correspondente, com código de barras para a bolsa.
package donation

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
	"github.com/google/uuid"
)

// Prazos padrão: bolsa vale 42 dias; doador pode voltar em 90.
const (
	lotShelfLifeDays = 42
	nextDonationDays = 90
)

type CreateDonationRequest struct {
	DonorName    string `json:"donor_name"`
	DonorCPF     string `json:"donor_cpf"`
	BloodType    string `json:"blood_type"`
	Quantity     int    `json:"quantity"`
	DonationDate string `json:"donation_date"` // "2025-12-09"; vazio = hoje
}

type DonationResponse struct {
	ID               uint   `json:"id"`
	DonorName        string `json:"donor_name"`
	DonorCPF         string `json:"donor_cpf,omitempty"`
	BloodType        string `json:"blood_type"`
	DonationDate     string `json:"donation_date"`
	Quantity         int    `json:"quantity"`
	NextDonationDate string `json:"next_donation_date,omitempty"`
	Barcode          string `json:"barcode"`
}

func donationResponse(d *models.Donation) DonationResponse {
	resp := DonationResponse{
		ID:           d.ID,
		DonorName:    d.DonorName,
		DonorCPF:     d.DonorCPF,
		BloodType:    d.BloodType,
		DonationDate: d.DonationDate.Format("2006-01-02"),
		Quantity:     d.Quantity,
		Barcode:      d.Barcode,
	}
	if d.NextDonationDate != nil {
		resp.NextDonationDate = d.NextDonationDate.Format("2006-01-02")
	}
	return resp
}

// POST /api/donations
func CreateDonationHandler(led *ledger.Service, alerts *alert.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateDonationRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		if body.DonorName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nome do doador é obrigatório")
		}

		donationDate := time.Now()
		if body.DonationDate != "" {
			d, err := time.Parse("2006-01-02", body.DonationDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Formato de data deve ser 'YYYY-MM-DD'")
			}
			donationDate = d
		}

		barcode := uuid.NewString()
		expiry := donationDate.AddDate(0, 0, lotShelfLifeDays)

		// A entrada de estoque valida quantidade e tipo antes do cadastro
		entry, err := led.AddLot(body.BloodType, body.Quantity, donationDate, expiry, &barcode)
		if err != nil {
			return apperr.ToFiber(err)
		}

		next := donationDate.AddDate(0, 0, nextDonationDays)
		d := models.Donation{
			DonorName:        body.DonorName,
			DonorCPF:         body.DonorCPF,
			BloodType:        body.BloodType,
			DonationDate:     donationDate,
			Quantity:         body.Quantity,
			NextDonationDate: &next,
			Barcode:          barcode,
		}
		if err := database.DB.Create(&d).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível registrar a doação")
		}

		// Doação pode tirar o tipo do nível crítico; recheca mesmo assim
		if _, err := alerts.CheckTypeLowStock(body.BloodType); err != nil {
			log.Printf("Checagem de estoque baixo após doação falhou: %v", err)
		}

		if userID, err := auth.CurrentUserID(c); err == nil {
			var user models.User
			if err := database.DB.First(&user, "id = ?", userID).Error; err == nil {
				_ = activity.WriteLog(activity.LogOptions{
					UserID:      user.ID,
					UserName:    user.Name,
					EntityType:  "donation",
					EntityID:    d.ID,
					Action:      models.ActivityCreate,
					Description: fmt.Sprintf("Doação: %s +%d unidades (lote #%d)", d.BloodType, d.Quantity, entry.ID),
				})
			}
		}

		return c.Status(fiber.StatusCreated).JSON(donationResponse(&d))
	}
}

// GET /api/donations?blood_type=O+
func ListDonationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Order("donation_date DESC, created_at DESC")
		if bt := c.Query("blood_type"); bt != "" {
			q = q.Where("blood_type = ?", bt)
		}

		var donations []models.Donation
		if err := q.Find(&donations).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar as doações")
		}

		resp := make([]DonationResponse, 0, len(donations))
		for i := range donations {
			resp = append(resp, donationResponse(&donations[i]))
		}
		return c.JSON(resp)
	}
}
