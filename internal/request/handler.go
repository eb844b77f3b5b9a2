package request

import (
	"errors"
	"fmt"
	"log"

	"hemolife-backend/internal/activity"
	"hemolife-backend/internal/alert"
	"hemolife-backend/internal/apperr"
	"hemolife-backend/internal/auth"
	"hemolife-backend/internal/database"
	"hemolife-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SubmitRequest struct {
	BloodType   string         `json:"blood_type"`
	Quantity    int            `json:"quantity"`
	Urgency     models.Urgency `json:"urgency"`
	PatientInfo string         `json:"patient_info"`
}

type RejectBody struct {
	Reason string `json:"reason"`
}

type RequestResponse struct {
	ID              uint    `json:"id"`
	BloodType       string  `json:"blood_type"`
	Quantity        int     `json:"quantity"`
	RequesterID     uint    `json:"requester_id"`
	RequesterName   string  `json:"requester_name,omitempty"`
	RequestDate     string  `json:"request_date"`
	Status          string  `json:"status"`
	Urgency         string  `json:"urgency"`
	PatientInfo     string  `json:"patient_info,omitempty"`
	ResponderID     *uint   `json:"responder_id,omitempty"`
	ResponderName   string  `json:"responder_name,omitempty"`
	ResponseDate    *string `json:"response_date,omitempty"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
}

func requestResponse(r *models.Request) RequestResponse {
	resp := RequestResponse{
		ID:              r.ID,
		BloodType:       r.BloodType,
		Quantity:        r.Quantity,
		RequesterID:     r.RequesterID,
		RequesterName:   r.Requester.Name,
		RequestDate:     r.RequestDate.Format("2006-01-02 15:04:05"),
		Status:          string(r.Status),
		Urgency:         string(r.Urgency),
		PatientInfo:     r.PatientInfo,
		ResponderID:     r.ResponderID,
		RejectionReason: r.RejectionReason,
	}
	if r.Responder != nil {
		resp.ResponderName = r.Responder.Name
	}
	if r.ResponseDate != nil {
		d := r.ResponseDate.Format("2006-01-02 15:04:05")
		resp.ResponseDate = &d
	}
	return resp
}

// POST /api/requests
func SubmitHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SubmitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}
		if body.Urgency == "" {
			body.Urgency = models.UrgencyNormal
		}

		requesterID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		req, advisory, err := svc.Submit(body.BloodType, body.Quantity, requesterID, body.Urgency, body.PatientInfo)
		if err != nil {
			return apperr.ToFiber(err)
		}

		if userID, userName, err := currentUser(c); err == nil {
			_ = activity.WriteLog(activity.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "request",
				EntityID:    req.ID,
				Action:      models.ActivityCreate,
				Description: fmt.Sprintf("Requisição: %d unidades de %s (%s)", req.Quantity, req.BloodType, req.Urgency),
			})
		}

		resp := fiber.Map{"request": requestResponse(req)}
		if advisory != "" {
			resp["warning"] = advisory
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// POST /api/requests/:id/approve
func ApproveHandler(svc *Service, alerts *alert.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID, err := c.ParamsInt("id")
		if err != nil || requestID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		responderID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		req, err := svc.Approve(uint(requestID), responderID)
		if err != nil {
			var ise *apperr.InsufficientStockError
			if errors.As(err, &ise) {
				// O operador precisa do saldo para decidir um caminho manual
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"error":     fmt.Sprintf("Estoque insuficiente! Disponível: %d", ise.Available),
					"available": ise.Available,
				})
			}
			return apperr.ToFiber(err)
		}

		// A aprovação dá baixa no estoque: rechecar o nível do tipo
		if _, err := alerts.CheckTypeLowStock(req.BloodType); err != nil {
			log.Printf("Checagem de estoque baixo após aprovação falhou: %v", err)
		}

		if userID, userName, err := currentUser(c); err == nil {
			_ = activity.WriteLog(activity.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "request",
				EntityID:    req.ID,
				Action:      models.ActivityApprove,
				Description: fmt.Sprintf("Aprovada: %d unidades de %s", req.Quantity, req.BloodType),
			})
		}

		return c.JSON(requestResponse(req))
	}
}

// POST /api/requests/:id/reject
func RejectHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID, err := c.ParamsInt("id")
		if err != nil || requestID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		var body RejectBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		responderID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		req, err := svc.Reject(uint(requestID), responderID, body.Reason)
		if err != nil {
			return apperr.ToFiber(err)
		}

		if userID, userName, err := currentUser(c); err == nil {
			_ = activity.WriteLog(activity.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "request",
				EntityID:    req.ID,
				Action:      models.ActivityReject,
				Description: fmt.Sprintf("Rejeitada: %d unidades de %s (%s)", req.Quantity, req.BloodType, req.RejectionReason),
			})
		}

		return c.JSON(requestResponse(req))
	}
}

// GET /api/requests?status=pending
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := models.RequestStatus(c.Query("status"))
		switch status {
		case "", models.RequestPending, models.RequestApproved, models.RequestRejected:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "status inválido")
		}

		reqs, err := svc.ListByStatus(status)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar as requisições")
		}

		resp := make([]RequestResponse, 0, len(reqs))
		for i := range reqs {
			resp = append(resp, requestResponse(&reqs[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/requests/mine (requisições do médico autenticado)
func ListMineHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requesterID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		reqs, err := svc.ListByRequester(requesterID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar as requisições")
		}

		resp := make([]RequestResponse, 0, len(reqs))
		for i := range reqs {
			resp = append(resp, requestResponse(&reqs[i]))
		}
		return c.JSON(resp)
	}
}

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
