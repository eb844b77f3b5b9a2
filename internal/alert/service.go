// Package alert decide quando mudanças no estoque ou no fluxo de requisições
// merecem uma notificação durável, grava o registro e repassa a mensagem ao
// transporte externo.
package alert

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hemolife-backend/internal/apperr"
	"hemolife-backend/internal/config"
	"hemolife-backend/internal/ledger"
	"hemolife-backend/internal/models"
	"hemolife-backend/internal/notifier"

	"gorm.io/gorm"
)

type Service struct {
	db          *gorm.DB
	ledger      *ledger.Service
	dispatcher  *notifier.Dispatcher
	suppression time.Duration
}

func NewService(db *gorm.DB, led *ledger.Service, disp *notifier.Dispatcher, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		ledger:      led,
		dispatcher:  disp,
		suppression: cfg.LowStockSuppression,
	}
}

// CheckAllTypesLowStock varre todos os tipos e cria um alerta por admin ativo
// para cada tipo abaixo do mínimo. Sem janela de supressão configurada, a
// checagem renotifica a cada chamada; os chamadores controlam a cadência
// (login e mutações de estoque).
func (s *Service) CheckAllTypesLowStock() ([]models.Alert, error) {
	summaries, err := s.ledger.SummaryByType()
	if err != nil {
		return nil, err
	}

	var admins []models.User
	if err := s.db.Where("role = ? AND is_active = ?", models.RoleAdmin, true).Find(&admins).Error; err != nil {
		return nil, err
	}

	created := make([]models.Alert, 0)
	for _, sum := range summaries {
		if !sum.Low {
			continue
		}
		alerts, err := s.emitLowStock(sum.BloodType, sum.Balance, sum.MinStock, admins)
		if err != nil {
			return nil, err
		}
		created = append(created, alerts...)
	}
	return created, nil
}

// CheckTypeLowStock checa um único tipo após uma mutação de estoque desse tipo.
func (s *Service) CheckTypeLowStock(bloodType string) ([]models.Alert, error) {
	balance, err := s.ledger.CurrentBalance(bloodType)
	if err != nil {
		return nil, err
	}
	minStock, err := s.ledger.MinimumStock(bloodType)
	if err != nil {
		return nil, err
	}
	if balance >= minStock {
		return nil, nil
	}

	var admins []models.User
	if err := s.db.Where("role = ? AND is_active = ?", models.RoleAdmin, true).Find(&admins).Error; err != nil {
		return nil, err
	}
	return s.emitLowStock(bloodType, balance, minStock, admins)
}

func (s *Service) emitLowStock(bloodType string, balance, minStock int, admins []models.User) ([]models.Alert, error) {
	message := fmt.Sprintf("Estoque de %s abaixo do mínimo: %d unidades (mínimo: %d)",
		bloodType, balance, minStock)

	created := make([]models.Alert, 0, len(admins))
	for _, admin := range admins {
		if s.suppression > 0 {
			suppressed, err := s.recentlyAlerted(admin.ID, bloodType)
			if err != nil {
				return nil, err
			}
			if suppressed {
				continue
			}
		}

		a := models.Alert{
			Category:    models.AlertLowStock,
			Message:     message,
			RecipientID: admin.ID,
			SentDate:    time.Now(),
			Status:      models.AlertSent,
			BloodType:   bloodType,
		}
		if err := s.db.Create(&a).Error; err != nil {
			return nil, err
		}
		created = append(created, a)

		s.dispatcher.Dispatch(admin.Email,
			fmt.Sprintf("Alerta de Estoque - Sangue %s", bloodType), message)
	}
	return created, nil
}

// recentlyAlerted: já existe alerta de estoque baixo deste tipo para este
// destinatário dentro da janela de supressão?
func (s *Service) recentlyAlerted(recipientID uint, bloodType string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Alert{}).
		Where("category = ? AND recipient_id = ? AND blood_type = ? AND sent_date > ?",
			models.AlertLowStock, recipientID, bloodType, time.Now().Add(-s.suppression)).
		Count(&count).Error
	return count > 0, err
}

// NotifyNewRequest avisa técnicos e admins ativos que há requisição pendente.
func (s *Service) NotifyNewRequest(req *models.Request) error {
	var staff []models.User
	err := s.db.Where("role IN ? AND is_active = ?",
		[]models.UserRole{models.RoleAdmin, models.RoleTechnician}, true).
		Find(&staff).Error
	if err != nil {
		return err
	}

	message := fmt.Sprintf(
		"Nova requisição de sangue pendente de aprovação: %d unidades de %s (urgência: %s). Acesse o sistema para revisar.",
		req.Quantity, req.BloodType, req.Urgency)

	for _, member := range staff {
		a := models.Alert{
			Category:    models.AlertNewRequest,
			Message:     message,
			RecipientID: member.ID,
			SentDate:    time.Now(),
			Status:      models.AlertSent,
		}
		if err := s.db.Create(&a).Error; err != nil {
			return err
		}
		s.dispatcher.Dispatch(member.Email, "Nova Requisição de Sangue Pendente",
			fmt.Sprintf("Olá %s,\n\n%s", member.Name, message))
	}
	return nil
}

// NotifyResolution avisa o médico solicitante do desfecho da requisição,
// incluindo o motivo quando rejeitada.
func (s *Service) NotifyResolution(req *models.Request) error {
	var doctor models.User
	if err := s.db.First(&doctor, "id = ?", req.RequesterID).Error; err != nil {
		return err
	}

	var subject, message string
	if req.Status == models.RequestApproved {
		subject = fmt.Sprintf("Requisição #%d Aprovada", req.ID)
		message = fmt.Sprintf("Sua requisição de %d unidades de %s foi aprovada.",
			req.Quantity, req.BloodType)
	} else {
		subject = fmt.Sprintf("Requisição #%d Rejeitada", req.ID)
		message = fmt.Sprintf("Sua requisição de %d unidades de %s foi rejeitada. Motivo: %s",
			req.Quantity, req.BloodType, req.RejectionReason)
	}

	a := models.Alert{
		Category:    models.AlertRequestResolved,
		Message:     message,
		RecipientID: doctor.ID,
		SentDate:    time.Now(),
		Status:      models.AlertSent,
	}
	if err := s.db.Create(&a).Error; err != nil {
		return err
	}

	body := fmt.Sprintf("Olá Dr(a). %s,\n\n%s\n\nAtenciosamente,\nEquipe Hemolife", doctor.Name, message)
	s.dispatcher.Dispatch(doctor.Email, subject, body)
	return nil
}

// MarkRead marca o alerta como lido. Apenas o destinatário pode.
func (s *Service) MarkRead(alertID, recipientID uint) error {
	var a models.Alert
	if err := s.db.First(&a, "id = ?", alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}
	if a.RecipientID != recipientID {
		return apperr.ErrPermission
	}
	return s.db.Model(&a).Update("status", models.AlertRead).Error
}

// ListForRecipient lista alertas do usuário, mais recentes primeiro.
func (s *Service) ListForRecipient(recipientID uint, unreadOnly bool) ([]models.Alert, error) {
	q := s.db.Where("recipient_id = ?", recipientID).Order("sent_date DESC")
	if unreadOnly {
		q = q.Where("status = ?", models.AlertSent)
	}
	var alerts []models.Alert
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// categoria legível para a camada de apresentação
func CategoryLabel(c models.AlertCategory) string {
	switch c {
	case models.AlertLowStock:
		return "Estoque Baixo"
	case models.AlertNewRequest:
		return "Nova Requisição"
	case models.AlertRequestResolved:
		return "Requisição Respondida"
	}
	return strings.ToUpper(string(c))
}
