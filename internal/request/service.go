// Package request implementa a máquina de estados das requisições de sangue:
// pending -> approved|rejected, ambos terminais. A aprovação é o ponto
// crítico do sistema: checagem de saldo + baixa de estoque formam uma unidade
// atômica por tipo sanguíneo.
package request

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"hemolife-backend/internal/apperr"
	"hemolife-backend/internal/ledger"
	"hemolife-backend/internal/models"

	"gorm.io/gorm"
)

// Notifier recebe os eventos do fluxo. Implementado pelo AlertEngine; falhas
// são registradas em log e nunca desfazem a mutação que as originou.
type Notifier interface {
	NotifyNewRequest(req *models.Request) error
	NotifyResolution(req *models.Request) error
}

type Service struct {
	db       *gorm.DB
	ledger   *ledger.Service
	notifier Notifier

	// Um mutex por tipo sanguíneo: duas aprovações do mesmo tipo nunca
	// intercalam entre a checagem de saldo e a baixa. Tipos diferentes
	// aprovam em paralelo.
	mu        sync.Mutex
	typeLocks map[string]*sync.Mutex
}

func NewService(db *gorm.DB, led *ledger.Service, notifier Notifier) *Service {
	return &Service{
		db:        db,
		ledger:    led,
		notifier:  notifier,
		typeLocks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockFor(bloodType string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.typeLocks[bloodType]
	if !ok {
		l = &sync.Mutex{}
		s.typeLocks[bloodType] = l
	}
	return l
}

// Submit cria uma requisição pendente. Insuficiência de estoque não bloqueia:
// vira um aviso para o solicitante, exceto em Emergência, que dispensa até o
// aviso. O aviso retornado vem vazio quando não se aplica.
func (s *Service) Submit(bloodType string, quantity int, requesterID uint, urgency models.Urgency, patientInfo string) (*models.Request, string, error) {
	if quantity <= 0 {
		return nil, "", apperr.Validationf("quantidade deve ser um número positivo")
	}
	if !urgency.Valid() {
		return nil, "", apperr.Validationf("urgência inválida: %s", urgency)
	}

	var count int64
	if err := s.db.Model(&models.BloodType{}).Where("type = ?", bloodType).Count(&count).Error; err != nil {
		return nil, "", err
	}
	if count == 0 {
		return nil, "", apperr.Validationf("tipo sanguíneo desconhecido: %s", bloodType)
	}

	advisory := ""
	if urgency != models.UrgencyEmergency {
		balance, err := s.ledger.CurrentBalance(bloodType)
		if err != nil {
			return nil, "", err
		}
		if balance < quantity {
			advisory = fmt.Sprintf("Estoque atual de %s: %d. Sua requisição será enviada para aprovação.", bloodType, balance)
		}
	}

	req := models.Request{
		BloodType:   bloodType,
		Quantity:    quantity,
		RequesterID: requesterID,
		RequestDate: time.Now(),
		Status:      models.RequestPending,
		Urgency:     urgency,
		PatientInfo: patientInfo,
	}
	if err := s.db.Create(&req).Error; err != nil {
		return nil, "", err
	}

	if err := s.notifier.NotifyNewRequest(&req); err != nil {
		log.Printf("Falha ao notificar nova requisição #%d: %v", req.ID, err)
	}

	return &req, advisory, nil
}

// Approve resolve a requisição para approved e dá baixa no estoque.
// Checagem e baixa rodam sob o lock do tipo, dentro de uma transação:
// ou a requisição sai aprovada com o lote de saída gravado, ou nada muda.
func (s *Service) Approve(requestID, responderID uint) (*models.Request, error) {
	var probe models.Request
	if err := s.db.First(&probe, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	lock := s.lockFor(probe.BloodType)
	lock.Lock()
	defer lock.Unlock()

	var req models.Request
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return apperr.ErrInvalidState
		}

		tl := s.ledger.WithTx(tx)
		balance, err := tl.CurrentBalance(req.BloodType)
		if err != nil {
			return err
		}
		if balance < req.Quantity {
			return &apperr.InsufficientStockError{
				BloodType: req.BloodType,
				Requested: req.Quantity,
				Available: balance,
			}
		}

		now := time.Now()
		req.Status = models.RequestApproved
		req.ResponderID = &responderID
		req.ResponseDate = &now
		if err := tx.Save(&req).Error; err != nil {
			return err
		}

		_, err = tl.IssueLot(req.BloodType, req.Quantity, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyResolution(&req); err != nil {
		log.Printf("Falha ao notificar resolução da requisição #%d: %v", req.ID, err)
	}

	return &req, nil
}

// Reject resolve a requisição para rejected, exigindo motivo não vazio.
func (s *Service) Reject(requestID, responderID uint, reason string) (*models.Request, error) {
	if reason == "" {
		return nil, apperr.Validationf("informe o motivo da rejeição")
	}

	var req models.Request
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}
		if req.Status != models.RequestPending {
			return apperr.ErrInvalidState
		}

		now := time.Now()
		req.Status = models.RequestRejected
		req.ResponderID = &responderID
		req.ResponseDate = &now
		req.RejectionReason = reason
		return tx.Save(&req).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyResolution(&req); err != nil {
		log.Printf("Falha ao notificar resolução da requisição #%d: %v", req.ID, err)
	}

	return &req, nil
}

// ListByStatus filtra por status ("" = todas), ordenado por data de criação
// descendente.
func (s *Service) ListByStatus(status models.RequestStatus) ([]models.Request, error) {
	q := s.db.Preload("Requester").Preload("Responder").Order("request_date DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reqs []models.Request
	if err := q.Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *Service) ListByRequester(requesterID uint) ([]models.Request, error) {
	var reqs []models.Request
	err := s.db.
		Where("requester_id = ?", requesterID).
		Order("request_date DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}
