// Package ledger é a fonte autoritativa do estoque: quantas unidades de cada
// tipo sanguíneo existem agora, e se isso está abaixo do mínimo configurado.
// Todo saldo do sistema passa por aqui; nenhum outro componente soma lotes.
package ledger

import (
	"errors"
	"time"

	"hemolife-backend/internal/apperr"
	"hemolife-backend/internal/models"

	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// WithTx devolve um Service operando dentro da transação dada.
// Usado pelo fluxo de aprovação para manter checagem + baixa na mesma unidade.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{db: tx}
}

// CurrentBalance soma todos os lotes do tipo. Sem lotes, retorna 0.
func (s *Service) CurrentBalance(bloodType string) (int, error) {
	var balance *int
	err := s.db.Model(&models.LotEntry{}).
		Select("SUM(quantity)").
		Where("blood_type = ?", bloodType).
		Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	if balance == nil {
		return 0, nil
	}
	return *balance, nil
}

// AddLot registra uma entrada de estoque (doação ou ajuste manual).
// Não dispara alertas: isso é responsabilidade do AlertEngine, acionado
// pelo chamador depois.
func (s *Service) AddLot(bloodType string, quantity int, entryDate, expirationDate time.Time, donorRef *string) (*models.LotEntry, error) {
	if quantity <= 0 {
		return nil, apperr.Validationf("quantidade deve ser um número positivo")
	}
	if expirationDate.Before(entryDate) {
		return nil, apperr.Validationf("data de validade não pode ser anterior à data de entrada")
	}
	if err := s.checkType(bloodType); err != nil {
		return nil, err
	}

	entry := models.LotEntry{
		BloodType:      bloodType,
		Quantity:       quantity,
		EntryDate:      entryDate,
		ExpirationDate: expirationDate,
		DonorRef:       donorRef,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// IssueLot registra a saída de estoque de uma requisição aprovada: um lote
// com quantidade negada. Uso exclusivo do fluxo de requisições, que faz a
// checagem de suficiência antes; aqui o append é puro e nunca rejeita saldo.
func (s *Service) IssueLot(bloodType string, quantity int, responseTime time.Time) (*models.LotEntry, error) {
	if quantity <= 0 {
		return nil, apperr.Validationf("quantidade deve ser um número positivo")
	}

	entry := models.LotEntry{
		BloodType:      bloodType,
		Quantity:       -quantity,
		EntryDate:      responseTime,
		ExpirationDate: responseTime, // validade só faz sentido em lotes positivos
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ExpiringWithin lista lotes positivos com validade entre agora e agora+window,
// ordenados por validade crescente.
func (s *Service) ExpiringWithin(window time.Duration) ([]models.LotEntry, error) {
	now := time.Now()
	var lots []models.LotEntry
	err := s.db.
		Where("quantity > 0 AND expiration_date >= ? AND expiration_date <= ?", now, now.Add(window)).
		Order("expiration_date ASC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (s *Service) MinimumStock(bloodType string) (int, error) {
	var bt models.BloodType
	if err := s.db.First(&bt, "type = ?", bloodType).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.ErrNotFound
		}
		return 0, err
	}
	return bt.MinStock, nil
}

// SetMinimumStock é uma mutação administrativa; não mexe em lotes existentes.
func (s *Service) SetMinimumStock(bloodType string, value int) error {
	if value < 0 {
		return apperr.Validationf("estoque mínimo não pode ser negativo")
	}
	res := s.db.Model(&models.BloodType{}).
		Where("type = ?", bloodType).
		Update("min_stock", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// TypeSummary: saldo atual de um tipo contra seu mínimo.
type TypeSummary struct {
	BloodType string `json:"blood_type"`
	Balance   int    `json:"balance"`
	MinStock  int    `json:"min_stock"`
	Low       bool   `json:"low"`
}

// SummaryByType computa saldo x mínimo para todos os tipos, ordenado por tipo.
// Alimenta dashboard, relatório e a checagem de estoque baixo.
func (s *Service) SummaryByType() ([]TypeSummary, error) {
	var types []models.BloodType
	if err := s.db.Order("type ASC").Find(&types).Error; err != nil {
		return nil, err
	}

	summaries := make([]TypeSummary, 0, len(types))
	for _, bt := range types {
		balance, err := s.CurrentBalance(bt.Type)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, TypeSummary{
			BloodType: bt.Type,
			Balance:   balance,
			MinStock:  bt.MinStock,
			Low:       balance < bt.MinStock,
		})
	}
	return summaries, nil
}

func (s *Service) checkType(bloodType string) error {
	var count int64
	if err := s.db.Model(&models.BloodType{}).Where("type = ?", bloodType).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.Validationf("tipo sanguíneo desconhecido: %s", bloodType)
	}
	return nil
}
