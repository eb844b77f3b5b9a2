// Package forecast transforma o histórico de requisições aprovadas em uma
// curva de demanda futura e uma recomendação de reposição. Componente de
// leitura pura: não possui entidade persistente própria.
package forecast

import (
	"context"
	"sort"
	"time"

	"hemolife-backend/internal/apperr"
	"hemolife-backend/internal/ledger"
	"hemolife-backend/internal/models"

	"gorm.io/gorm"
)

// MinHistoryDays: mínimo de dias distintos de histórico para treinar.
// Política rígida: séries curtas de contagens diárias ruidosas geram
// recomendações equivalentes a chute.
const MinHistoryDays = 30

type Service struct {
	db     *gorm.DB
	ledger *ledger.Service
}

func NewService(db *gorm.DB, led *ledger.Service) *Service {
	return &Service{db: db, ledger: led}
}

// DemandPoint: demanda observada de um dia.
type DemandPoint struct {
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
}

// ForecastPoint: demanda prevista de um dia futuro.
type ForecastPoint struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted"`
}

type Result struct {
	BloodType   string          `json:"blood_type"`
	HorizonDays int             `json:"horizon_days"`
	Points      []ForecastPoint `json:"points"`
}

// HistoricalDailyDemand agrupa as requisições aprovadas do tipo por dia de
// resolução, somando quantidades. No máximo um ponto por dia com demanda;
// dias sem aprovação são implicitamente zero.
func (s *Service) HistoricalDailyDemand(bloodType string) ([]DemandPoint, error) {
	var reqs []models.Request
	err := s.db.
		Where("blood_type = ? AND status = ?", bloodType, models.RequestApproved).
		Order("response_date ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}

	return groupByDay(reqs), nil
}

// dayOf: meia-noite do dia-calendário do instante, no fuso do próprio instante.
// Truncar por 24h cortaria no dia UTC e moveria resoluções perto da meia-noite
// para o dia errado.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func groupByDay(reqs []models.Request) []DemandPoint {
	byDay := make(map[time.Time]int)
	for _, r := range reqs {
		if r.ResponseDate == nil {
			continue
		}
		byDay[dayOf(*r.ResponseDate)] += r.Quantity
	}

	points := make([]DemandPoint, 0, len(byDay))
	for day, qty := range byDay {
		points = append(points, DemandPoint{Date: day, Quantity: qty})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}

// Forecast ajusta uma regressão linear por mínimos quadrados sobre
// (dia -> quantidade) e projeta horizonDays pontos futuros. Determinística
// para a mesma série; previsões nunca ficam negativas (clamp em zero).
// O contexto limita o tempo de ajuste: prazo estourado retorna
// ErrForecastTimeout em vez de bloquear.
func (s *Service) Forecast(ctx context.Context, bloodType string, history []DemandPoint, horizonDays int) (*Result, error) {
	if horizonDays <= 0 {
		return nil, apperr.Validationf("horizonte de previsão deve ser positivo")
	}
	// O piso é de dias-calendário distintos, não de pontos: uma série com
	// vários pontos no mesmo dia não vira janela de treino.
	distinct := make(map[time.Time]struct{}, len(history))
	for _, p := range history {
		distinct[dayOf(p.Date)] = struct{}{}
	}
	if len(distinct) < MinHistoryDays {
		return nil, &apperr.InsufficientDataError{Days: len(distinct)}
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.ErrForecastTimeout
	}

	// x = dias desde a primeira data, y = quantidade
	first := history[0].Date
	n := float64(len(history))
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range history {
		x := p.Date.Sub(first).Hours() / 24
		y := float64(p.Quantity)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	var slope, intercept float64
	if denom != 0 {
		slope = (n*sumXY - sumX*sumY) / denom
		intercept = (sumY - slope*sumX) / n
	} else {
		intercept = sumY / n
	}

	if err := ctx.Err(); err != nil {
		return nil, apperr.ErrForecastTimeout
	}

	last := history[len(history)-1].Date
	lastOffset := last.Sub(first).Hours() / 24
	points := make([]ForecastPoint, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		predicted := intercept + slope*(lastOffset+float64(i))
		if predicted < 0 {
			predicted = 0
		}
		points = append(points, ForecastPoint{
			Date:      last.AddDate(0, 0, i),
			Predicted: predicted,
		})
	}

	return &Result{BloodType: bloodType, HorizonDays: horizonDays, Points: points}, nil
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Recommendation struct {
	BloodType      string    `json:"blood_type"`
	CurrentBalance int       `json:"current_balance"`
	MinStock       int       `json:"min_stock"`
	TotalPredicted float64   `json:"total_predicted"`
	AvgDaily       float64   `json:"avg_daily"`
	PeakDate       time.Time `json:"peak_date"`
	PeakDemand     float64   `json:"peak_demand"`
	Sufficient     bool      `json:"sufficient"`
	Deficit        float64   `json:"deficit"`
	RestockTarget  float64   `json:"restock_target"`
	Priority       Priority  `json:"priority,omitempty"`
	EligibleDonors int64     `json:"eligible_donors"`
}

// Recommend compara o saldo atual com demanda prevista + estoque mínimo.
// Em déficit, sugere repor max(déficit, mínimo) com prioridade derivada da
// distância até o dia de pico: <=7 dias alta, <=14 média, senão baixa.
func (s *Service) Recommend(bloodType string, result *Result) (*Recommendation, error) {
	balance, err := s.ledger.CurrentBalance(bloodType)
	if err != nil {
		return nil, err
	}
	minStock, err := s.ledger.MinimumStock(bloodType)
	if err != nil {
		return nil, err
	}

	var total, peak float64
	peakDate := time.Time{}
	for _, p := range result.Points {
		total += p.Predicted
		if p.Predicted > peak || peakDate.IsZero() {
			peak = p.Predicted
			peakDate = p.Date
		}
	}

	rec := &Recommendation{
		BloodType:      bloodType,
		CurrentBalance: balance,
		MinStock:       minStock,
		TotalPredicted: total,
		AvgDaily:       total / float64(len(result.Points)),
		PeakDate:       peakDate,
		PeakDemand:     peak,
	}

	if float64(balance) >= total+float64(minStock) {
		rec.Sufficient = true
		return rec, nil
	}

	rec.Deficit = total + float64(minStock) - float64(balance)
	rec.RestockTarget = rec.Deficit
	if float64(minStock) > rec.RestockTarget {
		rec.RestockTarget = float64(minStock)
	}

	daysUntilPeak := int(time.Until(peakDate).Hours() / 24)
	switch {
	case daysUntilPeak <= 7:
		rec.Priority = PriorityHigh
	case daysUntilPeak <= 14:
		rec.Priority = PriorityMedium
	default:
		rec.Priority = PriorityLow
	}

	// Doadores do tipo que já podem doar de novo
	err = s.db.Model(&models.Donation{}).
		Where("blood_type = ? AND next_donation_date IS NOT NULL AND next_donation_date <= ?",
			bloodType, time.Now()).
		Count(&rec.EligibleDonors).Error
	if err != nil {
		return nil, err
	}

	return rec, nil
}
