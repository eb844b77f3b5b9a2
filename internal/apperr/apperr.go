// Package apperr define a taxonomia de erros do núcleo. Os handlers HTTP
// traduzem cada um destes para uma resposta distinta; nenhum é tratado
// silenciosamente pelos serviços.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("registro não encontrado")
	ErrInvalidState    = errors.New("requisição já processada")
	ErrPermission      = errors.New("acesso negado")
	ErrForecastTimeout = errors.New("tempo limite excedido ao gerar previsão")
)

// ValidationError: entrada malformada (quantidade não positiva, motivo vazio,
// tipo sanguíneo desconhecido...).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InsufficientStockError carrega o saldo disponível para que o operador
// decida um caminho manual fora do núcleo.
type InsufficientStockError struct {
	BloodType string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("estoque insuficiente de %s: disponível %d, solicitado %d",
		e.BloodType, e.Available, e.Requested)
}

// InsufficientDataError: previsão exige no mínimo 30 dias distintos de histórico.
type InsufficientDataError struct {
	Days int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("dados insuficientes para previsão: %d dias de histórico (mínimo 30)", e.Days)
}
