package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ToFiber traduz um erro do núcleo para a resposta HTTP correspondente.
// Estoque insuficiente é tratado à parte nos handlers que precisam devolver
// o saldo disponível no corpo.
func ToFiber(err error) error {
	var ve *ValidationError
	var ise *InsufficientStockError
	var ide *InsufficientDataError

	switch {
	case errors.As(err, &ve):
		return fiber.NewError(fiber.StatusBadRequest, ve.Reason)
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Registro não encontrado")
	case errors.Is(err, ErrInvalidState):
		return fiber.NewError(fiber.StatusConflict, "Requisição já processada")
	case errors.Is(err, ErrPermission):
		return fiber.NewError(fiber.StatusForbidden, "Acesso negado")
	case errors.Is(err, ErrForecastTimeout):
		return fiber.NewError(fiber.StatusGatewayTimeout, "Tempo limite excedido ao gerar previsão")
	case errors.As(err, &ise):
		return fiber.NewError(fiber.StatusUnprocessableEntity, ise.Error())
	case errors.As(err, &ide):
		return fiber.NewError(fiber.StatusUnprocessableEntity, ide.Error())
	}
	return err
}
