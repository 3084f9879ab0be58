package api

import (
	"errors"
	"fmt"
	"log"

	"rag/model"
	"rag/service"
	"rag/types"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the central fiber error handler: it maps the service and
// provider error taxonomy onto HTTP statuses and keeps every failure as a
// single descriptive JSON payload.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiError, ok := err.(Error); ok {
		return c.Status(apiError.Code).JSON(apiError)
	}
	var valError types.ValidationError
	if errors.As(err, &valError) {
		return c.Status(valError.Status).JSON(valError)
	}

	apiError := mapError(err)
	log.Printf("request failed with code %d: %s\n", apiError.Code, apiError.Message)
	return c.Status(apiError.Code).JSON(apiError)
}

func mapError(err error) Error {
	var provErr *model.ProviderError
	var batchErr *service.BatchExhaustedError
	var fiberErr *fiber.Error

	switch {
	case errors.Is(err, model.ErrNotConfigured):
		return NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrNoChunks):
		return NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &batchErr), errors.As(err, &provErr):
		return NewError(fiber.StatusBadGateway, err.Error())
	case errors.As(err, &fiberErr):
		return NewError(fiberErr.Code, fiberErr.Message)
	default:
		return NewError(fiber.StatusInternalServerError, err.Error())
	}
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrNotFound[T any](arg T, resource string) Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with %v not found", resource, arg),
	}
}
