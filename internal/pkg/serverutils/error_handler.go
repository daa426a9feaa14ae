package serverutils

import (
	"errors"

	"rma-engine-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a domain error kind to an HTTP status.
func StatusFor(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindInvalidState, apperror.KindConflict:
		return fiber.StatusConflict
	case apperror.KindPolicyViolation:
		return fiber.StatusUnprocessableEntity
	case apperror.KindInvalidInput:
		return fiber.StatusBadRequest
	case apperror.KindDependencyFailure:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler is the fiber error handler. Domain errors keep their code;
// fiber errors keep their status.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
	}

	status := StatusFor(err)
	res := ErrorResponse(status, err.Error())
	if status == fiber.StatusInternalServerError {
		res.Message = "internal server error"
	}
	res.ErrorCode = apperror.CodeOf(err)
	return ctx.Status(status).JSON(res)
}

// ErrorHandlerMiddleware renders errors returned by later handlers so that
// middleware registered before it still sees the final status.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return ErrorHandler(ctx, err)
		}
		return nil
	}
}
