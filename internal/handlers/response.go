package handlers

import (
	"errors"
	"strconv"

	"parishfund/server/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps an application error code onto an HTTP status
func statusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeInvalidArgument:
		return fiber.StatusBadRequest
	case apperror.CodeBlocked:
		return fiber.StatusForbidden
	case apperror.CodeNotFound:
		return fiber.StatusNotFound
	case apperror.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	code := apperror.CodeOf(err)
	status := statusFor(code)

	message := "Internal server error"
	if status != fiber.StatusInternalServerError {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
		"code":    apperror.CodeInvalidArgument,
	})
}

// userIDParam parses a positive numeric path parameter
func userIDParam(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
