package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"civic-vote/blockchain/ledger"
	"civic-vote/log"
	"civic-vote/registry"
	"civic-vote/service"
	"civic-vote/storage"
)

type errorResponse struct {
	Message string `json:"message"`
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrPollsClosed),
		errors.Is(err, service.ErrVoterInactive),
		errors.Is(err, service.ErrUnderage):
		return fiber.StatusForbidden
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, service.ErrVoterNotFound),
		errors.Is(err, ledger.ErrBlockNotFound),
		errors.Is(err, ledger.ErrReceiptNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, service.ErrAlreadyVoted):
		return fiber.StatusConflict
	case errors.Is(err, registry.ErrInvalid),
		errors.Is(err, service.ErrInvalidCandidate),
		errors.Is(err, service.ErrInvalidConstituency):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrQueueFull),
		errors.Is(err, service.ErrQueueClosed):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// errorHandler renders every error as {"message": ...}. Internal errors are
// logged and their text is not sent to the client.
func errorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	message := err.Error()
	if code == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		message = "Internal server error"
	}
	return c.Status(code).JSON(errorResponse{Message: message})
}

func badRequest(message string) error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}
