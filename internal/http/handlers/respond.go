package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/influnest/backend/internal/http/dto"
	"github.com/influnest/backend/internal/middleware"
	"github.com/influnest/backend/internal/models"
	"go.uber.org/zap"
)

// respondError maps the engine's typed errors onto HTTP statuses. Every
// branch keeps the original message so callers see the campaign id, caller,
// and offending field the error carries.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)
	body := dto.ErrorResponse{Error: err.Error(), RequestID: reqID}

	var (
		valErr   *models.ValidationError
		authErr  *models.AuthorizationError
		stateErr *models.InvalidStateError
		expErr   *models.ExpiryError
		nfErr    *models.NotFoundError
		vaultErr *models.InsufficientVaultBalanceError
	)

	switch {
	case errors.As(err, &valErr):
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.As(err, &authErr):
		return c.Status(fiber.StatusForbidden).JSON(body)
	case errors.As(err, &stateErr):
		return c.Status(fiber.StatusConflict).JSON(body)
	case errors.As(err, &expErr):
		return c.Status(fiber.StatusGone).JSON(body)
	case errors.As(err, &nfErr):
		return c.Status(fiber.StatusNotFound).JSON(body)
	case errors.As(err, &vaultErr):
		// Ledger invariant breach: loud log, opaque response.
		log.Error("vault balance invariant violated", zap.String("request_id", reqID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error", RequestID: reqID})
	default:
		log.Error("unhandled error", zap.String("request_id", reqID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error", RequestID: reqID})
	}
}
