package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/influnest/backend/internal/http/dto"
	"github.com/influnest/backend/internal/middleware"
	"github.com/influnest/backend/internal/services"
	"go.uber.org/zap"
)

type OracleHandler struct {
	oracleService *services.OracleService
	log           *zap.Logger
}

func NewOracleHandler(oracleService *services.OracleService, log *zap.Logger) *OracleHandler {
	return &OracleHandler{oracleService: oracleService, log: log}
}

func (h *OracleHandler) GetOracle(c *fiber.Ctx) error {
	cfg, err := h.oracleService.Get(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: cfg})
}

func (h *OracleHandler) RotateOracle(c *fiber.Ctx) error {
	var req dto.RotateOracleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	caller := middleware.GetCallerAddress(c)
	cfg, err := h.oracleService.Rotate(c.Context(), caller, req.NewOracleAddr)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: cfg})
}
