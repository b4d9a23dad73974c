package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/influnest/backend/internal/addrs"
	"github.com/influnest/backend/internal/auth"
	"github.com/influnest/backend/internal/config"
	"github.com/influnest/backend/internal/http/dto"
	"go.uber.org/zap"
)

// AuthHandler mints address-bearing tokens for the trusted identity layer.
// Wallet login itself (signature verification, sessions) lives outside the
// engine; whoever holds the shared secret vouches for the address.
type AuthHandler struct {
	cfg *config.Config
	log *zap.Logger
}

func NewAuthHandler(cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, log: log}
}

func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	if h.cfg.IdentitySecret == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "token minting is not configured"})
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.cfg.IdentitySecret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid identity secret"})
	}

	address, err := addrs.Normalize(req.Address)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, address, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.TokenResponse{Token: token, Address: address})
}
