package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/influnest/backend/internal/auth"
	"github.com/influnest/backend/internal/config"
	"go.uber.org/zap"
)

const CtxAddress = "caller_address"

// AuthMiddleware extracts the caller's wallet address from the bearer token.
// Who the caller is was resolved by the identity layer at token mint time;
// from here on the engine only compares addresses.
func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxAddress, claims.Address)

		return c.Next()
	}
}

// GetCallerAddress returns the authenticated wallet address for the request.
func GetCallerAddress(c *fiber.Ctx) string {
	addr, _ := c.Locals(CtxAddress).(string)
	return addr
}
