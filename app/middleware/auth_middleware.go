// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/leadforge/leadforge/app/dto"
	"github.com/leadforge/leadforge/app/services"
)

// AuthMiddleware handles JWT token validation for the admin dashboard
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// AdminAuthenticate validates JWT tokens and sets admin-specific context values
func (m *AuthMiddleware) AdminAuthenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Authorization header is required",
				Error:   dto.ErrorDetail{Code: "MISSING_AUTHORIZATION_HEADER"},
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Invalid authorization header format. Expected 'Bearer <token>'",
				Error:   dto.ErrorDetail{Code: "INVALID_AUTHORIZATION_FORMAT"},
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Access token is required",
				Error:   dto.ErrorDetail{Code: "MISSING_ACCESS_TOKEN"},
			})
		}

		adminClaims, err := m.tokenService.ValidateAdminToken(token)
		if err != nil {
			var code, msg string
			if errors.Is(err, services.ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
				msg = "Access token has expired"
			} else if errors.Is(err, services.ErrTokenInvalid) {
				code = "TOKEN_INVALID"
				msg = "Invalid access token"
			} else {
				code = "TOKEN_VALIDATION_FAILED"
				msg = "Token validation failed"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{Success: false, Message: msg, Error: dto.ErrorDetail{Code: code}})
		}

		c.Locals("admin_id", adminClaims.AdminID)
		c.Locals("token_id", adminClaims.TokenID)
		c.Locals("token_claims", adminClaims)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// GetAdminIDFromContext extracts admin ID from the request context
func GetAdminIDFromContext(c fiber.Ctx) (uint, bool) {
	adminID, ok := c.Locals("admin_id").(uint)
	return adminID, ok
}

// RequireAdminAuth ensures admin authentication is present
func RequireAdminAuth(c fiber.Ctx) error {
	adminID, exists := GetAdminIDFromContext(c)
	if !exists || adminID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "Admin authentication required",
			Error:   dto.ErrorDetail{Code: "ADMIN_AUTHENTICATION_REQUIRED"},
		})
	}
	return nil
}
