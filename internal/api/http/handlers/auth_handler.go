package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/login-service/internal/api/dto"
	"github.com/spec-kit/login-service/internal/service"
	apperrors "github.com/spec-kit/login-service/pkg/util"
)

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewInvalidInput(service.MsgInvalidData)
		}
	}

	res, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(dto.LoginResponse{
		Message:     res.Message,
		Status:      res.Status,
		AccessToken: res.AccessToken,
		ExpiresAt:   res.ExpiresAt,
		User:        res.User,
	})
}
