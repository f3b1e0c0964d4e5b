package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/login-service/internal/service"
)

// DebugHandler serves diagnostic listings.
type DebugHandler struct {
	accounts *service.AccountService
}

func NewDebugHandler(accounts *service.AccountService) *DebugHandler {
	return &DebugHandler{accounts: accounts}
}

// ListUsers handles GET /api/debug/users.
func (h *DebugHandler) ListUsers(c *fiber.Ctx) error {
	summaries, err := h.accounts.ListAccounts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(summaries)
}
