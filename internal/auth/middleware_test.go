package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/login-service/pkg/util"
)

func newProtectedApp(tm *TokenManager, roles ...string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code})
		},
	})
	app.Get("/protected", NewAuthMiddleware(tm).Handle, RequireRole(roles...), func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(principal.AccountID)
	})
	return app
}

func TestAuthMiddlewareAndRoles(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, "")
	adminToken, _, err := tm.GenerateToken("u_001", "admin")
	require.NoError(t, err)
	userToken, _, err := tm.GenerateToken("u_002", "user")
	require.NoError(t, err)

	cases := map[string]struct {
		header         string
		expectedStatus int
	}{
		"admin token passes":         {header: "Bearer " + adminToken, expectedStatus: http.StatusOK},
		"scheme is case-insensitive": {header: "bearer " + adminToken, expectedStatus: http.StatusOK},
		"non-admin role forbidden":   {header: "Bearer " + userToken, expectedStatus: http.StatusForbidden},
		"missing header":             {header: "", expectedStatus: http.StatusUnauthorized},
		"wrong scheme":               {header: "Basic abc", expectedStatus: http.StatusUnauthorized},
		"garbage token":              {header: "Bearer nope", expectedStatus: http.StatusUnauthorized},
	}

	app := newProtectedApp(tm, "admin")
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedStatus, resp.StatusCode)
		})
	}
}
