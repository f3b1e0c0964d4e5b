package http

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/login-service/internal/observability"
	apperrors "github.com/spec-kit/login-service/pkg/util"
)

// RegisterMiddlewares attaches global middlewares. The request logger sits
// outside error handling so it records the rendered status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New())
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

// NewErrorHandler returns a fiber.Config ErrorHandler for errors raised
// outside the middleware chain.
func NewErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return renderError(c, err, logger, metrics)
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err != nil {
				err = renderError(c, err, logger, metrics)
			}
		}()
		return c.Next()
	}
}

// renderError writes {code, message, status?, ...details} at the top level.
func renderError(c *fiber.Ctx, err error, logger *zap.Logger, metrics *observability.Metrics) error {
	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(routePath(c), c.Method(), domainErr.Code)

	response := fiber.Map{}
	for key, value := range domainErr.Details {
		response[key] = value
	}
	response["code"] = domainErr.Code
	response["message"] = domainErr.Message
	if domainErr.Label != "" {
		response["status"] = domainErr.Label
	}
	if retry, ok := domainErr.Details["retryAfterSeconds"]; ok {
		c.Set(fiber.HeaderRetryAfter, fmt.Sprint(retry))
	}

	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("code", domainErr.Code),
			zap.String("path", c.Path()),
			zap.Error(domainErr))
	}
	return c.Status(domainErr.HTTPStatus).JSON(response)
}

func routePath(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}
