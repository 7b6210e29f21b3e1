package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/model-gateway/internal/observability"
	apperrors "github.com/spec-kit/model-gateway/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares: request ids, error
// rendering, the latency budget and the request timeout, outermost first.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, latencyThreshold, timeout time.Duration) {
	app.Use(observability.RequestID())
	app.Use(errorHandlingMiddleware(logger))
	app.Use(observability.LatencySLA(logger, metrics, latencyThreshold))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
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

func errorHandlingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}

				fields := []zap.Field{
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.String("code", domainErr.Code),
					zap.String("request_id", observability.RequestIDFromContext(c)),
					zap.Error(domainErr),
				}
				if domainErr.HTTPStatus >= http.StatusInternalServerError {
					logger.Error("request failed", fields...)
				} else {
					logger.Debug("request rejected", fields...)
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// toDomainError also understands the router's own errors, such as an
// unmatched path.
func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case http.StatusNotFound:
			return apperrors.NewDomainError("NOT_FOUND", "route not found", fe.Code, nil)
		case http.StatusMethodNotAllowed:
			return apperrors.NewDomainError("METHOD_NOT_ALLOWED", "method not allowed", fe.Code, nil)
		}
		if fe.Code < http.StatusInternalServerError {
			return apperrors.NewDomainError("BAD_REQUEST", fe.Message, fe.Code, nil)
		}
	}
	return apperrors.ToDomainError(err)
}
