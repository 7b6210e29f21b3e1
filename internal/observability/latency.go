package observability

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/model-gateway/pkg/util/errorutil"
)

// ErrLatencyExceeded marks a response discarded for being too slow.
var ErrLatencyExceeded = errors.New("latency budget exceeded")

// LatencySLA times everything downstream of it. A request that finishes
// successfully but slower than threshold is turned into a 500 after the
// fact; it is not a deadline. A timing record is logged for every request.
func LatencySLA(logger *zap.Logger, metrics *Metrics, threshold time.Duration) fiber.Handler {
	return latencySLA(logger, metrics, threshold, time.Now)
}

func latencySLA(logger *zap.Logger, metrics *Metrics, threshold time.Duration, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := now()
		err := c.Next()
		elapsed := now().Sub(start)

		route := c.Route().Path
		exceeded := elapsed > threshold
		if exceeded && err == nil {
			err = apperrors.NewInternalError(ErrLatencyExceeded)
			metrics.RecordLatencyExceeded(route)
		}

		status := c.Response().StatusCode()
		if err != nil {
			status = apperrors.ToDomainError(err).HTTPStatus
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		metrics.RecordRequest(c.Method(), route, status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("elapsed_ms", elapsed.Milliseconds()),
			zap.String("request_id", RequestIDFromContext(c)),
		}
		if exceeded {
			logger.Warn("latency budget exceeded", append(fields, zap.Duration("threshold", threshold))...)
		} else {
			logger.Info("request timing", fields...)
		}
		return err
	}
}
