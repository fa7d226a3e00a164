package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// RequestIDKey is the fiber Locals key holding the request id.
const RequestIDKey = "requestid"

// unmatchedRoute labels requests that reached no registered route.
const unmatchedRoute = "unmatched"

// RouteLabel returns the matched route pattern, or unmatchedRoute.
func RouteLabel(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
		return r.Path
	}
	if c.Path() == "/" {
		return "/"
	}
	return unmatchedRoute
}

// RequestLogger writes one access log line per request and feeds request metrics.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = apperrors.ToDomainError(err).HTTPStatus
		}
		route := RouteLabel(c)
		duration := time.Since(start)

		metrics.RecordRequest(route, c.Method(), status, duration)

		rid, _ := c.Locals(RequestIDKey).(string)
		logger.Info("http_request",
			zap.String("request_id", rid),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
		return err
	}
}
