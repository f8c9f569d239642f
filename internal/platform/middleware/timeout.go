package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/claims/internal/platform/fhir"
)

// IssueTypeTimeout is the OperationOutcome code for an exceeded deadline.
const IssueTypeTimeout = "timeout"

// RequestTimeout puts a deadline on the request context. Handlers and the
// storage calls under them observe it; if the deadline has passed when the
// handler returns and nothing was written, the client gets a 504.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return c.JSON(http.StatusGatewayTimeout, fhir.NewOperationOutcome(
					fhir.IssueSeverityError, IssueTypeTimeout,
					"Request processing exceeded the allowed time limit",
				))
			}
			return err
		}
	}
}
