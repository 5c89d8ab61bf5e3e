package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/inventory-web/internal/api/metrics"
	"github.com/99minutos/inventory-web/internal/core/service"
)

// LoadingTemplate is rendered by GuardPage while the auth state resolves.
const LoadingTemplate = "loading"

// submitWait bounds how long a form submission waits for the session to load.
const submitWait = 5 * time.Second

type guardResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// GuardPage protects an HTML route. While the session is still resolving a
// GET renders the loading view, which reloads itself. Any other method waits
// for the session instead, since reloading would drop the submitted form.
func GuardPage(requiresManager bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := evaluate(c, requiresManager)
			if d.Outcome == service.GuardLoading && !idempotent(c.Request().Method) {
				ctx, cancel := context.WithTimeout(c.Request().Context(), submitWait)
				MustAuthState(c).WaitLoaded(ctx)
				cancel()
				d = evaluate(c, requiresManager)
			}
			switch d.Outcome {
			case service.GuardLoading:
				if !idempotent(c.Request().Method) {
					c.Response().Header().Set("Retry-After", "1")
					return c.String(http.StatusServiceUnavailable, "session still loading, please resubmit")
				}
				c.Response().Header().Set("Cache-Control", "no-store")
				return c.Render(http.StatusOK, LoadingTemplate, nil)
			case service.GuardRedirectLogin, service.GuardRedirectLanding:
				return c.Redirect(http.StatusSeeOther, d.RedirectTo)
			}
			return next(c)
		}
	}
}

// GuardAPI protects a JSON route with the same decision as GuardPage,
// expressed as status codes.
func GuardAPI(requiresManager bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := evaluate(c, requiresManager)
			switch d.Outcome {
			case service.GuardLoading:
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusServiceUnavailable, guardResponse{Error: "session loading"})
			case service.GuardRedirectLogin:
				return c.JSON(http.StatusUnauthorized, guardResponse{Error: "not authenticated", Redirect: d.RedirectTo})
			case service.GuardRedirectLanding:
				return c.JSON(http.StatusForbidden, guardResponse{Error: "forbidden", Redirect: d.RedirectTo})
			}
			return next(c)
		}
	}
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func evaluate(c echo.Context, requiresManager bool) service.GuardDecision {
	d := service.EvaluateGuard(MustAuthState(c).Snapshot(), requiresManager)
	metrics.GuardDecisionsTotal.WithLabelValues(d.Outcome.String()).Inc()
	return d
}
