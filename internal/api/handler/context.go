package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/inventory-web/internal/api/middleware"
	"github.com/99minutos/inventory-web/internal/core/domain"
)

// sessionContext returns the request context carrying the caller's backend
// session, so data access runs as that user. Routes behind the guard always
// have one; an expired session is refreshed on the way.
func sessionContext(c echo.Context) (context.Context, error) {
	ctx := c.Request().Context()
	sess, err := middleware.MustAuthState(c).CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	return domain.ContextWithSession(ctx, sess), nil
}
