package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/inventory-web/internal/api/metrics"
	"github.com/99minutos/inventory-web/internal/api/middleware"
	"github.com/99minutos/inventory-web/internal/api/view"
	"github.com/99minutos/inventory-web/internal/core/domain"
	"github.com/99minutos/inventory-web/internal/core/ports"
)

// Page template names.
const (
	pageLogin     = "login"
	pageDashboard = "dashboard"
	pageProducts  = "products"
)

// PageHandler serves the HTML views and their form actions.
type PageHandler struct {
	products ports.ProductService
	profiles ports.ProfileService
	logger   zerolog.Logger
}

func NewPageHandler(products ports.ProductService, profiles ports.ProfileService, logger zerolog.Logger) *PageHandler {
	return &PageHandler{products: products, profiles: profiles, logger: logger}
}

func (h *PageHandler) page(c echo.Context, title string) view.PageData {
	snap := middleware.MustAuthState(c).Snapshot()
	return view.PageData{
		Title:     title,
		User:      snap.User(),
		Profile:   snap.Profile,
		IsManager: snap.IsManager(),
	}
}

// fail logs server-side failures and turns err into the page's error line.
func (h *PageHandler) fail(c echo.Context, data *view.PageData, err error) int {
	code, msg := StatusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Path()).Msg("page action failed")
	}
	data.Error = msg
	return code
}

// LoginPage renders the sign-in form. Signed-in users go straight in.
func (h *PageHandler) LoginPage(c echo.Context) error {
	snap := middleware.MustAuthState(c).Snapshot()
	if !snap.Loading && snap.User() != nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.Render(http.StatusOK, pageLogin, view.PageData{Title: "Sign in"})
}

func (h *PageHandler) LoginSubmit(c echo.Context) error {
	data := view.PageData{Title: "Sign in"}

	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return c.Render(h.fail(c, &data, err), pageLogin, data)
	}

	err := middleware.RotateSession(c).SignIn(c.Request().Context(), req.Username, req.Password)
	metrics.AuthAttemptsTotal.WithLabelValues("signin", authResult(err)).Inc()
	if err != nil {
		return c.Render(h.fail(c, &data, err), pageLogin, data)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *PageHandler) SignupSubmit(c echo.Context) error {
	data := view.PageData{Title: "Sign in"}

	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return c.Render(h.fail(c, &data, err), pageLogin, data)
	}

	signedIn, err := middleware.RotateSession(c).SignUp(c.Request().Context(), req.Username, req.Password)
	metrics.AuthAttemptsTotal.WithLabelValues("signup", authResult(err)).Inc()
	if err != nil {
		return c.Render(h.fail(c, &data, err), pageLogin, data)
	}
	if !signedIn {
		data.Notice = "Account created. Confirm it before signing in."
		return c.Render(http.StatusOK, pageLogin, data)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// Logout signs out and returns to the login page. A failed backend sign-out
// leaves the user signed in.
func (h *PageHandler) Logout(c echo.Context) error {
	err := middleware.MustAuthState(c).SignOut(c.Request().Context())
	metrics.AuthAttemptsTotal.WithLabelValues("signout", authResult(err)).Inc()
	if err != nil {
		h.logger.Error().Err(err).Msg("sign out failed")
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Dashboard renders the manager overview.
func (h *PageHandler) Dashboard(c echo.Context) error {
	data := h.page(c, "Dashboard")

	ctx, err := sessionContext(c)
	if errors.Is(err, domain.ErrNoSession) {
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	if err != nil {
		return c.Render(h.fail(c, &data, err), pageDashboard, data)
	}

	stats, err := h.products.GetDashboardStats(ctx)
	if err != nil {
		return c.Render(h.fail(c, &data, err), pageDashboard, data)
	}
	data.Stats = stats

	profiles, err := h.profiles.ListProfiles(ctx)
	if err != nil {
		return c.Render(h.fail(c, &data, err), pageDashboard, data)
	}
	data.Profiles = profiles

	return c.Render(http.StatusOK, pageDashboard, data)
}

// Products renders the product list; ?edit=<id> opens that product's form.
func (h *PageHandler) Products(c echo.Context) error {
	return h.renderProducts(c, http.StatusOK, "")
}

func (h *PageHandler) renderProducts(c echo.Context, code int, errMsg string) error {
	data := h.page(c, "Products")
	data.Error = errMsg

	ctx, err := sessionContext(c)
	if errors.Is(err, domain.ErrNoSession) {
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	if err != nil {
		return c.Render(h.fail(c, &data, err), pageProducts, data)
	}

	products, err := h.products.ListProducts(ctx)
	if err != nil {
		return c.Render(h.fail(c, &data, err), pageProducts, data)
	}
	data.Products = products

	if id := c.QueryParam("edit"); id != "" {
		p, err := h.products.GetProduct(ctx, id)
		if err != nil {
			return c.Render(h.fail(c, &data, err), pageProducts, data)
		}
		if p == nil {
			data.Error = "product not found"
		}
		data.Editing = p
	}

	return c.Render(code, pageProducts, data)
}

func (h *PageHandler) ProductCreate(c echo.Context) error {
	var form productForm
	if err := c.Bind(&form); err != nil {
		return h.renderProducts(c, http.StatusBadRequest, "invalid form")
	}
	req, err := form.createRequest()
	if err != nil {
		return h.renderProducts(c, http.StatusBadRequest, err.Error())
	}
	req.normalize()
	if err := c.Validate(&req); err != nil {
		return h.productActionFailed(c, err)
	}

	ctx, err := sessionContext(c)
	if err != nil {
		return h.productActionFailed(c, err)
	}
	_, err = h.products.CreateProduct(ctx, toProductInput(req))
	metrics.ProductMutationsTotal.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		return h.productActionFailed(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/products")
}

func (h *PageHandler) ProductUpdate(c echo.Context) error {
	var form productForm
	if err := c.Bind(&form); err != nil {
		return h.renderProducts(c, http.StatusBadRequest, "invalid form")
	}
	req, err := form.updateRequest()
	if err != nil {
		return h.renderProducts(c, http.StatusBadRequest, err.Error())
	}
	req.normalize()
	if err := c.Validate(&req); err != nil {
		return h.productActionFailed(c, err)
	}

	ctx, err := sessionContext(c)
	if err != nil {
		return h.productActionFailed(c, err)
	}
	_, err = h.products.UpdateProduct(ctx, c.Param("id"), toProductPatch(req))
	metrics.ProductMutationsTotal.WithLabelValues("update", metrics.Result(err)).Inc()
	if err != nil {
		return h.productActionFailed(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/products")
}

func (h *PageHandler) ProductDelete(c echo.Context) error {
	ctx, err := sessionContext(c)
	if err != nil {
		return h.productActionFailed(c, err)
	}
	err = h.products.DeleteProduct(ctx, c.Param("id"))
	metrics.ProductMutationsTotal.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return h.productActionFailed(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/products")
}

func (h *PageHandler) productActionFailed(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrNoSession) {
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	code, msg := StatusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Path()).Msg("product action failed")
	}
	return h.renderProducts(c, code, msg)
}
