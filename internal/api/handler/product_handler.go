package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/inventory-web/internal/api/metrics"
	"github.com/99minutos/inventory-web/internal/core/domain"
	"github.com/99minutos/inventory-web/internal/core/ports"
)

// ProductHandler handles the JSON product endpoints.
type ProductHandler struct {
	service ports.ProductService
}

func NewProductHandler(service ports.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// List returns every product, newest first.
//
// @Summary      List products
// @Tags         products
// @Produce      json
// @Success      200  {object}  productListResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/products [get]
func (h *ProductHandler) List(c echo.Context) error {
	ctx, err := sessionContext(c)
	if err != nil {
		return err
	}

	defer observe("list_products")()
	products, err := h.service.ListProducts(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, productListResponse{Products: products})
}

// Get returns one product.
//
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product id"
// @Success      200  {object}  domain.Product
// @Failure      404  {object}  errorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) Get(c echo.Context) error {
	ctx, err := sessionContext(c)
	if err != nil {
		return err
	}

	defer observe("get_product")()
	p, err := h.service.GetProduct(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if p == nil {
		return domain.ErrProductNotFound
	}
	return c.JSON(http.StatusOK, p)
}

// Create adds a product owned by the caller.
//
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body      createProductRequest  true  "Product"
// @Success      201   {object}  domain.Product
// @Failure      400   {object}  errorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c echo.Context) error {
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.normalize()
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, err := sessionContext(c)
	if err != nil {
		return err
	}

	defer observe("create_product")()
	p, err := h.service.CreateProduct(ctx, toProductInput(req))
	metrics.ProductMutationsTotal.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// Update changes the given fields of a product.
//
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Product id"
// @Param        body  body      updateProductRequest  true  "Fields to change"
// @Success      200   {object}  domain.Product
// @Failure      400   {object}  errorResponse
// @Router       /api/products/{id} [put]
func (h *ProductHandler) Update(c echo.Context) error {
	var req updateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.normalize()
	if err := c.Validate(&req); err != nil {
		return err
	}
	patch := toProductPatch(req)
	if patch.Empty() {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}

	ctx, err := sessionContext(c)
	if err != nil {
		return err
	}

	defer observe("update_product")()
	p, err := h.service.UpdateProduct(ctx, c.Param("id"), patch)
	metrics.ProductMutationsTotal.WithLabelValues("update", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Delete removes a product.
//
// @Summary      Delete a product
// @Tags         products
// @Param        id   path  string  true  "Product id"
// @Success      204
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) Delete(c echo.Context) error {
	ctx, err := sessionContext(c)
	if err != nil {
		return err
	}

	defer observe("delete_product")()
	err = h.service.DeleteProduct(ctx, c.Param("id"))
	metrics.ProductMutationsTotal.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// observe starts a backend timer; call the result when the call returns.
func observe(op string) func() {
	start := time.Now()
	return func() {
		metrics.BackendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
