package handler

import "github.com/99minutos/inventory-web/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type createProductRequest struct {
	Name        string  `json:"name"        validate:"required,max=200"`
	Category    string  `json:"category"    validate:"required,max=100"`
	Quantity    int     `json:"quantity"    validate:"min=0"`
	Unit        string  `json:"unit"        validate:"required,max=32"`
	Price       float64 `json:"price"       validate:"min=0"`
	Description *string `json:"description"`
}

type updateProductRequest struct {
	Name        *string  `json:"name"        validate:"omitempty,min=1,max=200"`
	Category    *string  `json:"category"    validate:"omitempty,min=1,max=100"`
	Quantity    *int     `json:"quantity"    validate:"omitempty,min=0"`
	Unit        *string  `json:"unit"        validate:"omitempty,min=1,max=32"`
	Price       *float64 `json:"price"       validate:"omitempty,min=0"`
	Description *string  `json:"description"`
}

// productForm is the HTML form shape; browsers post every field as text.
type productForm struct {
	Name        string `form:"name"`
	Category    string `form:"category"`
	Quantity    string `form:"quantity"`
	Unit        string `form:"unit"`
	Price       string `form:"price"`
	Description string `form:"description"`
}

type productListResponse struct {
	Products []domain.Product `json:"products"`
}

type profileListResponse struct {
	Profiles []domain.Profile `json:"profiles"`
}
