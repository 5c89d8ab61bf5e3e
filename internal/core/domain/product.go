package domain

import (
	"errors"
	"time"
)

// LowStockThreshold is the quantity below which a product counts as low stock.
const LowStockThreshold = 10

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrProductWriteFailed = errors.New("product write returned no row")
)

// Product is a single inventory record.
type Product struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Category    string    `json:"category" bson:"category"`
	Quantity    int       `json:"quantity" bson:"quantity"`
	Unit        string    `json:"unit" bson:"unit"`
	Price       float64   `json:"price" bson:"price"`
	Description *string   `json:"description" bson:"description,omitempty"`
	CreatedBy   *string   `json:"created_by" bson:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// ProductInput carries the fields of a new product.
type ProductInput struct {
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Quantity    int     `json:"quantity" validate:"min=0"`
	Unit        string  `json:"unit" validate:"required"`
	Price       float64 `json:"price" validate:"min=0"`
	Description *string `json:"description,omitempty"`
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,min=1"`
	Quantity    *int     `json:"quantity,omitempty" validate:"omitempty,min=0"`
	Unit        *string  `json:"unit,omitempty" validate:"omitempty,min=1"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,min=0"`
	Description *string  `json:"description,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Quantity == nil &&
		p.Unit == nil && p.Price == nil && p.Description == nil
}

// Apply writes the set fields of p onto prod.
func (p ProductPatch) Apply(prod *Product) {
	if p.Name != nil {
		prod.Name = *p.Name
	}
	if p.Category != nil {
		prod.Category = *p.Category
	}
	if p.Quantity != nil {
		prod.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		prod.Unit = *p.Unit
	}
	if p.Price != nil {
		prod.Price = *p.Price
	}
	if p.Description != nil {
		prod.Description = p.Description
	}
}

// DashboardStats are the aggregates shown on the manager dashboard.
type DashboardStats struct {
	TotalProducts int     `json:"totalProducts"`
	TotalValue    float64 `json:"totalValue"`
	LowStockItems int     `json:"lowStockItems"`
	Categories    int     `json:"categories"`
}

// ComputeDashboardStats reduces an already-fetched product list.
func ComputeDashboardStats(products []Product) DashboardStats {
	stats := DashboardStats{TotalProducts: len(products)}
	categories := make(map[string]struct{}, len(products))
	for _, p := range products {
		stats.TotalValue += p.Price * float64(p.Quantity)
		if p.Quantity < LowStockThreshold {
			stats.LowStockItems++
		}
		categories[p.Category] = struct{}{}
	}
	stats.Categories = len(categories)
	return stats
}
