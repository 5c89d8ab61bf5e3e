package ports

import (
	"context"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

// ProductRepository defines persistence operations for products. A nil
// product with a nil error means the backend matched no row.
type ProductRepository interface {
	// List returns every product, newest first.
	List(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	Insert(ctx context.Context, input domain.ProductInput, createdBy *string) (*domain.Product, error)
	Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// ProductService defines use-case operations for products.
type ProductService interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, input domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	GetDashboardStats(ctx context.Context) (domain.DashboardStats, error)
}
