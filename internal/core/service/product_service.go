package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/inventory-web/internal/core/domain"
	"github.com/99minutos/inventory-web/internal/core/ports"
)

// ProductService wraps the product table. Every method issues exactly one
// backend call and hands backend errors back unchanged.
type ProductService struct {
	repo   ports.ProductRepository
	logger zerolog.Logger
}

func NewProductService(repo ports.ProductRepository, logger zerolog.Logger) *ProductService {
	return &ProductService{repo: repo, logger: logger}
}

// ListProducts returns every product, newest first.
func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// GetProduct returns nil, nil when id matches no row.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateProduct inserts a product owned by the session user in ctx, if any.
func (s *ProductService) CreateProduct(ctx context.Context, input domain.ProductInput) (*domain.Product, error) {
	if input.Quantity < 0 || input.Price < 0 {
		return nil, domain.ErrInvalidProduct
	}

	var createdBy *string
	if sess := domain.SessionFromContext(ctx); sess != nil && sess.User.ID != "" {
		uid := sess.User.ID
		createdBy = &uid
	}

	product, err := s.repo.Insert(ctx, input, createdBy)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("failed to create product: %w", domain.ErrProductWriteFailed)
	}

	s.logger.Info().Str("product_id", product.ID).Str("category", product.Category).Msg("product created")
	return product, nil
}

// UpdateProduct applies patch to the product with the given id.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	if (patch.Quantity != nil && *patch.Quantity < 0) || (patch.Price != nil && *patch.Price < 0) {
		return nil, domain.ErrInvalidProduct
	}

	product, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("failed to update product: %w", domain.ErrProductWriteFailed)
	}

	s.logger.Info().Str("product_id", id).Msg("product updated")
	return product, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// GetDashboardStats fetches the full product list and reduces it locally.
func (s *ProductService) GetDashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return domain.ComputeDashboardStats(products), nil
}
