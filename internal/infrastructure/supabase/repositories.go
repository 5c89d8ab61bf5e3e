package supabase

import (
	"context"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

const (
	tableProfiles = "profiles"
	tableProducts = "products"
)

// ProfileRepository implements ports.ProfileRepository on the profiles table.
type ProfileRepository struct {
	client *Client
}

func NewProfileRepository(client *Client) *ProfileRepository {
	return &ProfileRepository{client: client}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	return maybeSingle[domain.Profile](ctx, r.client.From(tableProfiles).Select("*").Eq("id", id))
}

func (r *ProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	var rows []domain.Profile
	if err := r.client.From(tableProfiles).Select("*").Order("created_at", false).Exec(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ProductRepository implements ports.ProductRepository on the products table.
type ProductRepository struct {
	client *Client
}

func NewProductRepository(client *Client) *ProductRepository {
	return &ProductRepository{client: client}
}

type productRow struct {
	domain.ProductInput
	CreatedBy *string `json:"created_by"`
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	var rows []domain.Product
	if err := r.client.From(tableProducts).Select("*").Order("created_at", false).Exec(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	return maybeSingle[domain.Product](ctx, r.client.From(tableProducts).Select("*").Eq("id", id))
}

func (r *ProductRepository) Insert(ctx context.Context, input domain.ProductInput, createdBy *string) (*domain.Product, error) {
	q := r.client.From(tableProducts).Insert(productRow{ProductInput: input, CreatedBy: createdBy}).Select("*")
	return maybeSingle[domain.Product](ctx, q)
}

func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	q := r.client.From(tableProducts).Update(patch).Eq("id", id).Select("*")
	return maybeSingle[domain.Product](ctx, q)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.client.From(tableProducts).Delete().Eq("id", id).Exec(ctx, nil)
}
