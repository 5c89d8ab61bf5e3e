package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

// --- Request → Service input ---

func toProductInput(req createProductRequest) domain.ProductInput {
	return domain.ProductInput{
		Name:        req.Name,
		Category:    req.Category,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Price:       req.Price,
		Description: req.Description,
	}
}

func toProductPatch(req updateProductRequest) domain.ProductPatch {
	return domain.ProductPatch{
		Name:        req.Name,
		Category:    req.Category,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Price:       req.Price,
		Description: req.Description,
	}
}

// createRequest parses a posted product form. An empty description is
// stored as no description.
func (f productForm) createRequest() (createProductRequest, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(f.Quantity))
	if err != nil {
		return createProductRequest{}, fmt.Errorf("quantity must be a whole number")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(f.Price), 64)
	if err != nil {
		return createProductRequest{}, fmt.Errorf("price must be a number")
	}

	req := createProductRequest{
		Name:     f.Name,
		Category: f.Category,
		Quantity: qty,
		Unit:     f.Unit,
		Price:    price,
	}
	if d := strings.TrimSpace(f.Description); d != "" {
		req.Description = &d
	}
	return req, nil
}

// updateRequest parses a posted edit form. The form always carries every
// field, so all of them are set.
func (f productForm) updateRequest() (updateProductRequest, error) {
	full, err := f.createRequest()
	if err != nil {
		return updateProductRequest{}, err
	}
	desc := strings.TrimSpace(f.Description)
	return updateProductRequest{
		Name:        &full.Name,
		Category:    &full.Category,
		Quantity:    &full.Quantity,
		Unit:        &full.Unit,
		Price:       &full.Price,
		Description: &desc,
	}, nil
}

func (r *createProductRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.Unit = strings.TrimSpace(r.Unit)
}

func (r *updateProductRequest) normalize() {
	r.Name = trimmed(r.Name)
	r.Category = trimmed(r.Category)
	r.Unit = trimmed(r.Unit)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
