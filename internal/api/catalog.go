package api

import (
	"context"

	"github.com/Raj-venom/scrap-dai-client/internal/catalog"
)

// CatalogService reads the category and price list.
type CatalogService struct {
	client *Client
}

// ListCategories returns every category with its scraps and prices.
func (s *CatalogService) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	if err := s.client.get(ctx, "/category/all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ catalog.Fetcher = (*CatalogService)(nil)
