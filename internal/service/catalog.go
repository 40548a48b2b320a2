package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dkotelnikov/storefront/internal/events"
	"github.com/dkotelnikov/storefront/internal/logging"
	"github.com/dkotelnikov/storefront/internal/models"
	"github.com/dkotelnikov/storefront/internal/repo"
	"github.com/dkotelnikov/storefront/internal/service/search"
)

type CatalogService struct {
	Products *repo.ProductRepo
	Producer events.Publisher
	Indexer  *search.Indexer
}

type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
	Category    string          `json:"category"`
	Stock       uint            `json:"stock"`
}

// ProductPatch updates only the fields present in the request.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Images      *[]string        `json:"images"`
	Category    *string          `json:"category"`
	Stock       *uint            `json:"stock"`
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}

	product := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Images:      in.Images,
		Category:    in.Category,
		Stock:       in.Stock,
	}
	if err := s.Products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.index(ctx, product)
	s.publish(ctx, product.ID, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"name":      product.Name,
	})
	return product, nil
}

func (s *CatalogService) Patch(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	product, err := s.Products.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}

	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
		}
		product.Price = *patch.Price
	}
	if patch.Images != nil {
		product.Images = *patch.Images
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}

	if err := s.Products.Save(ctx, product); err != nil {
		return nil, err
	}

	s.index(ctx, product)
	s.publish(ctx, product.ID, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
		"name":      product.Name,
	})
	return product, nil
}

func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	if err := s.Products.Delete(ctx, id); err != nil {
		return err
	}

	if s.Indexer != nil {
		if err := s.Indexer.DeleteProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Error("search deindex error", "productID", id, "error", err)
		}
	}
	s.publish(ctx, id, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return nil
}

func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.Products.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}
	return product, nil
}

func (s *CatalogService) List(ctx context.Context, f repo.ProductFilter, offset, limit int) ([]models.Product, int64, error) {
	return s.Products.List(ctx, f, offset, limit)
}

// index failures never fail the write; the catalog row is the source of
// truth and the index catches up on the next update.
func (s *CatalogService) index(ctx context.Context, p *models.Product) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Error("search index error", "productID", p.ID, "error", err)
	}
}

func (s *CatalogService) publish(ctx context.Context, productID uint, event map[string]any) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, events.TopicProductEvents, fmt.Sprint(productID), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
