package catalog

import (
	"context"
	"strings"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	FindProductByName(ctx context.Context, name string) (Product, error)
	CreateProduct(ctx context.Context, product Product) (int64, error)
	UpdateProduct(ctx context.Context, product Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// Service manages the product catalog.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ProductInput describes the create/update payload.
type ProductInput struct {
	Name          string
	Description   string
	Price         float64
	Category      string
	StockQuantity int64
	MinStockLevel int64
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Price < 0 || in.StockQuantity < 0 || in.MinStockLevel < 0 {
		return ErrValidation
	}
	return nil
}

// ListProducts returns the full catalog.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.repo.ListProducts(ctx)
}

// GetProduct fetches a single product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct adds a catalog item.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	if err := input.validate(); err != nil {
		return Product{}, err
	}
	product := Product{
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		Category:      input.Category,
		StockQuantity: input.StockQuantity,
		MinStockLevel: input.MinStockLevel,
	}
	id, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return Product{}, err
	}
	product.ID = id
	return product, nil
}

// UpdateProduct replaces the mutable fields of an existing product.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input ProductInput) (Product, error) {
	if err := input.validate(); err != nil {
		return Product{}, err
	}
	current, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	current.Name = input.Name
	current.Description = input.Description
	current.Price = input.Price
	current.Category = input.Category
	current.StockQuantity = input.StockQuantity
	current.MinStockLevel = input.MinStockLevel
	if err := s.repo.UpdateProduct(ctx, current); err != nil {
		return Product{}, err
	}
	return current, nil
}

// DeleteProduct removes a catalog item.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.repo.GetProduct(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, id)
}
