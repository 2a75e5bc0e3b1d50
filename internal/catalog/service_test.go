package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryProductRepo struct {
	products map[int64]Product
	nextID   int64
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{products: make(map[int64]Product)}
}

func (r *memoryProductRepo) ListProducts(ctx context.Context) ([]Product, error) {
	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryProductRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryProductRepo) FindProductByName(ctx context.Context, name string) (Product, error) {
	for _, p := range r.products {
		if p.Name == name {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *memoryProductRepo) CreateProduct(ctx context.Context, p Product) (int64, error) {
	r.nextID++
	p.ID = r.nextID
	r.products[p.ID] = p
	return p.ID, nil
}

func (r *memoryProductRepo) UpdateProduct(ctx context.Context, p Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return ErrNotFound
	}
	r.products[p.ID] = p
	return nil
}

func (r *memoryProductRepo) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func TestCreateProduct(t *testing.T) {
	svc := NewService(newMemoryProductRepo())

	product, err := svc.CreateProduct(context.Background(), ProductInput{
		Name:          "Boiler BX-200",
		Price:         125000,
		Category:      "boilers",
		StockQuantity: 4,
		MinStockLevel: 2,
	})
	require.NoError(t, err)
	require.NotZero(t, product.ID)

	fetched, err := svc.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, "Boiler BX-200", fetched.Name)
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	svc := NewService(newMemoryProductRepo())

	_, err := svc.CreateProduct(context.Background(), ProductInput{Name: "Radiator", Price: -1})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateProductMissing(t *testing.T) {
	svc := NewService(newMemoryProductRepo())

	_, err := svc.UpdateProduct(context.Background(), 42, ProductInput{Name: "Radiator", Price: 900})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo)

	product, err := svc.CreateProduct(context.Background(), ProductInput{Name: "Valve", Price: 350})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(context.Background(), product.ID))
	require.ErrorIs(t, svc.DeleteProduct(context.Background(), product.ID), ErrNotFound)
}
