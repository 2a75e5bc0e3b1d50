package orders

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/therma-erp/therma-erp/internal/catalog"
	"github.com/therma-erp/therma-erp/internal/rbac"
)

type memoryOrderRepo struct {
	orders map[int64]Order
	nextID int64
}

type memoryOrderTx struct {
	repo *memoryOrderRepo
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[int64]Order)}
}

func (r *memoryOrderRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryOrderTx{repo: r})
}

func (r *memoryOrderRepo) ListOrders(ctx context.Context) ([]Order, error) {
	out := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *memoryOrderRepo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (tx *memoryOrderTx) CreateOrder(ctx context.Context, o Order) (int64, error) {
	tx.repo.nextID++
	o.ID = tx.repo.nextID
	tx.repo.orders[o.ID] = o
	return o.ID, nil
}

func (tx *memoryOrderTx) CreateOrderItem(ctx context.Context, item OrderItem) (int64, error) {
	tx.repo.nextID++
	item.ID = tx.repo.nextID
	order := tx.repo.orders[item.OrderID]
	order.Items = append(order.Items, item)
	tx.repo.orders[item.OrderID] = order
	return item.ID, nil
}

func (tx *memoryOrderTx) CreateCustomOrder(ctx context.Context, custom CustomOrder) (int64, error) {
	tx.repo.nextID++
	custom.ID = tx.repo.nextID
	order := tx.repo.orders[custom.OrderID]
	order.CustomItems = append(order.CustomItems, custom)
	tx.repo.orders[custom.OrderID] = order
	return custom.ID, nil
}

func (tx *memoryOrderTx) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	return tx.repo.GetOrder(ctx, id)
}

func (tx *memoryOrderTx) SetOrderStatus(ctx context.Context, id int64, status OrderStatus) error {
	o := tx.repo.orders[id]
	o.Status = status
	tx.repo.orders[id] = o
	return nil
}

func (tx *memoryOrderTx) DeleteOrder(ctx context.Context, id int64) error {
	delete(tx.repo.orders, id)
	return nil
}

type stubCatalog struct {
	products map[int64]catalog.Product
}

func (c *stubCatalog) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func testCatalog() *stubCatalog {
	return &stubCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Boiler BX-200", Price: 1000},
		2: {ID: 2, Name: "Radiator R-10", Price: 500},
	}}
}

func manager() rbac.Principal {
	return rbac.Principal{UserID: 2, Username: "a3", Roles: rbac.NewRoleSet(rbac.RoleManager)}
}

func newOrderService(strict bool) (*Service, *memoryOrderRepo) {
	repo := newMemoryOrderRepo()
	return NewService(repo, testCatalog(), nil, strict), repo
}

func TestCreateOrderTotalMatchesItems(t *testing.T) {
	svc, _ := newOrderService(false)

	order, err := svc.CreateOrder(context.Background(), manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		Items: []ItemInput{
			{ProductID: 1, Quantity: 3, UnitPrice: 1000},
			{ProductID: 2, Quantity: 2, UnitPrice: 500},
		},
	})
	require.NoError(t, err)
	require.Equal(t, OrderNew, order.Status)
	require.Len(t, order.Items, 2)

	var sum float64
	for _, item := range order.Items {
		sum += item.TotalPrice
	}
	require.Equal(t, 4000.0, sum)
	require.Equal(t, sum, order.TotalAmount)
}

func TestCreateOrderTotalProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		svc, _ := newOrderService(false)
		n := 1 + rng.Intn(8)
		input := CreateOrderInput{CustomerName: "Ivanov"}
		for i := 0; i < n; i++ {
			input.Items = append(input.Items, ItemInput{
				ProductID: int64(1 + rng.Intn(2)),
				Quantity:  int64(1 + rng.Intn(50)),
				UnitPrice: float64(1 + rng.Intn(10000)),
			})
		}
		order, err := svc.CreateOrder(context.Background(), manager(), input)
		require.NoError(t, err)

		var sum float64
		for _, item := range order.Items {
			sum += item.TotalPrice
		}
		require.Equal(t, sum, order.TotalAmount)
	}
}

func TestCreateOrderBadDateTolerant(t *testing.T) {
	svc, _ := newOrderService(false)

	order, err := svc.CreateOrder(context.Background(), manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		DeliveryDate: "not-a-date",
		Items:        []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Nil(t, order.DeliveryDate)
}

func TestCreateOrderBadDateStrict(t *testing.T) {
	svc, _ := newOrderService(true)

	_, err := svc.CreateOrder(context.Background(), manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		DeliveryDate: "not-a-date",
		Items:        []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateOrderGoodDateParsed(t *testing.T) {
	svc, _ := newOrderService(false)

	order, err := svc.CreateOrder(context.Background(), manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		DeliveryDate: "03/15/2026",
		Items:        []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, order.DeliveryDate)
	require.Equal(t, 2026, order.DeliveryDate.Year())
}

func TestCreateOrderUnresolvableProductTolerant(t *testing.T) {
	svc, _ := newOrderService(false)

	order, err := svc.CreateOrder(context.Background(), manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		Items:        []ItemInput{{ProductID: 99, Quantity: 5, UnitPrice: 100}},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	require.Nil(t, order.Items[0].ProductID)
	require.Zero(t, order.Items[0].TotalPrice)
	require.Zero(t, order.TotalAmount)
}

func TestCreateOrderUnresolvableProductStrict(t *testing.T) {
	svc, _ := newOrderService(true)

	_, err := svc.CreateOrder(context.Background(), manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		Items:        []ItemInput{{ProductID: 99, Quantity: 5}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateOrderUnitPriceFallsBackToCatalog(t *testing.T) {
	svc, _ := newOrderService(false)

	order, err := svc.CreateOrder(context.Background(), manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		Items:        []ItemInput{{ProductID: 2, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 500.0, order.Items[0].UnitPrice)
	require.Equal(t, 2000.0, order.TotalAmount)
}

func TestOrderLifecycle(t *testing.T) {
	svc, _ := newOrderService(false)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		Items:        []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	started, err := svc.StartProduction(ctx, manager(), order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderInProduction, started.Status)

	// completed is terminal
	completed, err := svc.Complete(ctx, manager(), order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderCompleted, completed.Status)

	_, err = svc.Cancel(ctx, manager(), order.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.StartProduction(ctx, manager(), order.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStartProductionRequiresProducibleItem(t *testing.T) {
	svc, _ := newOrderService(false)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		Items:        []ItemInput{{ProductID: 99, Quantity: 5}},
	})
	require.NoError(t, err)

	_, err = svc.StartProduction(ctx, manager(), order.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderNew, stored.Status)
}

func TestCancelFromNewAndInProduction(t *testing.T) {
	svc, _ := newOrderService(false)
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		Items:        []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	cancelled, err := svc.Cancel(ctx, manager(), first.ID)
	require.NoError(t, err)
	require.Equal(t, OrderCancelled, cancelled.Status)

	second, err := svc.CreateOrder(ctx, manager(), CreateOrderInput{
		CustomerName: "Petrov",
		Items:        []ItemInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = svc.StartProduction(ctx, manager(), second.ID)
	require.NoError(t, err)
	cancelled, err = svc.Cancel(ctx, manager(), second.ID)
	require.NoError(t, err)
	require.Equal(t, OrderCancelled, cancelled.Status)
}

func TestDeleteOrderRemovesLines(t *testing.T) {
	svc, repo := newOrderService(false)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		Items:        []ItemInput{{ProductID: 1, Quantity: 1}},
		CustomItems:  []CustomItemInput{{ProductName: "Custom boiler", Quantity: 1, UnitPrice: 9000}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(ctx, manager(), order.ID))
	require.Empty(t, repo.orders)
	require.ErrorIs(t, svc.DeleteOrder(ctx, manager(), order.ID), ErrNotFound)
}

func TestCustomItemsCountTowardsTotal(t *testing.T) {
	svc, _ := newOrderService(false)

	order, err := svc.CreateOrder(context.Background(), manager(), CreateOrderInput{
		CustomerName: "Ivanov",
		Items:        []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 1000}},
		CustomItems:  []CustomItemInput{{ProductName: "Custom boiler", Quantity: 2, UnitPrice: 9000}},
	})
	require.NoError(t, err)
	require.Equal(t, 19000.0, order.TotalAmount)
}
