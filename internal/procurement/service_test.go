package procurement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/therma-erp/therma-erp/internal/rbac"
)

type memoryProcRepo struct {
	companies map[int64]Company
	resources map[int64]Resource
	requests  map[int64]ResourceRequest
	nextID    int64
}

type memoryProcTx struct {
	repo *memoryProcRepo
}

func newMemoryProcRepo() *memoryProcRepo {
	return &memoryProcRepo{
		companies: make(map[int64]Company),
		resources: make(map[int64]Resource),
		requests:  make(map[int64]ResourceRequest),
	}
}

func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryProcTx{repo: r})
}

func (r *memoryProcRepo) ListCompanies(ctx context.Context) ([]Company, error) {
	out := make([]Company, 0, len(r.companies))
	for _, c := range r.companies {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryProcRepo) GetCompany(ctx context.Context, id int64) (Company, error) {
	c, ok := r.companies[id]
	if !ok {
		return Company{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryProcRepo) CreateCompany(ctx context.Context, c Company) (int64, error) {
	for _, existing := range r.companies {
		if existing.Name == c.Name {
			return 0, ErrDuplicate
		}
	}
	r.nextID++
	c.ID = r.nextID
	r.companies[c.ID] = c
	return c.ID, nil
}

func (r *memoryProcRepo) ListResources(ctx context.Context) ([]Resource, error) {
	out := make([]Resource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res)
	}
	return out, nil
}

func (r *memoryProcRepo) GetResource(ctx context.Context, id int64) (Resource, error) {
	res, ok := r.resources[id]
	if !ok {
		return Resource{}, ErrNotFound
	}
	return res, nil
}

func (r *memoryProcRepo) FindResourceByName(ctx context.Context, name string) (Resource, error) {
	for _, res := range r.resources {
		if res.Name == name {
			return res, nil
		}
	}
	return Resource{}, ErrNotFound
}

func (r *memoryProcRepo) CreateResource(ctx context.Context, res Resource) (int64, error) {
	r.nextID++
	res.ID = r.nextID
	r.resources[res.ID] = res
	return res.ID, nil
}

func (r *memoryProcRepo) UpdateResource(ctx context.Context, res Resource) error {
	if _, ok := r.resources[res.ID]; !ok {
		return ErrNotFound
	}
	r.resources[res.ID] = res
	return nil
}

func (r *memoryProcRepo) DeleteResource(ctx context.Context, id int64) error {
	if _, ok := r.resources[id]; !ok {
		return ErrNotFound
	}
	delete(r.resources, id)
	return nil
}

func (r *memoryProcRepo) ListRequests(ctx context.Context) ([]ResourceRequest, error) {
	out := make([]ResourceRequest, 0, len(r.requests))
	for _, rr := range r.requests {
		out = append(out, rr)
	}
	return out, nil
}

func (r *memoryProcRepo) GetRequest(ctx context.Context, id int64) (ResourceRequest, error) {
	rr, ok := r.requests[id]
	if !ok {
		return ResourceRequest{}, ErrNotFound
	}
	return rr, nil
}

func (r *memoryProcRepo) CreateRequest(ctx context.Context, rr ResourceRequest) (int64, error) {
	r.nextID++
	rr.ID = r.nextID
	r.requests[rr.ID] = rr
	return rr.ID, nil
}

func (tx *memoryProcTx) GetRequestForUpdate(ctx context.Context, id int64) (ResourceRequest, error) {
	return tx.repo.GetRequest(ctx, id)
}

func (tx *memoryProcTx) SetRequestStatus(ctx context.Context, id int64, status RequestStatus) error {
	rr := tx.repo.requests[id]
	rr.Status = status
	tx.repo.requests[id] = rr
	return nil
}

func supplierPrincipal() rbac.Principal {
	return rbac.Principal{UserID: 3, Username: "supplier1", Roles: rbac.NewRoleSet(rbac.RoleSupplier)}
}

func managerPrincipal() rbac.Principal {
	return rbac.Principal{UserID: 2, Username: "a3", Roles: rbac.NewRoleSet(rbac.RoleManager)}
}

func TestResourceListCarriesCompanyName(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	company, err := svc.CreateCompany(ctx, CompanyInput{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.CreateResource(ctx, ResourceInput{
		Name:        "Pipe-50mm",
		Type:        "material",
		Quantity:    1000,
		CostPerUnit: 15000,
		CompanyID:   company.ID,
	})
	require.NoError(t, err)

	resources, err := svc.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	require.Equal(t, "Acme", resources[0].CompanyName)
	require.Equal(t, "Pipe-50mm", resources[0].Name)
}

func TestCreateCompanyDuplicateName(t *testing.T) {
	svc := NewService(newMemoryProcRepo(), nil)
	ctx := context.Background()

	_, err := svc.CreateCompany(ctx, CompanyInput{Name: "Acme"})
	require.NoError(t, err)
	_, err = svc.CreateCompany(ctx, CompanyInput{Name: "Acme"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateResourceUnknownCompany(t *testing.T) {
	svc := NewService(newMemoryProcRepo(), nil)

	_, err := svc.CreateResource(context.Background(), ResourceInput{
		Name:      "Pipe-50mm",
		Type:      "material",
		Quantity:  10,
		CompanyID: 42,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRequestResolvesResourceByName(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	company, err := svc.CreateCompany(ctx, CompanyInput{Name: "Acme"})
	require.NoError(t, err)
	resource, err := svc.CreateResource(ctx, ResourceInput{
		Name: "Pipe-50mm", Type: "material", Quantity: 1000, CompanyID: company.ID,
	})
	require.NoError(t, err)

	request, err := svc.CreateRequest(ctx, managerPrincipal(), RequestInput{ResourceName: "Pipe-50mm", Quantity: 100, Priority: "high"})
	require.NoError(t, err)
	require.Equal(t, RequestPending, request.Status)
	require.Equal(t, "a3", request.RequestedBy)
	require.NotNil(t, request.ResourceID)
	require.Equal(t, resource.ID, *request.ResourceID)
}

func TestCreateRequestKeepsUnmatchedName(t *testing.T) {
	svc := NewService(newMemoryProcRepo(), nil)

	request, err := svc.CreateRequest(context.Background(), managerPrincipal(), RequestInput{ResourceName: "Solder wire", Quantity: 5})
	require.NoError(t, err)
	require.Nil(t, request.ResourceID)
	require.Equal(t, "Solder wire", request.ResourceName)
	require.Equal(t, "medium", request.Priority)
}

func TestApproveOnlyFromPending(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	request, err := svc.CreateRequest(ctx, managerPrincipal(), RequestInput{ResourceName: "Pipe-50mm", Quantity: 100, Priority: "high"})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, supplierPrincipal(), request.ID)
	require.NoError(t, err)
	require.Equal(t, RequestApproved, approved.Status)

	_, err = svc.Approve(ctx, supplierPrincipal(), request.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := svc.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, RequestApproved, stored.Status)
}

func TestRejectIsTerminal(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	request, err := svc.CreateRequest(ctx, managerPrincipal(), RequestInput{ResourceName: "Pipe-50mm", Quantity: 100})
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, supplierPrincipal(), request.ID)
	require.NoError(t, err)
	require.Equal(t, RequestRejected, rejected.Status)

	_, err = svc.Approve(ctx, supplierPrincipal(), request.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.MarkPurchased(ctx, supplierPrincipal(), request.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestForwardOnlyProgression(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	request, err := svc.CreateRequest(ctx, managerPrincipal(), RequestInput{ResourceName: "Pipe-50mm", Quantity: 100})
	require.NoError(t, err)

	// Skipping approval is not allowed.
	_, err = svc.MarkPurchased(ctx, supplierPrincipal(), request.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.MarkDelivered(ctx, supplierPrincipal(), request.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Approve(ctx, supplierPrincipal(), request.ID)
	require.NoError(t, err)
	purchased, err := svc.MarkPurchased(ctx, supplierPrincipal(), request.ID)
	require.NoError(t, err)
	require.Equal(t, RequestPurchased, purchased.Status)
	delivered, err := svc.MarkDelivered(ctx, supplierPrincipal(), request.ID)
	require.NoError(t, err)
	require.Equal(t, RequestDelivered, delivered.Status)

	_, err = svc.MarkDelivered(ctx, supplierPrincipal(), request.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionRequiresSupplierOrDirector(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	request, err := svc.CreateRequest(ctx, managerPrincipal(), RequestInput{ResourceName: "Pipe-50mm", Quantity: 100})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, managerPrincipal(), request.ID)
	require.ErrorIs(t, err, ErrForbidden)

	director := rbac.Principal{UserID: 1, Username: "director", Roles: rbac.NewRoleSet(rbac.RoleDirector)}
	approved, err := svc.Approve(ctx, director, request.ID)
	require.NoError(t, err)
	require.Equal(t, RequestApproved, approved.Status)
}

func TestApproveMissingRequest(t *testing.T) {
	svc := NewService(newMemoryProcRepo(), nil)

	_, err := svc.Approve(context.Background(), supplierPrincipal(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}
