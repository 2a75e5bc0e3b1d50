package procurement

import (
	"context"
	"fmt"
	"strings"

	"github.com/therma-erp/therma-erp/internal/rbac"
	"github.com/therma-erp/therma-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListCompanies(ctx context.Context) ([]Company, error)
	GetCompany(ctx context.Context, id int64) (Company, error)
	CreateCompany(ctx context.Context, company Company) (int64, error)
	ListResources(ctx context.Context) ([]Resource, error)
	GetResource(ctx context.Context, id int64) (Resource, error)
	FindResourceByName(ctx context.Context, name string) (Resource, error)
	CreateResource(ctx context.Context, resource Resource) (int64, error)
	UpdateResource(ctx context.Context, resource Resource) error
	DeleteResource(ctx context.Context, id int64) error
	ListRequests(ctx context.Context) ([]ResourceRequest, error)
	GetRequest(ctx context.Context, id int64) (ResourceRequest, error)
	CreateRequest(ctx context.Context, request ResourceRequest) (int64, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	GetRequestForUpdate(ctx context.Context, id int64) (ResourceRequest, error)
	SetRequestStatus(ctx context.Context, id int64, status RequestStatus) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates supplier companies, resources and the resource
// request workflow.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CompanyInput describes the company creation payload.
type CompanyInput struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// ListCompanies returns all supplier companies.
func (s *Service) ListCompanies(ctx context.Context) ([]Company, error) {
	return s.repo.ListCompanies(ctx)
}

// CreateCompany registers a supplier organisation. Company names are
// unique; violations surface as ErrDuplicate.
func (s *Service) CreateCompany(ctx context.Context, input CompanyInput) (Company, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Company{}, ErrValidation
	}
	company := Company{Name: input.Name, Address: input.Address, Phone: input.Phone, Email: input.Email}
	id, err := s.repo.CreateCompany(ctx, company)
	if err != nil {
		return Company{}, err
	}
	company.ID = id
	return company, nil
}

// ResourceInput describes the resource create/update payload.
type ResourceInput struct {
	Name        string
	Type        string
	Quantity    int64
	Unit        string
	CostPerUnit float64
	CompanyID   int64
}

func (in *ResourceInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Type == "" || in.Quantity < 0 || in.CostPerUnit < 0 || in.CompanyID == 0 {
		return ErrValidation
	}
	return nil
}

// ListResources returns all resources with their company names.
func (s *Service) ListResources(ctx context.Context) ([]Resource, error) {
	return s.repo.ListResources(ctx)
}

// CreateResource adds a resource line under an existing company.
func (s *Service) CreateResource(ctx context.Context, input ResourceInput) (Resource, error) {
	if err := input.validate(); err != nil {
		return Resource{}, err
	}
	company, err := s.repo.GetCompany(ctx, input.CompanyID)
	if err != nil {
		return Resource{}, err
	}
	resource := Resource{
		Name:        input.Name,
		Type:        input.Type,
		Quantity:    input.Quantity,
		Unit:        input.Unit,
		CostPerUnit: input.CostPerUnit,
		CompanyID:   company.ID,
		CompanyName: company.Name,
	}
	id, err := s.repo.CreateResource(ctx, resource)
	if err != nil {
		return Resource{}, err
	}
	resource.ID = id
	return resource, nil
}

// UpdateResource replaces the mutable fields of an existing resource.
func (s *Service) UpdateResource(ctx context.Context, id int64, input ResourceInput) (Resource, error) {
	if err := input.validate(); err != nil {
		return Resource{}, err
	}
	current, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	company, err := s.repo.GetCompany(ctx, input.CompanyID)
	if err != nil {
		return Resource{}, err
	}
	current.Name = input.Name
	current.Type = input.Type
	current.Quantity = input.Quantity
	current.Unit = input.Unit
	current.CostPerUnit = input.CostPerUnit
	current.CompanyID = company.ID
	current.CompanyName = company.Name
	if err := s.repo.UpdateResource(ctx, current); err != nil {
		return Resource{}, err
	}
	return current, nil
}

// DeleteResource removes a resource line.
func (s *Service) DeleteResource(ctx context.Context, id int64) error {
	if _, err := s.repo.GetResource(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteResource(ctx, id)
}

// RequestInput describes the resource request creation payload.
type RequestInput struct {
	ResourceName string
	Quantity     int64
	Priority     string
}

// ListRequests returns all resource requests.
func (s *Service) ListRequests(ctx context.Context) ([]ResourceRequest, error) {
	return s.repo.ListRequests(ctx)
}

// GetRequest fetches a single request.
func (s *Service) GetRequest(ctx context.Context, id int64) (ResourceRequest, error) {
	return s.repo.GetRequest(ctx, id)
}

// CreateRequest opens a pending resource request. The requested name is
// matched against the resource catalog; a miss leaves the link empty and
// keeps the literal name, so requests for not-yet-listed resources are
// accepted.
func (s *Service) CreateRequest(ctx context.Context, actor rbac.Principal, input RequestInput) (ResourceRequest, error) {
	input.ResourceName = strings.TrimSpace(input.ResourceName)
	if input.ResourceName == "" || input.Quantity <= 0 {
		return ResourceRequest{}, ErrValidation
	}
	if input.Priority == "" {
		input.Priority = "medium"
	}
	request := ResourceRequest{
		ResourceName: input.ResourceName,
		Quantity:     input.Quantity,
		Priority:     input.Priority,
		Status:       RequestPending,
		RequestedBy:  actor.Username,
	}
	if resource, err := s.repo.FindResourceByName(ctx, input.ResourceName); err == nil {
		request.ResourceID = &resource.ID
	}
	id, err := s.repo.CreateRequest(ctx, request)
	if err != nil {
		return ResourceRequest{}, err
	}
	request.ID = id
	return request, nil
}

// Approve moves a pending request to approved.
func (s *Service) Approve(ctx context.Context, actor rbac.Principal, id int64) (ResourceRequest, error) {
	return s.transition(ctx, actor, id, RequestApproved)
}

// Reject terminally rejects a pending request.
func (s *Service) Reject(ctx context.Context, actor rbac.Principal, id int64) (ResourceRequest, error) {
	return s.transition(ctx, actor, id, RequestRejected)
}

// MarkPurchased advances an approved request to purchased.
func (s *Service) MarkPurchased(ctx context.Context, actor rbac.Principal, id int64) (ResourceRequest, error) {
	return s.transition(ctx, actor, id, RequestPurchased)
}

// MarkDelivered advances a purchased request to delivered.
func (s *Service) MarkDelivered(ctx context.Context, actor rbac.Principal, id int64) (ResourceRequest, error) {
	return s.transition(ctx, actor, id, RequestDelivered)
}

// transition performs one atomic read-validate-write status change. Every
// edge of the request state machine passes through here, so out-of-order
// calls fail with ErrInvalidTransition and leave the row untouched.
func (s *Service) transition(ctx context.Context, actor rbac.Principal, id int64, target RequestStatus) (ResourceRequest, error) {
	if !rbac.Authorize(actor, rbac.RoleSupplier, rbac.RoleDirector) {
		return ResourceRequest{}, ErrForbidden
	}
	var request ResourceRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetRequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
		}
		if err := tx.SetRequestStatus(ctx, id, target); err != nil {
			return err
		}
		current.Status = target
		request = current
		return nil
	})
	if err != nil {
		return ResourceRequest{}, err
	}
	s.recordAudit(ctx, actor, "request."+string(target), request.ID)
	return request, nil
}

func (s *Service) recordAudit(ctx context.Context, actor rbac.Principal, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "resource_request",
		EntityID: fmt.Sprintf("%d", entityID),
	})
}
