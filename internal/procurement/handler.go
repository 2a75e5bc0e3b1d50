package procurement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/therma-erp/therma-erp/internal/platform/httpx"
	"github.com/therma-erp/therma-erp/internal/rbac"
)

// Handler exposes procurement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers procurement routes. Any authenticated user can
// browse companies/resources and open requests; mutating resources and
// deciding requests is reserved for supplier and director.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuthenticated())
		r.Get("/companies", h.handleListCompanies)
		r.Get("/resources", h.handleListResources)
		r.Get("/requests", h.handleListRequests)
		r.Post("/requests", h.handleCreateRequest)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.RoleSupplier, rbac.RoleDirector))
		r.Post("/companies", h.handleCreateCompany)
		r.Post("/resources", h.handleCreateResource)
		r.Put("/resources/{id}", h.handleUpdateResource)
		r.Delete("/resources/{id}", h.handleDeleteResource)
		r.Post("/requests/{id}/approve", h.transitionHandler(h.service.Approve))
		r.Post("/requests/{id}/reject", h.transitionHandler(h.service.Reject))
		r.Post("/requests/{id}/purchase", h.transitionHandler(h.service.MarkPurchased))
		r.Post("/requests/{id}/deliver", h.transitionHandler(h.service.MarkDelivered))
	})
}

type companyResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type resourceResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"resource_type"`
	Quantity    int64     `json:"quantity"`
	Unit        string    `json:"unit,omitempty"`
	CostPerUnit float64   `json:"cost_per_unit"`
	CompanyID   int64     `json:"company_id"`
	CompanyName string    `json:"company_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type requestResponse struct {
	ID           int64     `json:"id"`
	ResourceName string    `json:"resource_name"`
	ResourceID   *int64    `json:"resource_id,omitempty"`
	Quantity     int64     `json:"quantity"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	RequestedBy  string    `json:"requested_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toCompanyResponse(c Company) companyResponse {
	return companyResponse{ID: c.ID, Name: c.Name, Address: c.Address, Phone: c.Phone, Email: c.Email, CreatedAt: c.CreatedAt}
}

func toResourceResponse(res Resource) resourceResponse {
	return resourceResponse{
		ID:          res.ID,
		Name:        res.Name,
		Type:        res.Type,
		Quantity:    res.Quantity,
		Unit:        res.Unit,
		CostPerUnit: res.CostPerUnit,
		CompanyID:   res.CompanyID,
		CompanyName: res.CompanyName,
		CreatedAt:   res.CreatedAt,
	}
}

func toRequestResponse(rr ResourceRequest) requestResponse {
	return requestResponse{
		ID:           rr.ID,
		ResourceName: rr.ResourceName,
		ResourceID:   rr.ResourceID,
		Quantity:     rr.Quantity,
		Priority:     rr.Priority,
		Status:       string(rr.Status),
		RequestedBy:  rr.RequestedBy,
		CreatedAt:    rr.CreatedAt,
	}
}

func (h *Handler) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context())
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]companyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, toCompanyResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createCompanyRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (h *Handler) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	company, err := h.service.CreateCompany(r.Context(), CompanyInput{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCompanyResponse(company))
}

func (h *Handler) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.service.ListResources(r.Context())
	if err != nil {
		h.logger.Error("list resources", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]resourceResponse, 0, len(resources))
	for _, res := range resources {
		out = append(out, toResourceResponse(res))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type resourceRequestBody struct {
	Name        string  `json:"name" validate:"required"`
	Type        string  `json:"resource_type" validate:"required"`
	Quantity    int64   `json:"quantity" validate:"gte=0"`
	Unit        string  `json:"unit"`
	CostPerUnit float64 `json:"cost_per_unit" validate:"gte=0"`
	CompanyID   int64   `json:"company_id" validate:"required"`
}

func (h *Handler) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var req resourceRequestBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	resource, err := h.service.CreateResource(r.Context(), ResourceInput{
		Name:        req.Name,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		CostPerUnit: req.CostPerUnit,
		CompanyID:   req.CompanyID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResourceResponse(resource))
}

func (h *Handler) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req resourceRequestBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	resource, err := h.service.UpdateResource(r.Context(), id, ResourceInput{
		Name:        req.Name,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		CostPerUnit: req.CostPerUnit,
		CompanyID:   req.CompanyID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResourceResponse(resource))
}

func (h *Handler) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.DeleteResource(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListRequests(r.Context())
	if err != nil {
		h.logger.Error("list requests", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]requestResponse, 0, len(requests))
	for _, rr := range requests {
		out = append(out, toRequestResponse(rr))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createRequestBody struct {
	ResourceName string `json:"resource_name" validate:"required"`
	Quantity     int64  `json:"quantity" validate:"gt=0"`
	Priority     string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	request, err := h.service.CreateRequest(r.Context(), principal, RequestInput{
		ResourceName: req.ResourceName,
		Quantity:     req.Quantity,
		Priority:     req.Priority,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRequestResponse(request))
}

func (h *Handler) transitionHandler(fn func(ctx context.Context, actor rbac.Principal, id int64) (ResourceRequest, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		principal, _ := rbac.PrincipalFromContext(r.Context())
		request, err := fn(r.Context(), principal, id)
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, toRequestResponse(request))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record does not exist")
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "a company with this name already exists")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "you do not have access to this operation")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("procurement operation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
