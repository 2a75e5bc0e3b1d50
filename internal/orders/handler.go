package orders

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

// Handler exposes order endpoints.
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

// MountRoutes registers order routes for manager and director.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.RoleManager, rbac.RoleDirector))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Post("/", h.handleCreate)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/start", h.transitionHandler(h.service.StartProduction))
		r.Post("/{id}/complete", h.transitionHandler(h.service.Complete))
		r.Post("/{id}/cancel", h.transitionHandler(h.service.Cancel))
	})
}

type orderItemResponse struct {
	ID         int64   `json:"id"`
	ProductID  *int64  `json:"product_id,omitempty"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

type customOrderResponse struct {
	ID             int64   `json:"id"`
	ProductName    string  `json:"product_name"`
	Specifications string  `json:"specifications,omitempty"`
	Quantity       int64   `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	TotalPrice     float64 `json:"total_price"`
}

type orderResponse struct {
	ID            int64                 `json:"id"`
	OrderNumber   string                `json:"order_number"`
	CustomerName  string                `json:"customer_name"`
	CustomerPhone string                `json:"customer_phone,omitempty"`
	CustomerEmail string                `json:"customer_email,omitempty"`
	TotalAmount   float64               `json:"total_amount"`
	Status        string                `json:"status"`
	OrderDate     time.Time             `json:"order_date"`
	DeliveryDate  *time.Time            `json:"delivery_date,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	UserID        int64                 `json:"user_id"`
	Items         []orderItemResponse   `json:"items"`
	CustomItems   []customOrderResponse `json:"custom_items,omitempty"`
}

func toResponse(o Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CustomerEmail: o.CustomerEmail,
		TotalAmount:   o.TotalAmount,
		Status:        string(o.Status),
		OrderDate:     o.OrderDate,
		DeliveryDate:  o.DeliveryDate,
		Notes:         o.Notes,
		UserID:        o.UserID,
		Items:         make([]orderItemResponse, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	for _, custom := range o.CustomItems {
		resp.CustomItems = append(resp.CustomItems, customOrderResponse{
			ID:             custom.ID,
			ProductName:    custom.ProductName,
			Specifications: custom.Specifications,
			Quantity:       custom.Quantity,
			UnitPrice:      custom.UnitPrice,
			TotalPrice:     custom.TotalPrice,
		})
	}
	return resp
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toResponse(o))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(order))
}

type orderItemBody struct {
	ProductID int64   `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type customItemBody struct {
	ProductName    string  `json:"product_name" validate:"required"`
	Specifications string  `json:"specifications"`
	Quantity       int64   `json:"quantity" validate:"gt=0"`
	UnitPrice      float64 `json:"unit_price" validate:"gte=0"`
}

type createOrderBody struct {
	CustomerName  string           `json:"customer_name" validate:"required"`
	CustomerPhone string           `json:"customer_phone"`
	CustomerEmail string           `json:"customer_email" validate:"omitempty,email"`
	DeliveryDate  string           `json:"delivery_date"`
	Notes         string           `json:"notes"`
	Items         []orderItemBody  `json:"items"`
	CustomItems   []customItemBody `json:"custom_items" validate:"dive"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	input := CreateOrderInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		DeliveryDate:  req.DeliveryDate,
		Notes:         req.Notes,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, ItemInput{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	for _, custom := range req.CustomItems {
		input.CustomItems = append(input.CustomItems, CustomItemInput{
			ProductName:    custom.ProductName,
			Specifications: custom.Specifications,
			Quantity:       custom.Quantity,
			UnitPrice:      custom.UnitPrice,
		})
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	order, err := h.service.CreateOrder(r.Context(), principal, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(order))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.DeleteOrder(r.Context(), principal, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) transitionHandler(fn func(ctx context.Context, actor rbac.Principal, id int64) (Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		principal, _ := rbac.PrincipalFromContext(r.Context())
		order, err := fn(r.Context(), principal, id)
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, toResponse(order))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "order does not exist")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("orders operation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
