package inventory

import (
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

// Handler exposes warehouse endpoints.
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

// MountRoutes registers inventory routes for warehouse and director.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.RoleWarehouse, rbac.RoleDirector))
		r.Get("/items", h.handleListItems)
		r.Get("/items/{id}", h.handleGetItem)
		r.Post("/items", h.handleCreateItem)
		r.Post("/movements", h.handlePostMovement)
		r.Get("/transactions", h.handleListTransactions)
	})
}

type itemResponse struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	Quantity     int64     `json:"quantity"`
	MinStock     int64     `json:"min_stock"`
	PricePerUnit float64   `json:"price_per_unit"`
	Location     string    `json:"location,omitempty"`
	LowStock     bool      `json:"low_stock"`
	OutOfStock   bool      `json:"out_of_stock"`
	LastUpdated  time.Time `json:"last_updated"`
}

func toItemResponse(item InventoryItem) itemResponse {
	return itemResponse{
		ID:           item.ID,
		ProductID:    item.ProductID,
		ProductName:  item.ProductName,
		Quantity:     item.Quantity,
		MinStock:     item.MinStock,
		PricePerUnit: item.PricePerUnit,
		Location:     item.Location,
		LowStock:     item.LowStock(),
		OutOfStock:   item.OutOfStock(),
		LastUpdated:  item.LastUpdated,
	}
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		h.logger.Error("list inventory items", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

type createItemBody struct {
	ProductID    int64   `json:"product_id" validate:"required"`
	Quantity     int64   `json:"quantity" validate:"gte=0"`
	MinStock     int64   `json:"min_stock" validate:"gte=0"`
	PricePerUnit float64 `json:"price_per_unit" validate:"gte=0"`
	Location     string  `json:"location"`
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	item, err := h.service.CreateItem(r.Context(), principal, ItemInput{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		MinStock:     req.MinStock,
		PricePerUnit: req.PricePerUnit,
		Location:     req.Location,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toItemResponse(item))
}

type movementBody struct {
	ItemID   int64  `json:"item_id" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=in out"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
	Reason   string `json:"reason"`
}

func (h *Handler) handlePostMovement(w http.ResponseWriter, r *http.Request) {
	var req movementBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	item, err := h.service.PostMovement(r.Context(), principal, MovementInput{
		ItemID:   req.ItemID,
		Type:     MovementType(req.Type),
		Quantity: req.Quantity,
		Reason:   req.Reason,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

type transactionResponse struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Type      string    `json:"type"`
	Quantity  int64     `json:"quantity"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	transactions, err := h.service.ListTransactions(r.Context(), limit)
	if err != nil {
		h.logger.Error("list inventory transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, transactionResponse{
			ID:        t.ID,
			ProductID: t.ProductID,
			Type:      string(t.Type),
			Quantity:  t.Quantity,
			Reason:    t.Reason,
			CreatedAt: t.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "inventory item does not exist")
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("inventory operation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
