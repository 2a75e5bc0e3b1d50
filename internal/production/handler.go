package production

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

// Handler exposes production endpoints.
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

// MountRoutes registers production routes for production and director.
// Quality control is also readable by supplier.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.RoleProduction, rbac.RoleDirector))
		r.Get("/tasks", h.handleListTasks)
		r.Post("/tasks", h.handleCreateTask)
		r.Post("/tasks/{id}/start", h.handleStartTask)
		r.Post("/tasks/{id}/complete", h.handleCompleteTask)
		r.Post("/quality-controls", h.handleCreateQualityControl)
		r.Get("/maintenance", h.handleListMaintenance)
		r.Post("/maintenance", h.handleCreateMaintenance)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.RoleProduction, rbac.RoleSupplier, rbac.RoleDirector))
		r.Get("/quality-controls", h.handleListQualityControls)
	})
}

type taskResponse struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toTaskResponse(t ProductionTask) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    t.Priority,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		AssignedTo:  t.AssignedTo,
		CreatedAt:   t.CreatedAt,
	}
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListTasks(r.Context())
	if err != nil {
		h.logger.Error("list tasks", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createTaskBody struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo  string `json:"assigned_to"`
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	task, err := h.service.CreateTask(r.Context(), principal, TaskInput{
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTaskResponse(task))
}

type taskTimestampBody struct {
	At *time.Time `json:"at"`
}

func (h *Handler) handleStartTask(w http.ResponseWriter, r *http.Request) {
	h.handleTaskTransition(w, r, h.service.StartTask)
}

func (h *Handler) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	h.handleTaskTransition(w, r, h.service.CompleteTask)
}

func (h *Handler) handleTaskTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor rbac.Principal, id int64, at *time.Time) (ProductionTask, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var body taskTimestampBody
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &body); err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	task, err := fn(r.Context(), principal, id, body.At)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTaskResponse(task))
}

type qualityControlResponse struct {
	ID          int64     `json:"id"`
	ProductName string    `json:"product_name"`
	BatchNumber string    `json:"batch_number,omitempty"`
	TestDate    time.Time `json:"test_date"`
	TestResults string    `json:"test_results,omitempty"`
	Status      string    `json:"status"`
}

func (h *Handler) handleListQualityControls(w http.ResponseWriter, r *http.Request) {
	controls, err := h.service.ListQualityControls(r.Context())
	if err != nil {
		h.logger.Error("list quality controls", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]qualityControlResponse, 0, len(controls))
	for _, qc := range controls {
		out = append(out, qualityControlResponse{
			ID:          qc.ID,
			ProductName: qc.ProductName,
			BatchNumber: qc.BatchNumber,
			TestDate:    qc.TestDate,
			TestResults: qc.TestResults,
			Status:      qc.Status,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createQualityControlBody struct {
	ProductName string `json:"product_name" validate:"required"`
	BatchNumber string `json:"batch_number"`
	TestResults string `json:"test_results"`
	Status      string `json:"status" validate:"omitempty,oneof=pending passed failed"`
}

func (h *Handler) handleCreateQualityControl(w http.ResponseWriter, r *http.Request) {
	var req createQualityControlBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	qc, err := h.service.CreateQualityControl(r.Context(), QualityControlInput{
		ProductName: req.ProductName,
		BatchNumber: req.BatchNumber,
		TestResults: req.TestResults,
		Status:      req.Status,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, qualityControlResponse{
		ID:          qc.ID,
		ProductName: qc.ProductName,
		BatchNumber: qc.BatchNumber,
		TestDate:    qc.TestDate,
		TestResults: qc.TestResults,
		Status:      qc.Status,
	})
}

type maintenanceResponse struct {
	ID              int64      `json:"id"`
	EquipmentName   string     `json:"equipment_name"`
	MaintenanceType string     `json:"maintenance_type"`
	Description     string     `json:"description,omitempty"`
	Cost            float64    `json:"cost"`
	MaintenanceDate time.Time  `json:"maintenance_date"`
	NextMaintenance *time.Time `json:"next_maintenance,omitempty"`
}

func (h *Handler) handleListMaintenance(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListMaintenanceRecords(r.Context())
	if err != nil {
		h.logger.Error("list maintenance records", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]maintenanceResponse, 0, len(records))
	for _, m := range records {
		out = append(out, maintenanceResponse{
			ID:              m.ID,
			EquipmentName:   m.EquipmentName,
			MaintenanceType: m.MaintenanceType,
			Description:     m.Description,
			Cost:            m.Cost,
			MaintenanceDate: m.MaintenanceDate,
			NextMaintenance: m.NextMaintenance,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createMaintenanceBody struct {
	EquipmentName   string     `json:"equipment_name" validate:"required"`
	MaintenanceType string     `json:"maintenance_type" validate:"required"`
	Description     string     `json:"description"`
	Cost            float64    `json:"cost" validate:"gte=0"`
	NextMaintenance *time.Time `json:"next_maintenance"`
}

func (h *Handler) handleCreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var req createMaintenanceBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	record, err := h.service.CreateMaintenanceRecord(r.Context(), MaintenanceInput{
		EquipmentName:   req.EquipmentName,
		MaintenanceType: req.MaintenanceType,
		Description:     req.Description,
		Cost:            req.Cost,
		NextMaintenance: req.NextMaintenance,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, maintenanceResponse{
		ID:              record.ID,
		EquipmentName:   record.EquipmentName,
		MaintenanceType: record.MaintenanceType,
		Description:     record.Description,
		Cost:            record.Cost,
		MaintenanceDate: record.MaintenanceDate,
		NextMaintenance: record.NextMaintenance,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record does not exist")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("production operation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
