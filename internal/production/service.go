package production

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/therma-erp/therma-erp/internal/rbac"
	"github.com/therma-erp/therma-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListTasks(ctx context.Context) ([]ProductionTask, error)
	GetTask(ctx context.Context, id int64) (ProductionTask, error)
	CreateTask(ctx context.Context, task ProductionTask) (int64, error)
	ListQualityControls(ctx context.Context) ([]QualityControl, error)
	CreateQualityControl(ctx context.Context, qc QualityControl) (int64, error)
	ListMaintenanceRecords(ctx context.Context) ([]MaintenanceRecord, error)
	CreateMaintenanceRecord(ctx context.Context, record MaintenanceRecord) (int64, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	GetTaskForUpdate(ctx context.Context, id int64) (ProductionTask, error)
	SetTaskStatus(ctx context.Context, id int64, status TaskStatus, start, end *time.Time) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns production tasks, quality control and maintenance records.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// TaskInput describes the task creation payload.
type TaskInput struct {
	Name        string
	Description string
	Priority    string
	AssignedTo  string
}

// ListTasks returns all tasks.
func (s *Service) ListTasks(ctx context.Context) ([]ProductionTask, error) {
	return s.repo.ListTasks(ctx)
}

// GetTask fetches a single task.
func (s *Service) GetTask(ctx context.Context, id int64) (ProductionTask, error) {
	return s.repo.GetTask(ctx, id)
}

// CreateTask opens a waiting task.
func (s *Service) CreateTask(ctx context.Context, actor rbac.Principal, input TaskInput) (ProductionTask, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return ProductionTask{}, ErrValidation
	}
	if input.Priority == "" {
		input.Priority = "medium"
	}
	task := ProductionTask{
		Name:        input.Name,
		Description: input.Description,
		Status:      TaskWaiting,
		Priority:    input.Priority,
		AssignedTo:  input.AssignedTo,
	}
	id, err := s.repo.CreateTask(ctx, task)
	if err != nil {
		return ProductionTask{}, err
	}
	task.ID = id
	s.recordAudit(ctx, actor, "task.created", id)
	return task, nil
}

// StartTask moves a waiting task to in_progress. A nil timestamp means now.
func (s *Service) StartTask(ctx context.Context, actor rbac.Principal, id int64, at *time.Time) (ProductionTask, error) {
	if at == nil {
		now := time.Now()
		at = &now
	}
	return s.transition(ctx, actor, id, TaskInProgress, at, nil)
}

// CompleteTask finishes an in_progress task. A nil timestamp means now.
func (s *Service) CompleteTask(ctx context.Context, actor rbac.Principal, id int64, at *time.Time) (ProductionTask, error) {
	if at == nil {
		now := time.Now()
		at = &now
	}
	return s.transition(ctx, actor, id, TaskCompleted, nil, at)
}

func (s *Service) transition(ctx context.Context, actor rbac.Principal, id int64, target TaskStatus, start, end *time.Time) (ProductionTask, error) {
	var task ProductionTask
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetTaskForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
		}
		if err := tx.SetTaskStatus(ctx, id, target, start, end); err != nil {
			return err
		}
		current.Status = target
		if start != nil {
			current.StartDate = start
		}
		if end != nil {
			current.EndDate = end
		}
		task = current
		return nil
	})
	if err != nil {
		return ProductionTask{}, err
	}
	s.recordAudit(ctx, actor, "task."+string(target), task.ID)
	return task, nil
}

// QualityControlInput describes the inspection payload.
type QualityControlInput struct {
	ProductName string
	BatchNumber string
	TestResults string
	Status      string
}

// ListQualityControls returns all inspections.
func (s *Service) ListQualityControls(ctx context.Context) ([]QualityControl, error) {
	return s.repo.ListQualityControls(ctx)
}

// CreateQualityControl records one batch inspection.
func (s *Service) CreateQualityControl(ctx context.Context, input QualityControlInput) (QualityControl, error) {
	if strings.TrimSpace(input.ProductName) == "" {
		return QualityControl{}, ErrValidation
	}
	if input.Status == "" {
		input.Status = "pending"
	}
	qc := QualityControl{
		ProductName: input.ProductName,
		BatchNumber: input.BatchNumber,
		TestDate:    time.Now(),
		TestResults: input.TestResults,
		Status:      input.Status,
	}
	id, err := s.repo.CreateQualityControl(ctx, qc)
	if err != nil {
		return QualityControl{}, err
	}
	qc.ID = id
	return qc, nil
}

// MaintenanceInput describes the servicing payload.
type MaintenanceInput struct {
	EquipmentName   string
	MaintenanceType string
	Description     string
	Cost            float64
	NextMaintenance *time.Time
}

// ListMaintenanceRecords returns all servicing records.
func (s *Service) ListMaintenanceRecords(ctx context.Context) ([]MaintenanceRecord, error) {
	return s.repo.ListMaintenanceRecords(ctx)
}

// CreateMaintenanceRecord registers one equipment servicing.
func (s *Service) CreateMaintenanceRecord(ctx context.Context, input MaintenanceInput) (MaintenanceRecord, error) {
	if strings.TrimSpace(input.EquipmentName) == "" || input.MaintenanceType == "" || input.Cost < 0 {
		return MaintenanceRecord{}, ErrValidation
	}
	record := MaintenanceRecord{
		EquipmentName:   input.EquipmentName,
		MaintenanceType: input.MaintenanceType,
		Description:     input.Description,
		Cost:            input.Cost,
		MaintenanceDate: time.Now(),
		NextMaintenance: input.NextMaintenance,
	}
	id, err := s.repo.CreateMaintenanceRecord(ctx, record)
	if err != nil {
		return MaintenanceRecord{}, err
	}
	record.ID = id
	return record, nil
}

func (s *Service) recordAudit(ctx context.Context, actor rbac.Principal, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "production_task",
		EntityID: fmt.Sprintf("%d", entityID),
	})
}
