package production

import (
	"errors"
	"time"
)

// TaskStatus enumerates production task lifecycle states.
type TaskStatus string

const (
	TaskWaiting    TaskStatus = "waiting"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// CanTransition reports whether moving from one task status to another is
// legal. The chain is strictly forward.
func CanTransition(from, to TaskStatus) bool {
	switch to {
	case TaskInProgress:
		return from == TaskWaiting
	case TaskCompleted:
		return from == TaskInProgress
	}
	return false
}

// ProductionTask is a unit of shop-floor work. Tasks are not linked to
// orders; the production dashboard shows both side by side.
type ProductionTask struct {
	ID          int64
	Name        string
	Description string
	Status      TaskStatus
	Priority    string
	StartDate   *time.Time
	EndDate     *time.Time
	AssignedTo  string
	CreatedAt   time.Time
}

// QualityControl records one batch inspection.
type QualityControl struct {
	ID          int64
	ProductName string
	BatchNumber string
	TestDate    time.Time
	TestResults string
	Status      string
}

// MaintenanceRecord tracks equipment servicing.
type MaintenanceRecord struct {
	ID              int64
	EquipmentName   string
	MaintenanceType string
	Description     string
	Cost            float64
	MaintenanceDate time.Time
	NextMaintenance *time.Time
}

var (
	ErrNotFound          = errors.New("production: not found")
	ErrValidation        = errors.New("production: validation failed")
	ErrInvalidTransition = errors.New("production: invalid status transition")
)
