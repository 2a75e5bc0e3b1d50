package production

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therma-erp/therma-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const taskColumns = `id, name, COALESCE(description,''), status, COALESCE(priority,'medium'), start_date, end_date, COALESCE(assigned_to,''), created_at`

func scanTask(row pgx.Row) (ProductionTask, error) {
	var t ProductionTask
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Status, &t.Priority, &t.StartDate, &t.EndDate, &t.AssignedTo, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductionTask{}, ErrNotFound
		}
		return ProductionTask{}, err
	}
	return t, nil
}

// ListTasks returns tasks newest first.
func (r *Repository) ListTasks(ctx context.Context) ([]ProductionTask, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM production_tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []ProductionTask
	for rows.Next() {
		var t ProductionTask
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Status, &t.Priority, &t.StartDate, &t.EndDate, &t.AssignedTo, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches a task by ID.
func (r *Repository) GetTask(ctx context.Context, id int64) (ProductionTask, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM production_tasks WHERE id=$1`, id))
}

// CreateTask inserts a task row.
func (r *Repository) CreateTask(ctx context.Context, t ProductionTask) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO production_tasks (name, description, status, priority, assigned_to)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		t.Name, t.Description, t.Status, t.Priority, t.AssignedTo).
		Scan(&id)
	return id, err
}

// GetTaskForUpdate locks the task row for the transition.
func (tx *txRepo) GetTaskForUpdate(ctx context.Context, id int64) (ProductionTask, error) {
	return scanTask(tx.tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM production_tasks WHERE id=$1 FOR UPDATE`, id))
}

// SetTaskStatus writes the new status and any supplied timestamps.
func (tx *txRepo) SetTaskStatus(ctx context.Context, id int64, status TaskStatus, start, end *time.Time) error {
	_, err := tx.tx.Exec(ctx, `
		UPDATE production_tasks
		SET status=$2, start_date=COALESCE($3, start_date), end_date=COALESCE($4, end_date)
		WHERE id=$1`,
		id, status, start, end)
	return err
}

// ListQualityControls returns inspections newest first.
func (r *Repository) ListQualityControls(ctx context.Context) ([]QualityControl, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_name, COALESCE(batch_number,''), test_date, COALESCE(test_results,''), status
		FROM quality_controls ORDER BY test_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var controls []QualityControl
	for rows.Next() {
		var qc QualityControl
		if err := rows.Scan(&qc.ID, &qc.ProductName, &qc.BatchNumber, &qc.TestDate, &qc.TestResults, &qc.Status); err != nil {
			return nil, err
		}
		controls = append(controls, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return controls, nil
}

// CreateQualityControl inserts an inspection row.
func (r *Repository) CreateQualityControl(ctx context.Context, qc QualityControl) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO quality_controls (product_name, batch_number, test_date, test_results, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		qc.ProductName, qc.BatchNumber, qc.TestDate, qc.TestResults, qc.Status).
		Scan(&id)
	return id, err
}

// ListMaintenanceRecords returns servicing records newest first.
func (r *Repository) ListMaintenanceRecords(ctx context.Context) ([]MaintenanceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, equipment_name, maintenance_type, COALESCE(description,''), COALESCE(cost,0), maintenance_date, next_maintenance
		FROM maintenance_records ORDER BY maintenance_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []MaintenanceRecord
	for rows.Next() {
		var m MaintenanceRecord
		if err := rows.Scan(&m.ID, &m.EquipmentName, &m.MaintenanceType, &m.Description, &m.Cost, &m.MaintenanceDate, &m.NextMaintenance); err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CreateMaintenanceRecord inserts a servicing row.
func (r *Repository) CreateMaintenanceRecord(ctx context.Context, m MaintenanceRecord) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO maintenance_records (equipment_name, maintenance_type, description, cost, maintenance_date, next_maintenance)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		m.EquipmentName, m.MaintenanceType, m.Description, m.Cost, m.MaintenanceDate, m.NextMaintenance).
		Scan(&id)
	return id, err
}
