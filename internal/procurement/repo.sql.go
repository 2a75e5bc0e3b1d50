package procurement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

// ListCompanies returns supplier companies ordered by name.
func (r *Repository) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(address,''), COALESCE(phone,''), COALESCE(email,''), created_at
		FROM companies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &c.CreatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}

// GetCompany fetches a company by ID.
func (r *Repository) GetCompany(ctx context.Context, id int64) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(address,''), COALESCE(phone,''), COALESCE(email,''), created_at
		FROM companies WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Email, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrNotFound
		}
		return Company{}, err
	}
	return c, nil
}

// CreateCompany inserts a company row.
func (r *Repository) CreateCompany(ctx context.Context, c Company) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO companies (name, address, phone, email) VALUES ($1,$2,$3,$4) RETURNING id`,
		c.Name, c.Address, c.Phone, c.Email).
		Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

const resourceColumns = `r.id, r.name, r.resource_type, r.quantity, COALESCE(r.unit,''), COALESCE(r.cost_per_unit,0), r.company_id, c.name, r.created_at`

func scanResource(row pgx.Row) (Resource, error) {
	var res Resource
	err := row.Scan(&res.ID, &res.Name, &res.Type, &res.Quantity, &res.Unit, &res.CostPerUnit, &res.CompanyID, &res.CompanyName, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Resource{}, ErrNotFound
		}
		return Resource{}, err
	}
	return res, nil
}

// ListResources returns all resources joined to their company.
func (r *Repository) ListResources(ctx context.Context) ([]Resource, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+resourceColumns+`
		FROM resources r JOIN companies c ON c.id = r.company_id
		ORDER BY r.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var resources []Resource
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.Name, &res.Type, &res.Quantity, &res.Unit, &res.CostPerUnit, &res.CompanyID, &res.CompanyName, &res.CreatedAt); err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resources, nil
}

// GetResource fetches a resource by ID.
func (r *Repository) GetResource(ctx context.Context, id int64) (Resource, error) {
	return scanResource(r.pool.QueryRow(ctx, `
		SELECT `+resourceColumns+`
		FROM resources r JOIN companies c ON c.id = r.company_id
		WHERE r.id=$1`, id))
}

// FindResourceByName resolves a resource by its exact name.
func (r *Repository) FindResourceByName(ctx context.Context, name string) (Resource, error) {
	return scanResource(r.pool.QueryRow(ctx, `
		SELECT `+resourceColumns+`
		FROM resources r JOIN companies c ON c.id = r.company_id
		WHERE r.name=$1
		ORDER BY r.id LIMIT 1`, name))
}

// CreateResource inserts a resource row.
func (r *Repository) CreateResource(ctx context.Context, res Resource) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO resources (name, resource_type, quantity, unit, cost_per_unit, company_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		res.Name, res.Type, res.Quantity, res.Unit, res.CostPerUnit, res.CompanyID).
		Scan(&id)
	return id, err
}

// UpdateResource rewrites the mutable columns.
func (r *Repository) UpdateResource(ctx context.Context, res Resource) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE resources
		SET name=$2, resource_type=$3, quantity=$4, unit=$5, cost_per_unit=$6, company_id=$7
		WHERE id=$1`,
		res.ID, res.Name, res.Type, res.Quantity, res.Unit, res.CostPerUnit, res.CompanyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteResource removes a resource row.
func (r *Repository) DeleteResource(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM resources WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const requestColumns = `id, resource_name, resource_id, quantity, COALESCE(priority,'medium'), status, COALESCE(requested_by,''), created_at`

func scanRequest(row pgx.Row) (ResourceRequest, error) {
	var rr ResourceRequest
	err := row.Scan(&rr.ID, &rr.ResourceName, &rr.ResourceID, &rr.Quantity, &rr.Priority, &rr.Status, &rr.RequestedBy, &rr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourceRequest{}, ErrNotFound
		}
		return ResourceRequest{}, err
	}
	return rr, nil
}

// ListRequests returns requests newest first.
func (r *Repository) ListRequests(ctx context.Context) ([]ResourceRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM resource_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []ResourceRequest
	for rows.Next() {
		var rr ResourceRequest
		if err := rows.Scan(&rr.ID, &rr.ResourceName, &rr.ResourceID, &rr.Quantity, &rr.Priority, &rr.Status, &rr.RequestedBy, &rr.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

// GetRequest fetches a request by ID.
func (r *Repository) GetRequest(ctx context.Context, id int64) (ResourceRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM resource_requests WHERE id=$1`, id))
}

// CreateRequest inserts a pending request row.
func (r *Repository) CreateRequest(ctx context.Context, rr ResourceRequest) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO resource_requests (resource_name, resource_id, quantity, priority, status, requested_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		rr.ResourceName, rr.ResourceID, rr.Quantity, rr.Priority, rr.Status, rr.RequestedBy).
		Scan(&id)
	return id, err
}

// GetRequestForUpdate locks the request row for the transition.
func (tx *txRepo) GetRequestForUpdate(ctx context.Context, id int64) (ResourceRequest, error) {
	return scanRequest(tx.tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM resource_requests WHERE id=$1 FOR UPDATE`, id))
}

// SetRequestStatus writes the new status.
func (tx *txRepo) SetRequestStatus(ctx context.Context, id int64, status RequestStatus) error {
	_, err := tx.tx.Exec(ctx, `UPDATE resource_requests SET status=$2 WHERE id=$1`, id, status)
	return err
}
