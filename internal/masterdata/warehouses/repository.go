package warehouses

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates a missing warehouse.
var ErrNotFound = errors.New("warehouses: not found")

// ErrNoDistributionWarehouse indicates the distribution warehouse is not set up.
var ErrNoDistributionWarehouse = errors.New("warehouses: distribution warehouse not configured")

// DB is the pgx subset used by the repository; satisfied by a pool or a tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads warehouse master data.
type Repository struct {
	db DB
}

// NewRepository binds the repository to a pool or transaction.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// Get loads one warehouse.
func (r *Repository) Get(ctx context.Context, id int64) (Warehouse, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, code, name, address, is_distribution FROM warehouses WHERE id = $1`, id)
	return scan(row)
}

// Distribution returns the system-designated distribution warehouse.
func (r *Repository) Distribution(ctx context.Context) (Warehouse, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, code, name, address, is_distribution FROM warehouses WHERE is_distribution LIMIT 1`)
	w, err := scan(row)
	if errors.Is(err, ErrNotFound) {
		return Warehouse{}, ErrNoDistributionWarehouse
	}
	return w, err
}

func scan(row pgx.Row) (Warehouse, error) {
	var w Warehouse
	err := row.Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.IsDistribution)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Warehouse{}, ErrNotFound
		}
		return Warehouse{}, err
	}
	return w, nil
}
