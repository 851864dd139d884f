package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates a missing customer or expedition.
var ErrNotFound = errors.New("customers: not found")

// DB is the pgx subset used by the repository; satisfied by a pool or a tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads customer master data.
type Repository struct {
	db DB
}

// NewRepository binds the repository to a pool or transaction.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// Get loads one customer.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.db.QueryRow(ctx,
		`SELECT id, code, name, address, phone FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Code, &c.Name, &c.Address, &c.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

// GetExpedition loads one expedition.
func (r *Repository) GetExpedition(ctx context.Context, id int64) (Expedition, error) {
	var e Expedition
	err := r.db.QueryRow(ctx,
		`SELECT id, name, phone FROM expeditions WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expedition{}, ErrNotFound
		}
		return Expedition{}, err
	}
	return e, nil
}
